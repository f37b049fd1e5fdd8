// Package lineindex holds a query's line index: three parallel arrays,
// keyed by surviving record index, that grow in a single allocation sweep
// of a fixed stride rather than one slice append at a time. Shrinking is
// unnecessary; the arrays are dropped wholesale between queries.
package lineindex

// Index holds, for each surviving record k: the byte offset its line
// begins at (LineOffset), the byte offset its job-id field begins at
// (FieldOffset), and whether it carried an archive path (Archived).
type Index struct {
	stride      int
	LineOffset  []int64
	FieldOffset []int64
	Archived    []bool
}

// New returns an empty Index that grows in steps of stride records.
func New(stride int) *Index {
	if stride <= 0 {
		stride = 1
	}
	return &Index{stride: stride}
}

// Len is the number of records currently indexed, monotone non-decreasing
// within one query.
func (x *Index) Len() int { return len(x.LineOffset) }

// Append records one surviving line. Capacity grows by stride whenever the
// backing arrays are full, so most Appends are plain slice growth rather
// than a fresh allocation sweep.
func (x *Index) Append(lineOffset, fieldOffset int64, archived bool) {
	if len(x.LineOffset) == cap(x.LineOffset) {
		x.grow()
	}
	x.LineOffset = append(x.LineOffset, lineOffset)
	x.FieldOffset = append(x.FieldOffset, fieldOffset)
	x.Archived = append(x.Archived, archived)
}

func (x *Index) grow() {
	newCap := cap(x.LineOffset) + x.stride
	lo := make([]int64, len(x.LineOffset), newCap)
	fo := make([]int64, len(x.FieldOffset), newCap)
	ar := make([]bool, len(x.Archived), newCap)
	copy(lo, x.LineOffset)
	copy(fo, x.FieldOffset)
	copy(ar, x.Archived)
	x.LineOffset, x.FieldOffset, x.Archived = lo, fo, ar
}

// Reset frees the arrays. The query driver calls it on entry, so a
// completed query's index stays readable until the next query begins.
func (x *Index) Reset() {
	x.LineOffset = nil
	x.FieldOffset = nil
	x.Archived = nil
}
