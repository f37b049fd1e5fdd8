package lineindex

import "testing"

func TestAppendGrowsByStride(t *testing.T) {
	x := New(4)
	for i := 0; i < 10; i++ {
		x.Append(int64(i), int64(i*2), i%3 == 0)
	}
	if x.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", x.Len())
	}
	for i := 0; i < 10; i++ {
		if x.LineOffset[i] != int64(i) {
			t.Errorf("LineOffset[%d] = %d, want %d", i, x.LineOffset[i], i)
		}
		if x.FieldOffset[i] != int64(i*2) {
			t.Errorf("FieldOffset[%d] = %d, want %d", i, x.FieldOffset[i], i*2)
		}
		if x.Archived[i] != (i%3 == 0) {
			t.Errorf("Archived[%d] = %v, want %v", i, x.Archived[i], i%3 == 0)
		}
	}
}

func TestResetFreesArrays(t *testing.T) {
	x := New(2)
	x.Append(1, 2, true)
	x.Reset()
	if x.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", x.Len())
	}
	if x.LineOffset != nil {
		t.Errorf("LineOffset not nil after Reset")
	}
}

func TestNewClampsNonPositiveStride(t *testing.T) {
	x := New(0)
	x.Append(1, 1, false)
	if x.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", x.Len())
	}
}
