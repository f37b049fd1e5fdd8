package jobinfo

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"modernc.org/kv"
)

// keyOrder is the byte order used for the fixed-width job-id keys stored
// in the kv database. Big-endian keys sort numerically.
var keyOrder = binary.BigEndian

// MarshalJobIDKey renders jobID as a sortable fixed-width key.
func MarshalJobIDKey(jobID uint64) []byte {
	var buf [8]byte
	keyOrder.PutUint64(buf[:], jobID)
	return buf[:]
}

// UnmarshalJobIDKey is the inverse of MarshalJobIDKey.
func UnmarshalJobIDKey(k []byte) (uint64, error) {
	if len(k) != 8 {
		return 0, fmt.Errorf("jobinfo: bad key length %d", len(k))
	}
	return keyOrder.Uint64(k), nil
}

// CompareJobIDKeys is the kv.Options.Compare function for a job-info
// store: plain numeric order over the fixed-width key.
func CompareJobIDKeys(x, y []byte) int {
	return bytes.Compare(x, y)
}

// KVStore is a Resolver backed by a modernc.org/kv database mapping job ID
// to a persisted Info record. It plays the role of AFD's own local dir/job
// databases: a real, queryable store rather than a mock.
type KVStore struct {
	db *kv.DB
}

// OpenKVStore opens (or creates) the job-info database at path.
func OpenKVStore(path string) (*KVStore, error) {
	opts := &kv.Options{Compare: CompareJobIDKeys}
	db, err := kv.Open(path, opts)
	if err != nil {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			db, err = kv.Create(path, opts)
		}
		if err != nil {
			return nil, fmt.Errorf("jobinfo: open %s: %w", path, err)
		}
	}
	return &KVStore{db: db}, nil
}

// Close releases the database handle.
func (s *KVStore) Close() error {
	return s.db.Close()
}

// Put stores info under jobID, overwriting any existing record.
func (s *KVStore) Put(jobID uint64, info Info) error {
	v, err := marshalInfo(info)
	if err != nil {
		return err
	}
	return s.db.Set(MarshalJobIDKey(jobID), v)
}

// Lookup implements Resolver.
func (s *KVStore) Lookup(jobID uint64, mode Mode) (Info, error) {
	v, err := s.db.Get(nil, MarshalJobIDKey(jobID))
	if err != nil {
		return Info{}, fmt.Errorf("jobinfo: lookup %d: %w", jobID, err)
	}
	if v == nil {
		return Info{}, ErrUnknownJob
	}
	return unmarshalInfo(v)
}

// All iterates every stored job ID in key order, for cmd/afdauditdb.
func (s *KVStore) All(fn func(jobID uint64, info Info) error) error {
	it, err := s.db.SeekFirst()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	for {
		k, v, err := it.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		jobID, err := UnmarshalJobIDKey(k)
		if err != nil {
			return err
		}
		info, err := unmarshalInfo(v)
		if err != nil {
			return err
		}
		if err := fn(jobID, info); err != nil {
			return err
		}
	}
}

// marshalInfo and unmarshalInfo encode an Info as length-prefixed strings
// followed by the fixed-width DirID.
func marshalInfo(info Info) ([]byte, error) {
	var buf bytes.Buffer
	for _, s := range []string{info.User, info.MailDestination, info.Dir} {
		var n [8]byte
		keyOrder.PutUint64(n[:], uint64(len(s)))
		buf.Write(n[:])
		buf.WriteString(s)
	}
	var id [4]byte
	keyOrder.PutUint32(id[:], info.DirID)
	buf.Write(id[:])
	return buf.Bytes(), nil
}

func unmarshalInfo(data []byte) (Info, error) {
	var info Info
	fields := make([]string, 3)
	for i := range fields {
		if len(data) < 8 {
			return Info{}, fmt.Errorf("jobinfo: truncated record")
		}
		n := keyOrder.Uint64(data[:8])
		data = data[8:]
		if uint64(len(data)) < n {
			return Info{}, fmt.Errorf("jobinfo: truncated record")
		}
		fields[i] = string(data[:n])
		data = data[n:]
	}
	if len(data) < 4 {
		return Info{}, fmt.Errorf("jobinfo: truncated record")
	}
	info.User, info.MailDestination, info.Dir = fields[0], fields[1], fields[2]
	info.DirID = keyOrder.Uint32(data[:4])
	return info, nil
}
