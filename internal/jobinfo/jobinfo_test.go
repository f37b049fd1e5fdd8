package jobinfo

import "testing"

type fakeResolver struct {
	calls int
	info  Info
	err   error
}

func (f *fakeResolver) Lookup(jobID uint64, mode Mode) (Info, error) {
	f.calls++
	return f.info, f.err
}

func TestCacheMemoizesPerJobID(t *testing.T) {
	backend := &fakeResolver{info: Info{User: "alice", Dir: "/data"}}
	c := NewCache(backend)

	for i := 0; i < 3; i++ {
		user, _, err := c.ResolveUser(42)
		if err != nil {
			t.Fatal(err)
		}
		if user != "alice" {
			t.Errorf("ResolveUser = %q, want alice", user)
		}
	}
	if backend.calls != 1 {
		t.Errorf("backend called %d times, want 1 (memoised)", backend.calls)
	}

	// A different job ID is a cache miss.
	if _, _, err := c.ResolveUser(43); err != nil {
		t.Fatal(err)
	}
	if backend.calls != 2 {
		t.Errorf("backend called %d times, want 2 after a second job id", backend.calls)
	}

	// ResolveDir uses a separate cache from ResolveUser.
	dir, _, err := c.ResolveDir(42)
	if err != nil {
		t.Fatal(err)
	}
	if dir != "/data" {
		t.Errorf("ResolveDir = %q, want /data", dir)
	}
	if backend.calls != 3 {
		t.Errorf("backend called %d times, want 3 (ResolveDir is a separate cache)", backend.calls)
	}
}

func TestCacheFreeClearsState(t *testing.T) {
	backend := &fakeResolver{info: Info{User: "bob"}}
	c := NewCache(backend)
	if _, _, err := c.ResolveUser(1); err != nil {
		t.Fatal(err)
	}
	c.Free()
	if _, _, err := c.ResolveUser(1); err != nil {
		t.Fatal(err)
	}
	if backend.calls != 2 {
		t.Errorf("backend called %d times, want 2 after Free invalidated the cache", backend.calls)
	}
}

func TestMarshalInfoRoundTrip(t *testing.T) {
	info := Info{
		User:            "alice",
		MailDestination: "alice@example.com",
		Dir:             "/data/outgoing",
		DirID:           7,
	}
	data, err := marshalInfo(info)
	if err != nil {
		t.Fatal(err)
	}
	got, err := unmarshalInfo(data)
	if err != nil {
		t.Fatal(err)
	}
	if got != info {
		t.Errorf("round trip = %+v, want %+v", got, info)
	}
}

func TestMarshalJobIDKeyRoundTrip(t *testing.T) {
	k := MarshalJobIDKey(0x1234)
	got, err := UnmarshalJobIDKey(k)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0x1234 {
		t.Errorf("UnmarshalJobIDKey = %#x, want %#x", got, 0x1234)
	}
}
