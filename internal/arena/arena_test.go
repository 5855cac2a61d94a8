package arena

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestArena(t *testing.T, capacity int64) *Arena {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.bin")
	a, err := Open(path, capacity)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func mustAlloc(t *testing.T, a *Arena, payload []byte) Handle {
	t.Helper()
	var h Handle
	err := a.Perform(func() error {
		var b []byte
		var err error
		h, b, err = a.Alloc(len(payload))
		if err != nil {
			return err
		}
		copy(b, payload)
		return nil
	})
	if err != nil {
		t.Fatalf("Perform: %v", err)
	}
	return h
}

func TestAllocResolve(t *testing.T) {
	a := newTestArena(t, 4096)

	h := mustAlloc(t, a, []byte("hello arena"))
	if h == Nil {
		t.Fatal("got nil handle")
	}
	if got := a.Bytes(h); !bytes.Equal(got, []byte("hello arena")) {
		t.Errorf("Bytes(h) = %q, want %q", got, "hello arena")
	}
}

func TestGrowthPreservesHandles(t *testing.T) {
	a := newTestArena(t, 256)

	payloads := [][]byte{
		[]byte("first"),
		bytes.Repeat([]byte{0xAB}, 100),
		bytes.Repeat([]byte{0xCD}, 500), // forces at least one growth
		bytes.Repeat([]byte{0xEF}, 2000),
	}

	var handles []Handle
	for _, p := range payloads {
		handles = append(handles, mustAlloc(t, a, p))
	}

	if a.Size() <= 256 {
		t.Fatalf("expected arena to grow beyond 256 bytes, size = %d", a.Size())
	}

	for i, h := range handles {
		if got := a.Bytes(h); !bytes.Equal(got, payloads[i]) {
			t.Errorf("handle %d resolves to %d bytes, want %d", i, len(got), len(payloads[i]))
		}
	}
}

func TestPerformRetriesUntilFit(t *testing.T) {
	a := newTestArena(t, 64)

	// A block far larger than the initial capacity needs several
	// doublings before the allocation succeeds.
	big := bytes.Repeat([]byte{0x42}, 1000)
	h := mustAlloc(t, a, big)
	if got := a.Bytes(h); !bytes.Equal(got, big) {
		t.Error("large allocation did not survive repeated growth")
	}
}

func TestPerformPropagatesOtherErrors(t *testing.T) {
	a := newTestArena(t, 64)

	boom := errors.New("boom")
	if err := a.Perform(func() error { return boom }); !errors.Is(err, boom) {
		t.Errorf("Perform returned %v, want %v", err, boom)
	}
}

func TestResetRetainsCapacity(t *testing.T) {
	a := newTestArena(t, 64)

	keep := mustAlloc(t, a, []byte("kept"))
	a.SetMark()

	mustAlloc(t, a, bytes.Repeat([]byte{1}, 300))
	grown := a.Size()

	a.Reset()
	if a.Size() != grown {
		t.Errorf("Reset changed capacity from %d to %d", grown, a.Size())
	}
	if got := a.Bytes(keep); !bytes.Equal(got, []byte("kept")) {
		t.Error("allocation below the mark lost after Reset")
	}

	// Space above the mark is reusable.
	h := mustAlloc(t, a, []byte("again"))
	if got := a.Bytes(h); !bytes.Equal(got, []byte("again")) {
		t.Error("allocation after Reset failed")
	}
}

func TestCloseDeletesBackingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.bin")
	a, err := Open(path, 1024)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("backing file still present after Close: %v", err)
	}
}

func TestBytesRejectsBogusHandle(t *testing.T) {
	a := newTestArena(t, 1024)
	mustAlloc(t, a, []byte("x"))

	if got := a.Bytes(Nil); got != nil {
		t.Error("Bytes(Nil) should return nil")
	}
	if got := a.Bytes(Handle(1 << 40)); got != nil {
		t.Error("Bytes past the bump offset should return nil")
	}
}
