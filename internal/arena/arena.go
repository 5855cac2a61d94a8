// Package arena provides the growable, disk-backed mapped region that
// holds all store contents. Everything handed out to callers is an
// offset-based Handle rather than a pointer, so growing and remapping
// the region never invalidates a reference that is re-resolved through
// the current mapping.
package arena

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
	"go.uber.org/zap"

	"github.com/wegman-software/tilegen-go/internal/logger"
)

// ErrOutOfSpace is returned by Alloc when the current mapping cannot fit
// the request. Perform treats it as a signal to grow and retry; it never
// escapes a Perform call.
var ErrOutOfSpace = errors.New("arena: out of space")

// Handle is an opaque, growth-stable reference to a previously allocated
// block. The zero Handle is never issued.
type Handle uint64

// Nil is the invalid handle.
const Nil Handle = 0

// Each allocation is framed with a little-endian uint64 length so a
// Handle alone is enough to recover the block.
const framePrefix = 8

// The first bytes of the file are reserved so that offset 0 stays
// invalid.
const headerSize = 8

// Arena is a single resizable memory-mapped backing region with bump
// allocation. It is scratch storage: Close deletes the backing file.
//
// Allocation and growth take the write lock; Bytes takes the read lock.
// A []byte returned by Bytes is only stable while no growth occurs, so
// callers that run concurrently must reserve capacity up front and keep
// the concurrent phase growth-free.
type Arena struct {
	mu   sync.RWMutex
	path string
	file *os.File
	data mmap.MMap
	size int64 // mapped capacity in bytes
	used int64 // bump offset
	mark int64 // rewind point for Reset
}

// Open creates the backing file at path, clobbering any prior file
// there, and maps it at the given initial byte capacity.
func Open(path string, initialCapacity int64) (*Arena, error) {
	if initialCapacity < headerSize {
		return nil, fmt.Errorf("arena: initial capacity %d too small", initialCapacity)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create arena file: %w", err)
	}
	if err := f.Truncate(initialCapacity); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to size arena file: %w", err)
	}

	data, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to map arena file: %w", err)
	}

	return &Arena{
		path: path,
		file: f,
		data: data,
		size: initialCapacity,
		used: headerSize,
		mark: headerSize,
	}, nil
}

// Alloc reserves a block of n bytes and returns its handle together
// with the (zeroed or stale) payload slice for the caller to fill in.
// The returned slice is only valid until the next growth event.
func (a *Arena) Alloc(n int) (Handle, []byte, error) {
	if n < 0 {
		return Nil, nil, fmt.Errorf("arena: invalid allocation size %d", n)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.used+framePrefix+int64(n) > a.size {
		return Nil, nil, ErrOutOfSpace
	}

	off := a.used
	binary.LittleEndian.PutUint64(a.data[off:], uint64(n))
	a.used += framePrefix + int64(n)

	h := Handle(off + framePrefix)
	return h, a.data[int64(h) : int64(h)+int64(n)], nil
}

// Bytes resolves a handle against the current mapping and returns the
// block's payload.
func (a *Arena) Bytes(h Handle) []byte {
	a.mu.RLock()
	defer a.mu.RUnlock()

	off := int64(h)
	if off < headerSize+framePrefix || off > a.used {
		return nil
	}
	n := int64(binary.LittleEndian.Uint64(a.data[off-framePrefix:]))
	if off+n > a.used {
		return nil
	}
	return a.data[off : off+n]
}

// Perform executes an allocation-dependent operation, doubling the
// arena and retrying whenever the operation fails for lack of space.
// Any other error from op is returned as-is. Growth is unbounded short
// of the storage medium itself; failure to extend the backing file is
// fatal and returned to the caller.
func (a *Arena) Perform(op func() error) error {
	for {
		err := op()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrOutOfSpace) {
			return err
		}
		if err := a.grow(); err != nil {
			return err
		}
	}
}

// grow doubles the capacity: unmap, extend the file, remap. Handles are
// offsets, so existing blocks keep their identity in the new mapping.
func (a *Arena) grow() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	newSize := a.size * 2
	logger.Get().Info("Growing arena",
		zap.String("path", a.path),
		zap.Int64("from_bytes", a.size),
		zap.Int64("to_bytes", newSize))

	if err := a.data.Unmap(); err != nil {
		return fmt.Errorf("failed to unmap arena: %w", err)
	}
	a.data = nil

	if err := a.file.Truncate(newSize); err != nil {
		return fmt.Errorf("failed to grow arena file to %d bytes: %w", newSize, err)
	}

	data, err := mmap.Map(a.file, mmap.RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to remap arena: %w", err)
	}

	a.data = data
	a.size = newSize
	return nil
}

// SetMark records the current allocation offset. Reset rewinds to it.
// The store calls this after construction-time reserves so a global
// clear keeps pre-sized extents alive while reclaiming everything
// allocated afterwards.
func (a *Arena) SetMark() {
	a.mu.Lock()
	a.mark = a.used
	a.mu.Unlock()
}

// Reset rewinds the bump offset to the mark. Capacity is retained;
// the arena never shrinks.
func (a *Arena) Reset() {
	a.mu.Lock()
	a.used = a.mark
	a.mu.Unlock()
}

// Size returns the currently allocated capacity of the backing region.
func (a *Arena) Size() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.size
}

// Used returns the number of bytes handed out so far.
func (a *Arena) Used() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.used
}

// Close unmaps the region and deletes the backing file. The arena is
// scratch, never durable cross-run storage.
func (a *Arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var firstErr error
	if a.data != nil {
		if err := a.data.Unmap(); err != nil {
			firstErr = err
		}
		a.data = nil
	}
	if a.file != nil {
		if err := a.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		a.file = nil
	}
	if err := os.Remove(a.path); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
