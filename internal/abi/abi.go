// Package abi tracks memory handed across the interop boundary and packs
// pointer/length pairs for the WASM calling convention.
package abi

import (
	"fmt"
	"sync"
)

// DefaultMaxTotalAllocations is the default cap on bytes tracked at once.
const DefaultMaxTotalAllocations = 100 * 1024 * 1024 // 100 MB

// PtrHighBits is the shift of the pointer half in a packed value.
const PtrHighBits = 32

// Tracker records allocations that one side of the boundary handed to the
// other and that must come back exactly once. Release of an address that
// is not tracked is reported, never fatal, so a double free is harmless.
//
// A Tracker is safe for concurrent use.
type Tracker struct {
	mu    sync.Mutex
	live  map[uintptr]entry
	total int
	limit int
}

type entry struct {
	size int
	// pin keeps Go-allocated memory reachable while the other side holds it.
	pin []byte
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithMaxTotalAllocations caps the bytes tracked at once. Values <= 0 are ignored.
func WithMaxTotalAllocations(limit int) Option {
	return func(t *Tracker) {
		if limit > 0 {
			t.limit = limit
		}
	}
}

// NewTracker creates an empty Tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		live:  make(map[uintptr]entry),
		limit: DefaultMaxTotalAllocations,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// LimitError is returned by Track when an allocation would exceed the cap.
type LimitError struct {
	Requested int
	Current   int
	Limit     int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("abi: memory allocation limit exceeded (requested: %d bytes, current: %d bytes, limit: %d bytes)",
		e.Requested, e.Current, e.Limit)
}

// Reserve checks that size more bytes fit under the cap without tracking them.
func (t *Tracker) Reserve(size int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reserveLocked(size)
}

func (t *Tracker) reserveLocked(size int) error {
	if t.total+size > t.limit {
		return &LimitError{Requested: size, Current: t.total, Limit: t.limit}
	}
	return nil
}

// Track records an allocation of size bytes at addr.
func (t *Tracker) Track(addr uintptr, size int) error {
	return t.TrackPinned(addr, size, nil)
}

// TrackPinned records an allocation and keeps buf reachable until Release.
func (t *Tracker) TrackPinned(addr uintptr, size int, buf []byte) error {
	if addr == 0 {
		return fmt.Errorf("abi: cannot track null address")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.live[addr]; exists {
		return fmt.Errorf("abi: address 0x%x already tracked", addr)
	}
	if err := t.reserveLocked(size); err != nil {
		return err
	}
	t.live[addr] = entry{size: size, pin: buf}
	t.total += size
	return nil
}

// Release forgets addr and returns the size it was tracked with. ok is
// false when addr was not tracked.
func (t *Tracker) Release(addr uintptr) (size int, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, exists := t.live[addr]
	if !exists {
		return 0, false
	}
	delete(t.live, addr)
	t.total -= e.size
	if t.total < 0 {
		t.total = 0
	}
	return e.size, true
}

// Owns reports whether addr is currently tracked.
func (t *Tracker) Owns(addr uintptr) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.live[addr]
	return ok
}

// Size returns the tracked size of addr, or 0 when it is not tracked.
func (t *Tracker) Size(addr uintptr) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live[addr].size
}

// Stats returns the number of tracked allocations and their total size.
func (t *Tracker) Stats() (count, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.live), t.total
}

// Drain forgets every tracked allocation and returns their addresses so the
// caller can free them.
func (t *Tracker) Drain() []uintptr {
	t.mu.Lock()
	defer t.mu.Unlock()

	addrs := make([]uintptr, 0, len(t.live))
	for addr := range t.live {
		addrs = append(addrs, addr)
	}
	clear(t.live)
	t.total = 0
	return addrs
}

// PackPtrLen packs a pointer and length into a single uint64.
// Pointer is stored in the high 32 bits, length in the low 32 bits.
// Panics if ptr is 0 and length > 0, indicating an invalid state.
func PackPtrLen(ptr, length uint32) uint64 {
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: invalid pack - null pointer (0x0) with non-zero length (%d)", length))
	}
	return (uint64(ptr) << PtrHighBits) | uint64(length)
}

// UnpackPtrLen unpacks a uint64 into its original pointer and length.
// Panics if ptr is 0 and length > 0, indicating an invalid packed value.
func UnpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> PtrHighBits)
	length = uint32(packed)
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: invalid unpack - null pointer (0x0) with non-zero length (%d)", length))
	}
	return ptr, length
}
