package abi

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackPtrLen(t *testing.T) {
	tests := []struct {
		name   string
		ptr    uint32
		length uint32
		want   uint64
	}{
		{
			name:   "typical values",
			ptr:    0x12345678,
			length: 0xABCDEF00,
			want:   (uint64(0x12345678) << PtrHighBits) | uint64(0xABCDEF00),
		},
		{
			name:   "zero pointer zero length",
			ptr:    0,
			length: 0,
			want:   0,
		},
		{
			name:   "max pointer",
			ptr:    0xFFFFFFFF,
			length: 1,
			want:   (uint64(0xFFFFFFFF) << PtrHighBits) | 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packed := PackPtrLen(tt.ptr, tt.length)
			assert.Equal(t, tt.want, packed, "packed value mismatch")

			gotPtr, gotLen := UnpackPtrLen(packed)
			assert.Equal(t, tt.ptr, gotPtr, "unpacked pointer mismatch")
			assert.Equal(t, tt.length, gotLen, "unpacked length mismatch")
		})
	}
}

func TestPackPtrLen_PanicsOnNullPointerWithLength(t *testing.T) {
	assert.Panics(t, func() {
		PackPtrLen(0, 100)
	}, "expected panic for null pointer with non-zero length")
}

func TestUnpackPtrLen_PanicsOnInvalidPacked(t *testing.T) {
	assert.Panics(t, func() {
		// Invalid packed: ptr=0, len=1
		UnpackPtrLen(uint64(1))
	}, "expected panic for invalid packed value")
}

func TestTrackRelease(t *testing.T) {
	tr := NewTracker()

	require.NoError(t, tr.Track(0x1000, 11))
	assert.True(t, tr.Owns(0x1000))
	assert.Equal(t, 11, tr.Size(0x1000))

	count, total := tr.Stats()
	assert.Equal(t, 1, count, "expected 1 tracked allocation")
	assert.Equal(t, 11, total, "total bytes mismatch")

	size, ok := tr.Release(0x1000)
	assert.True(t, ok)
	assert.Equal(t, 11, size)

	count, total = tr.Stats()
	assert.Equal(t, 0, count, "expected 0 tracked allocations after release")
	assert.Equal(t, 0, total, "expected 0 total bytes after release")
}

func TestRelease_Idempotent(t *testing.T) {
	tr := NewTracker()

	require.NoError(t, tr.Track(0x2000, 100))
	_, ok := tr.Release(0x2000)
	require.True(t, ok)

	// Second release must not panic or corrupt state
	size, ok := tr.Release(0x2000)
	assert.False(t, ok)
	assert.Zero(t, size)

	_, total := tr.Stats()
	assert.Equal(t, 0, total)
}

func TestTrack_Rejects(t *testing.T) {
	tr := NewTracker()

	assert.Error(t, tr.Track(0, 8), "null address")

	require.NoError(t, tr.Track(0x3000, 8))
	assert.Error(t, tr.Track(0x3000, 8), "duplicate address")

	count, total := tr.Stats()
	assert.Equal(t, 1, count)
	assert.Equal(t, 8, total)
}

func TestTrack_Limit(t *testing.T) {
	tr := NewTracker(WithMaxTotalAllocations(1024))

	require.NoError(t, tr.Track(0x10, 512))
	require.NoError(t, tr.Reserve(512))

	err := tr.Track(0x20, 1024)
	var limitErr *LimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, 1024, limitErr.Requested)
	assert.Equal(t, 512, limitErr.Current)
	assert.Equal(t, 1024, limitErr.Limit)
	assert.False(t, tr.Owns(0x20))

	tr.Release(0x10)
	assert.NoError(t, tr.Track(0x20, 1024))
}

func TestWithMaxTotalAllocations_IgnoresInvalid(t *testing.T) {
	tr := NewTracker(WithMaxTotalAllocations(0), WithMaxTotalAllocations(-5))
	assert.Equal(t, DefaultMaxTotalAllocations, tr.limit)
}

func TestDrain(t *testing.T) {
	tr := NewTracker()
	require.NoError(t, tr.TrackPinned(0x100, 3, []byte{1, 2, 3}))
	require.NoError(t, tr.Track(0x200, 5))

	addrs := tr.Drain()
	assert.ElementsMatch(t, []uintptr{0x100, 0x200}, addrs)

	count, total := tr.Stats()
	assert.Equal(t, 0, count, "expected 0 allocations after Drain")
	assert.Equal(t, 0, total, "expected 0 bytes after Drain")
}

func TestConcurrency(t *testing.T) {
	tr := NewTracker()

	var wg sync.WaitGroup
	iterations := 100

	wg.Add(iterations)
	for i := 0; i < iterations; i++ {
		go func(addr uintptr) {
			defer wg.Done()
			if err := tr.Track(addr, 16); err != nil {
				t.Error(err)
				return
			}
			_ = tr.Owns(addr)
			tr.Release(addr)
		}(uintptr(i + 1))
	}
	wg.Wait()

	count, _ := tr.Stats()
	assert.Equal(t, 0, count, "expected 0 allocations after concurrent operations")
}
