package abi

import (
	"testing"
)

// BenchmarkPackPtrLen measures pointer packing performance.
// Every WASM buffer and string handle goes through it.
func BenchmarkPackPtrLen(b *testing.B) {
	ptr := uint32(0x12345678)
	length := uint32(256)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		packed := PackPtrLen(ptr, length)
		_ = packed
	}
}

// BenchmarkUnpackPtrLen measures pointer unpacking performance.
func BenchmarkUnpackPtrLen(b *testing.B) {
	packed := PackPtrLen(0x12345678, 256)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ptr, length := UnpackPtrLen(packed)
		_, _ = ptr, length
	}
}

// BenchmarkTrackRelease measures one allocate/free bookkeeping cycle.
func BenchmarkTrackRelease(b *testing.B) {
	tr := NewTracker()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		addr := uintptr(i + 1)
		_ = tr.Track(addr, 64)
		tr.Release(addr)
	}
}
