//go:build wasip1

// Command interop-wasm builds the interop export table as a WASI reactor:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o interop.wasm ./cmd/interop-wasm
//
// WASM has no aggregate parameters, so vectors travel as two f32 values and
// toEuler writes its result to a caller-allocated 8-byte out pointer.
// Buffers are (ptr, len) pairs in linear memory obtained from allocate.
// format_string returns a packed ptr<<32|len handle owned by the caller
// until it is passed to free_string.
package main

import (
	"log/slog"
	"os"
	"unsafe"

	"github.com/reglet-dev/interop/domain/entities"
	"github.com/reglet-dev/interop/exports"
	"github.com/reglet-dev/interop/internal/abi"
	"github.com/reglet-dev/interop/log"
)

// owned pins every buffer handed to the host until it comes back.
var owned = abi.NewTracker()

func init() {
	// The host applies its own level when it replays records.
	log.Install(log.WithLevel(slog.LevelDebug))
}

// allocate reserves size bytes of linear memory for the host to write into.
// It returns 0 when size is 0 or the allocation cap is reached.
//
//go:wasmexport allocate
func allocate(size uint32) uint32 {
	if size == 0 {
		return 0
	}
	buf := make([]byte, size)
	ptr := addrOf(buf)
	if err := owned.TrackPinned(uintptr(ptr), int(size), buf); err != nil {
		slog.Warn("allocate refused", "size", size, "error", err)
		return 0
	}
	return ptr
}

// deallocate releases memory obtained from allocate. Unknown pointers are
// ignored.
//
//go:wasmexport deallocate
func deallocate(ptr, size uint32) {
	if ptr == 0 {
		return
	}
	if _, ok := owned.Release(uintptr(ptr)); !ok {
		slog.Warn("deallocate: pointer not owned by caller, ignoring", "ptr", ptr, "size", size)
	}
}

//go:wasmexport hello_world
func helloWorld() {
	_ = exports.HelloWorld(os.Stdout)
}

//go:wasmexport square
func square(v int32) int32 {
	return exports.Square(v)
}

//go:wasmexport invert
func invert(v uint32) uint32 {
	return boolToU32(exports.Invert(v != 0))
}

//go:wasmexport isOdd
func isOdd(v int64) uint32 {
	return boolToU32(exports.IsOdd(v))
}

//go:wasmexport sqrt
func sqrt(v float32) float32 {
	return exports.Sqrt(v)
}

//go:wasmexport length
func length(x, y float32) float32 {
	return exports.Length(entities.EulerVector{X: x, Y: y})
}

//go:wasmexport toEuler
func toEuler(length, angle float32, out uint32) {
	v := exports.ToEuler(entities.PolarVector{Length: length, Angle: angle})
	copy(memory(out, entities.VectorSize), v.Encode())
}

//go:wasmexport inverse_with_second_array
func inverseWithSecondArray(src, dst, n uint32) {
	exports.ReverseInto(memory(dst, n), memory(src, n))
}

//go:wasmexport inverse_in_place
func inverseInPlace(ptr, n uint32) {
	exports.ReverseInPlace(memory(ptr, n))
}

//go:wasmexport printc
func printc(ptr, n uint32) {
	_ = exports.PrintText(os.Stdout, memory(ptr, n))
}

// formatString returns a packed handle to the formatted number, or 0 when
// the allocation cap is reached. The string is NUL-terminated in memory;
// the packed length excludes the terminator.
//
//go:wasmexport format_string
func formatString(n uint32) uint64 {
	s := exports.FormatNumber(n)
	buf := make([]byte, len(s)+1)
	copy(buf, s)

	ptr := addrOf(buf)
	if err := owned.TrackPinned(uintptr(ptr), len(buf), buf); err != nil {
		slog.Warn("format_string refused", "error", err)
		return 0
	}
	slog.Debug("string allocated", "ptr", ptr, "bytes", len(buf))
	return abi.PackPtrLen(ptr, uint32(len(s)))
}

// freeString releases exactly the string named by packed. Unknown handles
// are ignored, so a double free is harmless.
//
//go:wasmexport free_string
func freeString(packed uint64) {
	ptr := uint32(packed >> abi.PtrHighBits)
	if ptr == 0 {
		return
	}
	size, ok := owned.Release(uintptr(ptr))
	if !ok {
		slog.Warn("free_string: handle not owned by caller, ignoring", "handle", packed)
		return
	}
	slog.Debug("string freed", "ptr", ptr, "bytes", size)
}

//go:wasmexport abi_version
func abiVersion() uint32 {
	return entities.ABIVersion
}

func boolToU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// addrOf returns the linear memory offset of buf's first byte.
func addrOf(buf []byte) uint32 {
	//nolint:gosec // G103: linear memory offsets fit in 32 bits
	return uint32(uintptr(unsafe.Pointer(&buf[0])))
}

// memory views n bytes of linear memory at ptr.
func memory(ptr, n uint32) []byte {
	if n == 0 {
		return nil
	}
	//nolint:gosec // G103: Valid unsafe.Pointer use for WASM linear memory access
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), n)
}

func main() {}
