//go:build cgo

// Command libinterop builds the interop export table as a C shared library:
//
//	go build -buildmode=c-shared -o libinterop.so ./cmd/libinterop
//
// The generated libinterop.h declares every export. Strings returned by
// format_string are owned by the caller and must be passed back to
// free_string exactly once.
//
// The sqrt export has the same name as the C library's sqrt, so gcc warns
// with -Wbuiltin-declaration-mismatch on every build. The name is part of
// the ABI; load the library with local symbol binding so it does not
// replace libm's sqrt for other code.
package main

/*
#include <stdbool.h>
#include <stdint.h>
#include <stdlib.h>

typedef struct {
	float x;
	float y;
} euler_vector;

typedef struct {
	float length;
	float angle;
} polar_vector;
*/
import "C"

import (
	"log/slog"
	"os"
	"unsafe"

	"github.com/reglet-dev/interop/domain/entities"
	"github.com/reglet-dev/interop/exports"
)

//export hello_world
func hello_world() {
	_ = exports.HelloWorld(os.Stdout)
}

//export square
func square(v C.int32_t) C.int32_t {
	return C.int32_t(exports.Square(int32(v)))
}

//export invert
func invert(v C.bool) C.bool {
	return C.bool(exports.Invert(bool(v)))
}

//export isOdd
func isOdd(v C.int64_t) C.bool {
	return C.bool(exports.IsOdd(int64(v)))
}

//export sqrt
func sqrt(v C.float) C.float {
	return C.float(exports.Sqrt(float32(v)))
}

//export length
func length(v C.euler_vector) C.float {
	return C.float(exports.Length(entities.EulerVector{X: float32(v.x), Y: float32(v.y)}))
}

//export toEuler
func toEuler(v C.polar_vector) C.euler_vector {
	e := exports.ToEuler(entities.PolarVector{Length: float32(v.length), Angle: float32(v.angle)})
	return C.euler_vector{x: C.float(e.X), y: C.float(e.Y)}
}

// inverse_with_second_array writes n bytes of src reversed into dst.
// dst must hold at least n bytes.
//
//export inverse_with_second_array
func inverse_with_second_array(src, dst *C.uint8_t, n C.size_t) {
	if n == 0 {
		return
	}
	exports.ReverseInto(bytesAt(dst, n), bytesAt(src, n))
}

//export inverse_in_place
func inverse_in_place(buf *C.uint8_t, n C.size_t) {
	if n == 0 {
		return
	}
	exports.ReverseInPlace(bytesAt(buf, n))
}

//export printc
func printc(buf *C.uint8_t, n C.size_t) {
	var text []byte
	if n > 0 {
		text = bytesAt(buf, n)
	}
	_ = exports.PrintText(os.Stdout, text)
}

// format_string returns a malloc'd, NUL-terminated rendition of n, or NULL
// when the outstanding-string cap is reached.
//
//export format_string
func format_string(n C.uint32_t) *C.char {
	s := exports.FormatNumber(uint32(n))
	size := len(s) + 1
	if err := owned.Reserve(size); err != nil {
		slog.Warn("format_string refused", "error", err)
		return nil
	}

	p := C.CString(s)
	if err := owned.Track(uintptr(unsafe.Pointer(p)), size); err != nil {
		C.free(unsafe.Pointer(p))
		slog.Warn("format_string refused", "error", err)
		return nil
	}
	return p
}

// free_string releases a string returned by format_string. Pointers this
// library does not own are ignored, so a double free is harmless.
//
//export free_string
func free_string(p *C.char) {
	if p == nil {
		return
	}
	addr := uintptr(unsafe.Pointer(p))
	if _, ok := owned.Release(addr); !ok {
		slog.Warn("free_string: pointer not owned by caller, ignoring", "ptr", uint64(addr))
		return
	}
	C.free(unsafe.Pointer(p))
}

//export abi_version
func abi_version() C.uint32_t {
	return C.uint32_t(entities.ABIVersion)
}

func bytesAt(p *C.uint8_t, n C.size_t) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), int(n))
}

func main() {}
