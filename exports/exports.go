// Package exports implements the interop export table in plain Go.
//
// The C shim (cmd/libinterop) and the WASM shim (cmd/interop-wasm) only
// convert boundary types and delegate here, so both libraries share one
// definition of every operation.
package exports

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/reglet-dev/interop/domain/entities"
)

// HelloMessage is printed by hello_world.
const HelloMessage = "Hello from Go 😎"

// Text around the number in strings returned by format_string. The suffix
// keeps multi-byte UTF-8 in every string the library hands out.
const (
	FormatPrefix = "The number is "
	FormatSuffix = " äöü 😎"
)

// HelloWorld writes the fixed greeting followed by a newline.
func HelloWorld(w io.Writer) error {
	_, err := fmt.Fprintln(w, HelloMessage)
	return err
}

// Square returns n*n with two's-complement wraparound on overflow.
func Square(n int32) int32 {
	return n * n
}

// SquareChecked returns Square(n) and whether the true product overflowed int32.
func SquareChecked(n int32) (int32, bool) {
	wide := int64(n) * int64(n)
	return int32(wide), wide > math.MaxInt32
}

// Invert returns the logical negation of b.
func Invert(b bool) bool {
	return !b
}

// IsOdd reports whether the least significant bit of n is set.
func IsOdd(n int64) bool {
	return n&1 == 1
}

// Sqrt returns the IEEE-754 square root of f; negative input yields NaN.
func Sqrt(f float32) float32 {
	return float32(math.Sqrt(float64(f)))
}

// Length returns the Euclidean norm of v.
func Length(v entities.EulerVector) float32 {
	return float32(math.Hypot(float64(v.X), float64(v.Y)))
}

// ToEuler converts a polar vector to Cartesian coordinates.
func ToEuler(v entities.PolarVector) entities.EulerVector {
	sin, cos := math.Sincos(float64(v.Angle))
	return entities.EulerVector{
		X: v.Length * float32(cos),
		Y: v.Length * float32(sin),
	}
}

// ReverseInto writes src reversed into the first len(src) bytes of dst.
// src is not modified. It returns false without writing when dst is
// shorter than src.
func ReverseInto(dst, src []byte) bool {
	if len(dst) < len(src) {
		return false
	}
	n := len(src)
	for i, b := range src {
		dst[n-1-i] = b
	}
	return true
}

// ReverseInPlace reverses buf. Applying it twice restores the original order.
func ReverseInPlace(buf []byte) {
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
}

// DecodeText decodes buf as UTF-8. Invalid sequences become U+FFFD; valid
// multi-byte sequences are kept intact.
func DecodeText(buf []byte) string {
	return strings.ToValidUTF8(string(buf), "�")
}

// PrintText writes the decoded text of buf followed by a newline.
func PrintText(w io.Writer, buf []byte) error {
	_, err := fmt.Fprintln(w, DecodeText(buf))
	return err
}

// FormatNumber renders n as returned by format_string.
func FormatNumber(n uint32) string {
	return FormatPrefix + strconv.FormatUint(uint64(n), 10) + FormatSuffix
}
