package ports

import (
	"context"

	"github.com/reglet-dev/interop/domain/entities"
)

// Library is the host's view of the interop export table.
//
// Each method is one call across the boundary. Buffers are caller-allocated
// and their length travels with the call. Strings produced by the library
// are returned as owned handles: the caller reads a handle with ReadString
// and releases it with exactly one FreeString.
type Library interface {
	// HelloWorld makes the library print its greeting.
	HelloWorld(ctx context.Context) error

	// Square returns v*v with two's-complement wraparound.
	Square(ctx context.Context, v int32) (int32, error)

	// Invert returns the logical negation of v.
	Invert(ctx context.Context, v bool) (bool, error)

	// IsOdd reports whether the least significant bit of v is set.
	IsOdd(ctx context.Context, v int64) (bool, error)

	// Sqrt returns the IEEE-754 square root; NaN for negative input.
	Sqrt(ctx context.Context, v float32) (float32, error)

	// Length returns the Euclidean norm of v, passed by value.
	Length(ctx context.Context, v entities.EulerVector) (float32, error)

	// ToEuler converts v, passed by value, to Cartesian coordinates.
	ToEuler(ctx context.Context, v entities.PolarVector) (entities.EulerVector, error)

	// InverseWithSecondArray writes in reversed into out. in is not modified.
	// out must hold at least len(in) bytes.
	InverseWithSecondArray(ctx context.Context, in, out []byte) error

	// InverseInPlace reverses buf.
	InverseInPlace(ctx context.Context, buf []byte) error

	// PrintC makes the library decode buf as UTF-8 and print it.
	PrintC(ctx context.Context, buf []byte) error

	// FormatString asks the library to render n into a newly allocated
	// string and returns the caller-owned handle.
	FormatString(ctx context.Context, n uint32) (entities.StringHandle, error)

	// ReadString copies the contents of an owned handle.
	ReadString(ctx context.Context, h entities.StringHandle) (string, error)

	// FreeString releases exactly the string named by h.
	FreeString(ctx context.Context, h entities.StringHandle) error

	// ABIVersion returns the ABI version the library was built against.
	ABIVersion(ctx context.Context) (uint32, error)

	// Close releases the library.
	Close(ctx context.Context) error
}

// Loader opens a Library.
type Loader interface {
	// Name identifies the backend (native, wasm, inprocess).
	Name() string

	// Load opens the library at path.
	Load(ctx context.Context, path string) (Library, error)
}
