package host

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/reglet-dev/interop/domain/entities"
	ierrors "github.com/reglet-dev/interop/domain/errors"
	"github.com/reglet-dev/interop/domain/ports"
	"github.com/reglet-dev/interop/exports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkLibrary exercises every export of lib against known answers. It is
// shared by the backend tests.
func checkLibrary(t *testing.T, lib ports.Library) {
	t.Helper()
	ctx := context.Background()

	sq, err := lib.Square(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, int32(400), sq)

	sq, err = lib.Square(ctx, 46341)
	require.NoError(t, err)
	assert.Equal(t, int32(-2147479015), sq)

	inv, err := lib.Invert(ctx, false)
	require.NoError(t, err)
	assert.True(t, inv)

	odd, err := lib.IsOdd(ctx, -3)
	require.NoError(t, err)
	assert.True(t, odd)
	odd, err = lib.IsOdd(ctx, 1<<40)
	require.NoError(t, err)
	assert.False(t, odd)

	root, err := lib.Sqrt(ctx, 6.25)
	require.NoError(t, err)
	assert.Equal(t, float32(2.5), root)
	root, err = lib.Sqrt(ctx, -1)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(float64(root)))

	l, err := lib.Length(ctx, entities.EulerVector{X: 3, Y: 4})
	require.NoError(t, err)
	assert.Equal(t, float32(5), l)

	e, err := lib.ToEuler(ctx, entities.PolarVector{Length: 5, Angle: math.Pi / 4})
	require.NoError(t, err)
	assert.InDelta(t, 3.5355, e.X, 1e-3)
	assert.InDelta(t, 3.5355, e.Y, 1e-3)

	in := []byte{1, 2, 3, 4, 5}
	out := make([]byte, 5)
	require.NoError(t, lib.InverseWithSecondArray(ctx, in, out))
	assert.Equal(t, []byte{5, 4, 3, 2, 1}, out)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, in)

	err = lib.InverseWithSecondArray(ctx, in, make([]byte, 2))
	var be *ierrors.BufferError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, 5, be.Need)
	assert.Equal(t, 2, be.Have)

	require.NoError(t, lib.InverseWithSecondArray(ctx, nil, nil))

	buf := []byte{9, 8, 7}
	require.NoError(t, lib.InverseInPlace(ctx, buf))
	assert.Equal(t, []byte{7, 8, 9}, buf)
	require.NoError(t, lib.InverseInPlace(ctx, buf))
	assert.Equal(t, []byte{9, 8, 7}, buf)
	require.NoError(t, lib.InverseInPlace(ctx, nil))

	s, err := FormatString(ctx, lib, 42)
	require.NoError(t, err)
	assert.Equal(t, "The number is 42 äöü 😎", s)
	for _, n := range []uint32{0, math.MaxUint32} {
		s, err := FormatString(ctx, lib, n)
		require.NoError(t, err)
		assert.Equal(t, []byte(exports.FormatNumber(n)), []byte(s))
	}

	_, err = lib.ReadString(ctx, entities.StringHandle(0xdead<<32|4))
	assert.ErrorIs(t, err, ierrors.ErrHandleNotOwned)
	err = lib.FreeString(ctx, entities.StringHandle(0xdead<<32|4))
	assert.ErrorIs(t, err, ierrors.ErrHandleNotOwned)
}

func TestInProcessLibrary(t *testing.T) {
	var out bytes.Buffer
	lib := NewInProcessLibrary(&out)
	defer lib.Close(context.Background())

	checkLibrary(t, lib)

	ctx := context.Background()
	require.NoError(t, lib.HelloWorld(ctx))
	require.NoError(t, lib.PrintC(ctx, []byte{'o', 'k', 0xff}))
	require.NoError(t, lib.PrintC(ctx, nil))
	assert.Equal(t, "Hello from Go 😎\nok�\n\n", out.String())
}

func TestInProcessLibrary_AllocationCap(t *testing.T) {
	ctx := context.Background()
	lib := NewInProcessLibrary(&bytes.Buffer{}, WithMaxAllocationBytes(40))

	h, err := lib.FormatString(ctx, 1) // 27 bytes plus terminator
	require.NoError(t, err)

	_, err = lib.FormatString(ctx, 2)
	var me *ierrors.MemoryError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, 40, me.Limit)

	require.NoError(t, lib.FreeString(ctx, h))
	_, err = lib.FormatString(ctx, 2)
	assert.NoError(t, err)
}

func TestInProcessLibrary_Closed(t *testing.T) {
	ctx := context.Background()
	lib := NewInProcessLibrary(&bytes.Buffer{})
	h, err := lib.FormatString(ctx, 3)
	require.NoError(t, err)

	require.NoError(t, lib.Close(ctx))
	require.NoError(t, lib.Close(ctx))

	_, err = lib.Square(ctx, 2)
	assert.ErrorIs(t, err, ierrors.ErrClosed)
	assert.Zero(t, lib.Outstanding())
	assert.ErrorIs(t, lib.FreeString(ctx, h), ierrors.ErrHandleNotOwned)
}

func TestInProcessLibrary_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewInProcessLibrary(&bytes.Buffer{}).Square(ctx, 2)
	assert.ErrorIs(t, err, context.Canceled)
}
