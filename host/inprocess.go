package host

import (
	"context"
	"io"
	"sync"

	"github.com/reglet-dev/interop/domain/entities"
	ierrors "github.com/reglet-dev/interop/domain/errors"
	"github.com/reglet-dev/interop/domain/ports"
	"github.com/reglet-dev/interop/exports"
	"github.com/reglet-dev/interop/internal/abi"
)

// InProcessLoader serves the export table from the exports package without
// crossing a boundary. It is the reference the other backends are compared
// against.
type InProcessLoader struct {
	cfg loaderConfig
}

// NewInProcessLoader creates a loader with the given options.
func NewInProcessLoader(opts ...Option) *InProcessLoader {
	return &InProcessLoader{cfg: newLoaderConfig(opts)}
}

// Name implements ports.Loader.
func (l *InProcessLoader) Name() string {
	return entities.BackendInProcess
}

// Load implements ports.Loader. path is ignored.
func (l *InProcessLoader) Load(_ context.Context, _ string) (ports.Library, error) {
	return NewInProcessLibrary(l.cfg.stdout, WithMaxAllocationBytes(l.cfg.maxAllocationBytes)), nil
}

// InProcessLibrary is a Library implemented directly in Go.
// Handles are synthetic and follow the same ownership rules as the
// foreign backends.
type InProcessLibrary struct {
	stdout  io.Writer
	handles *abi.Tracker

	mu      sync.Mutex
	strings map[entities.StringHandle]string
	next    entities.StringHandle
	closed  bool
}

var _ ports.Library = (*InProcessLibrary)(nil)

// NewInProcessLibrary creates a library that prints to stdout.
// Only WithMaxAllocationBytes is honored from opts.
func NewInProcessLibrary(stdout io.Writer, opts ...Option) *InProcessLibrary {
	cfg := newLoaderConfig(opts)
	return &InProcessLibrary{
		stdout:  stdout,
		handles: abi.NewTracker(abi.WithMaxTotalAllocations(cfg.maxAllocationBytes)),
		strings: make(map[entities.StringHandle]string),
		next:    0x1000,
	}
}

func (l *InProcessLibrary) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ierrors.ErrClosed
	}
	return nil
}

// HelloWorld implements ports.Library.
func (l *InProcessLibrary) HelloWorld(ctx context.Context) error {
	if err := l.check(ctx); err != nil {
		return err
	}
	return exports.HelloWorld(l.stdout)
}

// Square implements ports.Library.
func (l *InProcessLibrary) Square(ctx context.Context, v int32) (int32, error) {
	if err := l.check(ctx); err != nil {
		return 0, err
	}
	return exports.Square(v), nil
}

// Invert implements ports.Library.
func (l *InProcessLibrary) Invert(ctx context.Context, v bool) (bool, error) {
	if err := l.check(ctx); err != nil {
		return false, err
	}
	return exports.Invert(v), nil
}

// IsOdd implements ports.Library.
func (l *InProcessLibrary) IsOdd(ctx context.Context, v int64) (bool, error) {
	if err := l.check(ctx); err != nil {
		return false, err
	}
	return exports.IsOdd(v), nil
}

// Sqrt implements ports.Library.
func (l *InProcessLibrary) Sqrt(ctx context.Context, v float32) (float32, error) {
	if err := l.check(ctx); err != nil {
		return 0, err
	}
	return exports.Sqrt(v), nil
}

// Length implements ports.Library.
func (l *InProcessLibrary) Length(ctx context.Context, v entities.EulerVector) (float32, error) {
	if err := l.check(ctx); err != nil {
		return 0, err
	}
	return exports.Length(v), nil
}

// ToEuler implements ports.Library.
func (l *InProcessLibrary) ToEuler(ctx context.Context, v entities.PolarVector) (entities.EulerVector, error) {
	if err := l.check(ctx); err != nil {
		return entities.EulerVector{}, err
	}
	return exports.ToEuler(v), nil
}

// InverseWithSecondArray implements ports.Library.
func (l *InProcessLibrary) InverseWithSecondArray(ctx context.Context, in, out []byte) error {
	if err := l.check(ctx); err != nil {
		return err
	}
	if !exports.ReverseInto(out, in) {
		return &ierrors.BufferError{Export: "inverse_with_second_array", Need: len(in), Have: len(out)}
	}
	return nil
}

// InverseInPlace implements ports.Library.
func (l *InProcessLibrary) InverseInPlace(ctx context.Context, buf []byte) error {
	if err := l.check(ctx); err != nil {
		return err
	}
	exports.ReverseInPlace(buf)
	return nil
}

// PrintC implements ports.Library.
func (l *InProcessLibrary) PrintC(ctx context.Context, buf []byte) error {
	if err := l.check(ctx); err != nil {
		return err
	}
	return exports.PrintText(l.stdout, buf)
}

// FormatString implements ports.Library.
func (l *InProcessLibrary) FormatString(ctx context.Context, n uint32) (entities.StringHandle, error) {
	if err := l.check(ctx); err != nil {
		return 0, err
	}
	s := exports.FormatNumber(n)

	l.mu.Lock()
	defer l.mu.Unlock()
	h := l.next
	if err := l.handles.Track(uintptr(h), len(s)+1); err != nil {
		return 0, &ierrors.MemoryError{Op: "format_string", Length: uint32(len(s) + 1), Limit: limitOf(err)}
	}
	l.next++
	l.strings[h] = s
	return h, nil
}

// ReadString implements ports.Library.
func (l *InProcessLibrary) ReadString(_ context.Context, h entities.StringHandle) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.strings[h]
	if !ok {
		return "", &ierrors.HandleError{Op: "read_string", Handle: h, Err: ierrors.ErrHandleNotOwned}
	}
	return s, nil
}

// FreeString implements ports.Library.
func (l *InProcessLibrary) FreeString(_ context.Context, h entities.StringHandle) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.handles.Release(uintptr(h)); !ok {
		return &ierrors.HandleError{Op: "free_string", Handle: h, Err: ierrors.ErrHandleNotOwned}
	}
	delete(l.strings, h)
	return nil
}

// ABIVersion implements ports.Library.
func (l *InProcessLibrary) ABIVersion(ctx context.Context) (uint32, error) {
	if err := l.check(ctx); err != nil {
		return 0, err
	}
	return entities.ABIVersion, nil
}

// Close implements ports.Library.
func (l *InProcessLibrary) Close(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.handles.Drain()
	clear(l.strings)
	return nil
}

// Outstanding returns the number of string handles not yet freed.
func (l *InProcessLibrary) Outstanding() int {
	n, _ := l.handles.Stats()
	return n
}
