package host

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"unsafe"

	"github.com/jupiterrider/ffi"
	"github.com/reglet-dev/interop/domain/entities"
	ierrors "github.com/reglet-dev/interop/domain/errors"
	"github.com/reglet-dev/interop/domain/ports"
	"github.com/reglet-dev/interop/internal/abi"
)

// Struct descriptors matching euler_vector and polar_vector.
var (
	typeEulerVector = ffi.NewType(&ffi.TypeFloat, &ffi.TypeFloat)
	typePolarVector = ffi.NewType(&ffi.TypeFloat, &ffi.TypeFloat)
)

// typeSize is size_t on the running platform.
var typeSize = func() *ffi.Type {
	if unsafe.Sizeof(uintptr(0)) == 8 {
		return &ffi.TypeUint64
	}
	return &ffi.TypeUint32
}()

type signature struct {
	ret      *ffi.Type
	args     []*ffi.Type
	optional bool
}

// nativeSignatures is the C view of the export table.
var nativeSignatures = map[string]signature{
	"hello_world":               {ret: &ffi.TypeVoid},
	"square":                    {ret: &ffi.TypeSint32, args: []*ffi.Type{&ffi.TypeSint32}},
	"invert":                    {ret: &ffi.TypeUint8, args: []*ffi.Type{&ffi.TypeUint8}},
	"isOdd":                     {ret: &ffi.TypeUint8, args: []*ffi.Type{&ffi.TypeSint64}},
	"sqrt":                      {ret: &ffi.TypeFloat, args: []*ffi.Type{&ffi.TypeFloat}},
	"length":                    {ret: &ffi.TypeFloat, args: []*ffi.Type{&typeEulerVector}},
	"toEuler":                   {ret: &typeEulerVector, args: []*ffi.Type{&typePolarVector}},
	"inverse_with_second_array": {ret: &ffi.TypeVoid, args: []*ffi.Type{&ffi.TypePointer, &ffi.TypePointer, typeSize}},
	"inverse_in_place":          {ret: &ffi.TypeVoid, args: []*ffi.Type{&ffi.TypePointer, typeSize}},
	"printc":                    {ret: &ffi.TypeVoid, args: []*ffi.Type{&ffi.TypePointer, typeSize}},
	"format_string":             {ret: &ffi.TypePointer, args: []*ffi.Type{&ffi.TypeUint32}},
	"free_string":               {ret: &ffi.TypeVoid, args: []*ffi.Type{&ffi.TypePointer}},
	"abi_version":               {ret: &ffi.TypeUint32, optional: true},
}

// maxNativeString bounds the scan for a terminator in format_string results.
const maxNativeString = 1 << 16

// NativeLoader opens the interop library as a C shared library.
type NativeLoader struct {
	cfg loaderConfig
}

// NewNativeLoader creates a loader with the given options.
func NewNativeLoader(opts ...Option) *NativeLoader {
	return &NativeLoader{cfg: newLoaderConfig(opts)}
}

// Name implements ports.Loader.
func (l *NativeLoader) Name() string {
	return entities.BackendNative
}

// Load implements ports.Loader. Every export except abi_version must be
// present.
func (l *NativeLoader) Load(_ context.Context, path string) (ports.Library, error) {
	lib, err := ffi.Load(path)
	if err != nil {
		return nil, &ierrors.LoadError{Backend: entities.BackendNative, Path: path, Err: err}
	}

	fns := make(map[string]ffi.Fun, len(nativeSignatures))
	for name, sig := range nativeSignatures {
		fn, err := lib.Prep(name, sig.ret, sig.args...)
		if err != nil {
			if sig.optional {
				l.cfg.logger.Debug("optional export missing", "export", name, "error", err)
				continue
			}
			_ = lib.Close()
			return nil, &ierrors.SymbolError{Symbol: name, Err: err}
		}
		fns[name] = fn
	}

	return &NativeLibrary{
		lib:     lib,
		path:    path,
		fns:     fns,
		handles: abi.NewTracker(abi.WithMaxTotalAllocations(l.cfg.maxAllocationBytes)),
		logger:  l.cfg.logger,
	}, nil
}

// NativeLibrary is a Library backed by a dlopen'd shared library.
type NativeLibrary struct {
	lib     ffi.Lib
	path    string
	fns     map[string]ffi.Fun
	handles *abi.Tracker
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
}

var _ ports.Library = (*NativeLibrary)(nil)

// fn returns the prepared call interface for an export. The caller holds
// l.mu for reading so Close cannot unload the library mid-call.
func (l *NativeLibrary) fn(name string) (ffi.Fun, error) {
	if l.closed {
		return ffi.Fun{}, ierrors.ErrClosed
	}
	f, ok := l.fns[name]
	if !ok {
		return ffi.Fun{}, &ierrors.SymbolError{Symbol: name}
	}
	return f, nil
}

// call runs one export. Integral returns narrower than a register are
// widened by libffi, so callers pass a uint64 for those.
func (l *NativeLibrary) call(ctx context.Context, name string, ret unsafe.Pointer, args ...unsafe.Pointer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	f, err := l.fn(name)
	if err != nil {
		return err
	}
	callFun(f, ret, args...)
	return nil
}

// callFun invokes a prepared function through its raw call interface.
// Every argument is a pointer to the value being passed.
func callFun(f ffi.Fun, ret unsafe.Pointer, args ...unsafe.Pointer) {
	ffi.Call(f.Cif, f.Addr, ret, args...)
}

// HelloWorld implements ports.Library.
func (l *NativeLibrary) HelloWorld(ctx context.Context) error {
	return l.call(ctx, "hello_world", nil)
}

// Square implements ports.Library.
func (l *NativeLibrary) Square(ctx context.Context, v int32) (int32, error) {
	var ret uint64
	if err := l.call(ctx, "square", unsafe.Pointer(&ret), unsafe.Pointer(&v)); err != nil {
		return 0, err
	}
	return int32(ret), nil
}

// Invert implements ports.Library.
func (l *NativeLibrary) Invert(ctx context.Context, v bool) (bool, error) {
	var ret uint64
	arg := uint8(encodeBool(v))
	if err := l.call(ctx, "invert", unsafe.Pointer(&ret), unsafe.Pointer(&arg)); err != nil {
		return false, err
	}
	return uint8(ret) != 0, nil
}

// IsOdd implements ports.Library.
func (l *NativeLibrary) IsOdd(ctx context.Context, v int64) (bool, error) {
	var ret uint64
	if err := l.call(ctx, "isOdd", unsafe.Pointer(&ret), unsafe.Pointer(&v)); err != nil {
		return false, err
	}
	return uint8(ret) != 0, nil
}

// Sqrt implements ports.Library.
func (l *NativeLibrary) Sqrt(ctx context.Context, v float32) (float32, error) {
	var ret float32
	if err := l.call(ctx, "sqrt", unsafe.Pointer(&ret), unsafe.Pointer(&v)); err != nil {
		return 0, err
	}
	return ret, nil
}

// Length implements ports.Library. v is passed by value as euler_vector.
func (l *NativeLibrary) Length(ctx context.Context, v entities.EulerVector) (float32, error) {
	var ret float32
	if err := l.call(ctx, "length", unsafe.Pointer(&ret), unsafe.Pointer(&v)); err != nil {
		return 0, err
	}
	return ret, nil
}

// ToEuler implements ports.Library. Both vectors cross by value.
func (l *NativeLibrary) ToEuler(ctx context.Context, v entities.PolarVector) (entities.EulerVector, error) {
	var ret entities.EulerVector
	if err := l.call(ctx, "toEuler", unsafe.Pointer(&ret), unsafe.Pointer(&v)); err != nil {
		return entities.EulerVector{}, err
	}
	return ret, nil
}

// InverseWithSecondArray implements ports.Library.
func (l *NativeLibrary) InverseWithSecondArray(ctx context.Context, in, out []byte) error {
	if len(out) < len(in) {
		return &ierrors.BufferError{Export: "inverse_with_second_array", Need: len(in), Have: len(out)}
	}
	if len(in) == 0 {
		return nil
	}

	var pinner runtime.Pinner
	defer pinner.Unpin()
	src, dst := pinned(&pinner, in), pinned(&pinner, out)
	n := uintptr(len(in))

	return l.call(ctx, "inverse_with_second_array", nil,
		unsafe.Pointer(&src), unsafe.Pointer(&dst), unsafe.Pointer(&n))
}

// InverseInPlace implements ports.Library.
func (l *NativeLibrary) InverseInPlace(ctx context.Context, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}

	var pinner runtime.Pinner
	defer pinner.Unpin()
	p := pinned(&pinner, buf)
	n := uintptr(len(buf))

	return l.call(ctx, "inverse_in_place", nil, unsafe.Pointer(&p), unsafe.Pointer(&n))
}

// PrintC implements ports.Library.
func (l *NativeLibrary) PrintC(ctx context.Context, buf []byte) error {
	var pinner runtime.Pinner
	defer pinner.Unpin()
	p := pinned(&pinner, buf)
	n := uintptr(len(buf))

	return l.call(ctx, "printc", nil, unsafe.Pointer(&p), unsafe.Pointer(&n))
}

// FormatString implements ports.Library. The handle is the C pointer.
func (l *NativeLibrary) FormatString(ctx context.Context, n uint32) (entities.StringHandle, error) {
	var ret uintptr
	if err := l.call(ctx, "format_string", unsafe.Pointer(&ret), unsafe.Pointer(&n)); err != nil {
		return 0, err
	}
	if ret == 0 {
		return 0, &ierrors.MemoryError{Op: "format_string", Refused: true}
	}

	size := cStringLen(ret, maxNativeString) + 1
	if err := l.handles.Track(ret, size); err != nil {
		if ferr := l.call(ctx, "free_string", nil, unsafe.Pointer(&ret)); ferr != nil {
			l.logger.Warn("failed to release refused string", "ptr", uint64(ret), "error", ferr)
		}
		return 0, &ierrors.MemoryError{Op: "format_string", Length: uint32(size), Limit: limitOf(err)}
	}
	return entities.StringHandle(ret), nil
}

// ReadString implements ports.Library.
func (l *NativeLibrary) ReadString(_ context.Context, h entities.StringHandle) (string, error) {
	addr := uintptr(h)
	size := l.handles.Size(addr)
	if size == 0 {
		return "", &ierrors.HandleError{Op: "read_string", Handle: h, Err: ierrors.ErrHandleNotOwned}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return "", ierrors.ErrClosed
	}
	//nolint:govet // addr is C heap memory owned by the caller until free_string
	return string(unsafe.Slice((*byte)(unsafe.Pointer(addr)), size-1)), nil
}

// FreeString implements ports.Library.
func (l *NativeLibrary) FreeString(ctx context.Context, h entities.StringHandle) error {
	addr := uintptr(h)
	if _, ok := l.handles.Release(addr); !ok {
		return &ierrors.HandleError{Op: "free_string", Handle: h, Err: ierrors.ErrHandleNotOwned}
	}
	return l.call(ctx, "free_string", nil, unsafe.Pointer(&addr))
}

// ABIVersion implements ports.Library.
func (l *NativeLibrary) ABIVersion(ctx context.Context) (uint32, error) {
	var ret uint64
	if err := l.call(ctx, "abi_version", unsafe.Pointer(&ret)); err != nil {
		return 0, err
	}
	return uint32(ret), nil
}

// Close frees outstanding strings and unloads the library.
func (l *NativeLibrary) Close(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}

	if free, ok := l.fns["free_string"]; ok {
		for _, addr := range l.handles.Drain() {
			callFun(free, nil, unsafe.Pointer(&addr))
		}
	}
	l.closed = true
	if err := l.lib.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", l.path, err)
	}
	return nil
}

// Outstanding returns the number of string handles not yet freed.
func (l *NativeLibrary) Outstanding() int {
	n, _ := l.handles.Stats()
	return n
}

// pinned pins buf for the duration of a foreign call and returns its data
// pointer, or nil for an empty buffer.
func pinned(p *runtime.Pinner, buf []byte) unsafe.Pointer {
	if len(buf) == 0 {
		return nil
	}
	p.Pin(&buf[0])
	return unsafe.Pointer(&buf[0])
}

// cStringLen returns the length of the NUL-terminated string at addr,
// scanning at most limit bytes.
func cStringLen(addr uintptr, limit int) int {
	//nolint:govet // addr is C heap memory returned by format_string
	base := unsafe.Pointer(addr)
	for n := 0; n < limit; n++ {
		if *(*byte)(unsafe.Add(base, n)) == 0 {
			return n
		}
	}
	return limit
}
