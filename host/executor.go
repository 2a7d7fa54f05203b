package host

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/reglet-dev/interop/domain/entities"
	ierrors "github.com/reglet-dev/interop/domain/errors"
	"github.com/reglet-dev/interop/domain/ports"
	"github.com/reglet-dev/interop/internal/abi"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// WasmLoader instantiates the WASI build of the interop library.
type WasmLoader struct {
	cfg loaderConfig
}

// NewWasmLoader creates a loader with the given options.
func NewWasmLoader(opts ...Option) *WasmLoader {
	return &WasmLoader{cfg: newLoaderConfig(opts)}
}

// Name implements ports.Loader.
func (l *WasmLoader) Name() string {
	return entities.BackendWasm
}

// Load implements ports.Loader.
func (l *WasmLoader) Load(ctx context.Context, path string) (ports.Library, error) {
	wasmBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, &ierrors.LoadError{Backend: entities.BackendWasm, Path: path, Err: err}
	}
	return l.LoadBytes(ctx, path, wasmBytes)
}

// LoadBytes instantiates a module from memory. name is used in errors only.
func (l *WasmLoader) LoadBytes(ctx context.Context, name string, wasmBytes []byte) (*WasmLibrary, error) {
	loadErr := func(err error) error {
		return &ierrors.LoadError{Backend: entities.BackendWasm, Path: name, Err: err}
	}

	rt := wazero.NewRuntime(ctx)
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)

	if err := registerHostFunctions(ctx, rt, l.cfg.logger); err != nil {
		rt.Close(ctx)
		return nil, loadErr(fmt.Errorf("failed to register host functions: %w", err))
	}

	modCfg := wazero.NewModuleConfig().
		WithName("interop").
		WithStdout(l.cfg.stdout).
		WithStderr(l.cfg.stderr)

	mod, err := rt.InstantiateWithConfig(ctx, wasmBytes, modCfg)
	if err != nil {
		rt.Close(ctx)
		return nil, loadErr(fmt.Errorf("failed to instantiate module: %w", err))
	}

	// Reactors built with -buildmode=c-shared run package init here.
	if init := mod.ExportedFunction("_initialize"); init != nil {
		if _, err := init.Call(ctx); err != nil {
			rt.Close(ctx)
			return nil, loadErr(fmt.Errorf("failed to call _initialize: %w", err))
		}
	}

	for _, name := range requiredExports {
		if mod.ExportedFunction(name) == nil {
			rt.Close(ctx)
			return nil, &ierrors.SymbolError{Symbol: name}
		}
	}

	return &WasmLibrary{
		runtime: rt,
		module:  mod,
		handles: abi.NewTracker(abi.WithMaxTotalAllocations(l.cfg.maxAllocationBytes)),
		logger:  l.cfg.logger,
	}, nil
}

// requiredExports must be present in every WASM build of the library.
var requiredExports = []string{
	"allocate", "deallocate",
	"hello_world", "square", "invert", "isOdd", "sqrt", "length", "toEuler",
	"inverse_with_second_array", "inverse_in_place", "printc",
	"format_string", "free_string",
}

// WasmLibrary is a Library backed by a wazero module instance.
// Calls are serialized: a module instance runs one call at a time.
type WasmLibrary struct {
	runtime wazero.Runtime
	module  api.Module
	handles *abi.Tracker
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

var _ ports.Library = (*WasmLibrary)(nil)

// HelloWorld implements ports.Library.
func (l *WasmLibrary) HelloWorld(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.invoke(ctx, "hello_world")
	return err
}

// Square implements ports.Library.
func (l *WasmLibrary) Square(ctx context.Context, v int32) (int32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	res, err := l.invoke(ctx, "square", api.EncodeI32(v))
	if err != nil {
		return 0, err
	}
	return api.DecodeI32(res[0]), nil
}

// Invert implements ports.Library.
func (l *WasmLibrary) Invert(ctx context.Context, v bool) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	res, err := l.invoke(ctx, "invert", encodeBool(v))
	if err != nil {
		return false, err
	}
	return uint32(res[0]) != 0, nil
}

// IsOdd implements ports.Library.
func (l *WasmLibrary) IsOdd(ctx context.Context, v int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	res, err := l.invoke(ctx, "isOdd", api.EncodeI64(v))
	if err != nil {
		return false, err
	}
	return uint32(res[0]) != 0, nil
}

// Sqrt implements ports.Library.
func (l *WasmLibrary) Sqrt(ctx context.Context, v float32) (float32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	res, err := l.invoke(ctx, "sqrt", api.EncodeF32(v))
	if err != nil {
		return 0, err
	}
	return api.DecodeF32(res[0]), nil
}

// Length implements ports.Library.
func (l *WasmLibrary) Length(ctx context.Context, v entities.EulerVector) (float32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	res, err := l.invoke(ctx, "length", api.EncodeF32(v.X), api.EncodeF32(v.Y))
	if err != nil {
		return 0, err
	}
	return api.DecodeF32(res[0]), nil
}

// ToEuler implements ports.Library.
func (l *WasmLibrary) ToEuler(ctx context.Context, v entities.PolarVector) (entities.EulerVector, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out, err := l.allocate(ctx, entities.VectorSize)
	if err != nil {
		return entities.EulerVector{}, err
	}
	defer l.deallocate(ctx, out, entities.VectorSize)

	if _, err := l.invoke(ctx, "toEuler", api.EncodeF32(v.Length), api.EncodeF32(v.Angle), uint64(out)); err != nil {
		return entities.EulerVector{}, err
	}
	raw, err := l.read(out, entities.VectorSize)
	if err != nil {
		return entities.EulerVector{}, err
	}
	return entities.DecodeEulerVector(raw)
}

// InverseWithSecondArray implements ports.Library.
func (l *WasmLibrary) InverseWithSecondArray(ctx context.Context, in, out []byte) error {
	if len(out) < len(in) {
		return &ierrors.BufferError{Export: "inverse_with_second_array", Need: len(in), Have: len(out)}
	}
	if len(in) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	n := uint32(len(in))
	src, err := l.writeNew(ctx, in)
	if err != nil {
		return err
	}
	defer l.deallocate(ctx, src, n)

	dst, err := l.allocate(ctx, n)
	if err != nil {
		return err
	}
	defer l.deallocate(ctx, dst, n)

	if _, err := l.invoke(ctx, "inverse_with_second_array", uint64(src), uint64(dst), uint64(n)); err != nil {
		return err
	}
	reversed, err := l.read(dst, n)
	if err != nil {
		return err
	}
	copy(out, reversed)
	return nil
}

// InverseInPlace implements ports.Library.
func (l *WasmLibrary) InverseInPlace(ctx context.Context, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	n := uint32(len(buf))
	ptr, err := l.writeNew(ctx, buf)
	if err != nil {
		return err
	}
	defer l.deallocate(ctx, ptr, n)

	if _, err := l.invoke(ctx, "inverse_in_place", uint64(ptr), uint64(n)); err != nil {
		return err
	}
	reversed, err := l.read(ptr, n)
	if err != nil {
		return err
	}
	copy(buf, reversed)
	return nil
}

// PrintC implements ports.Library.
func (l *WasmLibrary) PrintC(ctx context.Context, buf []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(buf) == 0 {
		_, err := l.invoke(ctx, "printc", 0, 0)
		return err
	}

	n := uint32(len(buf))
	ptr, err := l.writeNew(ctx, buf)
	if err != nil {
		return err
	}
	defer l.deallocate(ctx, ptr, n)

	_, err = l.invoke(ctx, "printc", uint64(ptr), uint64(n))
	return err
}

// FormatString implements ports.Library. The returned handle is the packed
// ptr<<32|len value produced by the guest.
func (l *WasmLibrary) FormatString(ctx context.Context, n uint32) (entities.StringHandle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	res, err := l.invoke(ctx, "format_string", uint64(n))
	if err != nil {
		return 0, err
	}
	packed := res[0]
	ptr, length := uint32(packed>>abi.PtrHighBits), uint32(packed)
	if ptr == 0 {
		return 0, &ierrors.MemoryError{Op: "format_string", Refused: true}
	}

	// Count the terminator as the other backends do.
	if err := l.handles.Track(uintptr(ptr), int(length)+1); err != nil {
		if _, ferr := l.invoke(ctx, "free_string", packed); ferr != nil {
			l.logger.Warn("failed to release refused string", "handle", packed, "error", ferr)
		}
		return 0, &ierrors.MemoryError{Op: "format_string", Length: length + 1, Limit: limitOf(err)}
	}
	return entities.StringHandle(packed), nil
}

// ReadString implements ports.Library.
func (l *WasmLibrary) ReadString(_ context.Context, h entities.StringHandle) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ptr, length := uint32(uint64(h)>>abi.PtrHighBits), uint32(h)
	if ptr == 0 || !l.handles.Owns(uintptr(ptr)) {
		return "", &ierrors.HandleError{Op: "read_string", Handle: h, Err: ierrors.ErrHandleNotOwned}
	}
	raw, err := l.read(ptr, length)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// FreeString implements ports.Library.
func (l *WasmLibrary) FreeString(ctx context.Context, h entities.StringHandle) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ptr := uint32(uint64(h) >> abi.PtrHighBits)
	if _, ok := l.handles.Release(uintptr(ptr)); !ok {
		return &ierrors.HandleError{Op: "free_string", Handle: h, Err: ierrors.ErrHandleNotOwned}
	}
	_, err := l.invoke(ctx, "free_string", uint64(h))
	return err
}

// ABIVersion implements ports.Library.
func (l *WasmLibrary) ABIVersion(ctx context.Context) (uint32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	res, err := l.invoke(ctx, "abi_version")
	if err != nil {
		return 0, err
	}
	return uint32(res[0]), nil
}

// Close releases the runtime. Outstanding handles become invalid.
func (l *WasmLibrary) Close(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.handles.Drain()
	return l.runtime.Close(ctx)
}

// Outstanding returns the number of string handles not yet freed.
func (l *WasmLibrary) Outstanding() int {
	n, _ := l.handles.Stats()
	return n
}

func encodeBool(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
