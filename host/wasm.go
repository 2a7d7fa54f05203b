package host

import (
	"context"
	"errors"
	"log/slog"

	"github.com/reglet-dev/interop/domain/entities"
	ierrors "github.com/reglet-dev/interop/domain/errors"
	"github.com/reglet-dev/interop/internal/abi"
	guestlog "github.com/reglet-dev/interop/log"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// hostModule is the import module name the guest links against.
const hostModule = "interop_host"

func registerHostFunctions(ctx context.Context, rt wazero.Runtime, logger *slog.Logger) error {
	libLogger := logger.With("library", entities.BackendWasm)

	_, err := rt.NewHostModuleBuilder(hostModule).
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, packed uint64) {
			ptr, length := uint32(packed>>abi.PtrHighBits), uint32(packed)
			payload, ok := m.Memory().Read(ptr, length)
			if !ok {
				libLogger.Warn("log_message out of range", "ptr", ptr, "len", length)
				return
			}
			guestlog.Replay(ctx, libLogger, payload)
		}).
		Export("log_message").
		Instantiate(ctx)
	return err
}

// invoke calls an export. The caller holds l.mu.
func (l *WasmLibrary) invoke(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	if l.closed {
		return nil, ierrors.ErrClosed
	}
	f := l.module.ExportedFunction(name)
	if f == nil {
		return nil, &ierrors.SymbolError{Symbol: name}
	}
	results, err := f.Call(ctx, params...)
	if err != nil {
		return nil, &ierrors.CallError{Export: name, Err: err}
	}
	return results, nil
}

// allocate reserves n bytes of guest memory.
func (l *WasmLibrary) allocate(ctx context.Context, n uint32) (uint32, error) {
	res, err := l.invoke(ctx, "allocate", uint64(n))
	if err != nil {
		return 0, err
	}
	if len(res) == 0 || uint32(res[0]) == 0 {
		return 0, &ierrors.MemoryError{Op: "allocate", Length: n}
	}
	return uint32(res[0]), nil
}

// deallocate returns guest memory; failures are logged since the buffer
// has already served its purpose.
func (l *WasmLibrary) deallocate(ctx context.Context, ptr, n uint32) {
	if _, err := l.invoke(ctx, "deallocate", uint64(ptr), uint64(n)); err != nil {
		l.logger.Warn("failed to deallocate guest memory", "ptr", ptr, "len", n, "error", err)
	}
}

// writeNew allocates guest memory and copies data into it.
func (l *WasmLibrary) writeNew(ctx context.Context, data []byte) (uint32, error) {
	n := uint32(len(data))
	ptr, err := l.allocate(ctx, n)
	if err != nil {
		return 0, err
	}
	if !l.module.Memory().Write(ptr, data) {
		l.deallocate(ctx, ptr, n)
		return 0, &ierrors.MemoryError{Op: "write", Offset: ptr, Length: n}
	}
	return ptr, nil
}

// read copies n bytes out of guest memory.
func (l *WasmLibrary) read(ptr, n uint32) ([]byte, error) {
	data, ok := l.module.Memory().Read(ptr, n)
	if !ok {
		return nil, &ierrors.MemoryError{Op: "read", Offset: ptr, Length: n}
	}
	out := make([]byte, n)
	copy(out, data)
	return out, nil
}

func limitOf(err error) int {
	var le *abi.LimitError
	if errors.As(err, &le) {
		return le.Limit
	}
	return 0
}
