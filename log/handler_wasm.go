//go:build wasip1

package log

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime"
	"unsafe"

	"github.com/reglet-dev/interop/internal/abi"
)

// host_log_message is provided by the host module registered in host/wasm.go.
//
//go:wasmimport interop_host log_message
//nolint:revive // intentional snake_case to match WASM import convention
func host_log_message(messagePacked uint64)

// Handle serializes a slog.Record and sends it to the host via a host function.
func (h *GuestHandler) Handle(_ context.Context, record slog.Record) error {
	payload, err := json.Marshal(h.wire(record))
	if err != nil {
		fmt.Fprintf(h.opts.writer, "interop: failed to marshal log message for host: %v, original: %s\n", err, record.Message)
		return nil
	}

	// The host copies the payload before returning, so the slice only has
	// to stay reachable for the duration of the call.
	//nolint:gosec // G103: linear memory offsets fit in 32 bits
	ptr := uint32(uintptr(unsafe.Pointer(&payload[0])))
	host_log_message(abi.PackPtrLen(ptr, uint32(len(payload))))
	runtime.KeepAlive(payload)
	return nil
}
