//go:build !wasip1

package log

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// writeMu serializes writes from all handlers sharing a writer.
var writeMu sync.Mutex

// Handle writes the record as one JSON line to the configured writer.
func (h *GuestHandler) Handle(_ context.Context, record slog.Record) error {
	line, err := json.Marshal(h.wire(record))
	if err != nil {
		return err
	}
	line = append(line, '\n')

	writeMu.Lock()
	defer writeMu.Unlock()
	_, err = h.opts.writer.Write(line)
	return err
}
