//go:build cgo

package main

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/reglet-dev/interop/internal/abi"
	"github.com/reglet-dev/interop/log"
)

// Environment variables read when the library is loaded.
const (
	envLogLevel       = "INTEROP_LOG_LEVEL"
	envMaxStringBytes = "INTEROP_MAX_STRING_BYTES"
)

// owned tracks strings handed to the caller and not yet freed.
var owned *abi.Tracker

func init() {
	log.Install(log.WithLevel(log.ParseLevel(os.Getenv(envLogLevel))))

	var opts []abi.Option
	if v := os.Getenv(envMaxStringBytes); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("ignoring invalid string cap", "var", envMaxStringBytes, "value", v)
		} else {
			opts = append(opts, abi.WithMaxTotalAllocations(limit))
		}
	}
	owned = abi.NewTracker(opts...)
}
