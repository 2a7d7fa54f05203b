// Command interop loads an interop library and calls every export once.
//
//	interop run [-config file] [-backend native|wasm|inprocess] [-lib path] [-json] [-log-level level]
//	interop schema
//	interop version
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/reglet-dev/interop/application/schema"
	"github.com/reglet-dev/interop/domain/entities"
	"github.com/reglet-dev/interop/host"
	guestlog "github.com/reglet-dev/interop/log"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	switch args[0] {
	case "run":
		return runCmd(ctx, args[1:], stdout, stderr)
	case "schema":
		data, err := schema.HostConfigSchema()
		if err != nil {
			fmt.Fprintf(stderr, "interop: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, string(data))
		return 0
	case "version":
		fmt.Fprintf(stdout, "interop %s (abi %d)\n", version, entities.ABIVersion)
		return 0
	case "-h", "-help", "--help", "help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "interop: unknown command %q\n", args[0])
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: interop run [-config file] [-backend native|wasm|inprocess] [-lib path] [-json] [-log-level level]")
	fmt.Fprintln(w, "       interop schema")
	fmt.Fprintln(w, "       interop version")
}

func runCmd(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a YAML host configuration")
	backend := fs.String("backend", "", "backend: native, wasm or inprocess")
	lib := fs.String("lib", "", "path to the shared library or WASM module")
	asJSON := fs.Bool("json", false, "print the report as JSON")
	logLevel := fs.String("log-level", "", "log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := host.NewConfigLoader().LoadFile(*configPath,
		entities.WithBackend(*backend),
		entities.WithLibrary(*lib),
		entities.WithLogLevel(*logLevel),
		entities.WithJSON(*asJSON),
	)
	if err != nil {
		fmt.Fprintf(stderr, "interop: %v\n", err)
		return 2
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: guestlog.ParseLevel(cfg.LogLevel),
	}))

	// With -json, stdout carries only the report.
	hostOut := stdout
	if cfg.JSON {
		hostOut = stderr
	}

	library, err := host.Open(ctx, cfg,
		host.WithLogger(logger),
		host.WithStdout(hostOut),
		host.WithStderr(stderr),
	)
	if err != nil {
		logger.Error("failed to load library", "backend", cfg.Backend, "library", cfg.Library, "error", err)
		return 1
	}
	defer func() {
		if err := library.Close(ctx); err != nil {
			logger.Warn("failed to close library", "error", err)
		}
	}()

	report, err := host.Run(ctx, library,
		host.WithOutput(hostOut),
		host.WithBackendName(cfg.Backend),
		host.WithLibraryPath(cfg.Library),
	)
	if err != nil {
		logger.Error("run aborted", "error", err)
		return 1
	}

	if cfg.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			logger.Error("failed to encode report", "error", err)
			return 1
		}
	}

	for _, c := range report.Failed() {
		logger.Error("call failed", "export", c.Export, "input", c.Input, "output", c.Output, "status", c.Status)
	}
	logger.Debug("run complete", "calls", len(report.Calls), "status", report.Status, "duration", report.Metadata.Duration)

	if !report.IsSuccess() {
		return 1
	}
	return 0
}
