package host

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/reglet-dev/interop/domain/entities"
	ierrors "github.com/reglet-dev/interop/domain/errors"
	"github.com/reglet-dev/interop/domain/ports"
	"github.com/reglet-dev/interop/exports"
)

// HostGreeting is printed before the library's greeting.
const HostGreeting = "Hello from the host!"

// SampleText is the string sent through printc.
const SampleText = "This is a test äöü 😎"

// eulerTolerance bounds the error accepted from toEuler.
const eulerTolerance = 1e-4

// RunOption configures Run.
type RunOption func(*runConfig)

type runConfig struct {
	out     io.Writer
	backend string
	library string
}

// WithOutput sets where the host's own lines are printed.
func WithOutput(w io.Writer) RunOption {
	return func(c *runConfig) {
		c.out = w
	}
}

// WithBackendName records the backend in the report.
func WithBackendName(name string) RunOption {
	return func(c *runConfig) {
		c.backend = name
	}
}

// WithLibraryPath records the library path in the report metadata.
func WithLibraryPath(path string) RunOption {
	return func(c *runConfig) {
		c.library = path
	}
}

// Run calls every export once, in table order, prints what it sees and
// returns a report comparing each result with the reference in exports.
//
// A failed call does not stop the run. The returned error is non-nil only
// when the host itself cannot proceed, such as a layout mismatch.
func Run(ctx context.Context, lib ports.Library, opts ...RunOption) (*entities.Report, error) {
	cfg := runConfig{out: os.Stdout}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := VerifyLayout(); err != nil {
		return nil, err
	}

	start := time.Now()
	r := &runner{lib: lib, out: cfg.out, report: &entities.Report{
		Backend: cfg.backend,
		Status:  entities.ResultStatusSuccess,
	}}

	r.abiVersion(ctx)
	r.helloWorld(ctx)
	r.square(ctx, 20)
	r.square(ctx, math.MaxInt32)
	r.invert(ctx, true)
	r.isOdd(ctx, (1<<40)+1)
	r.sqrt(ctx, 6.25)
	r.sqrt(ctx, -1)
	r.length(ctx, entities.EulerVector{X: 3, Y: 4})
	r.toEuler(ctx, entities.PolarVector{Length: 5, Angle: math.Pi / 4})

	data := []byte{1, 2, 3, 4, 5}
	r.inverseWithSecondArray(ctx, data)
	r.inverseInPlace(ctx, data)
	r.printc(ctx, SampleText)
	r.formatString(ctx, 42)

	r.report.WithMetadata(entities.NewRunMetadata(start, time.Now()).WithLibrary(cfg.library))
	return r.report, nil
}

type runner struct {
	lib    ports.Library
	out    io.Writer
	report *entities.Report
}

func (r *runner) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format+"\n", args...)
}

func (r *runner) fail(export, input string, err error) {
	r.printf("%s(%s) failed: %v", export, input, err)
	r.report.Add(entities.CallResult{
		Export: export,
		Input:  input,
		Status: entities.ResultStatusError,
		Error:  ierrors.ToErrorDetail(err),
	})
}

func (r *runner) record(export, input, output string, ok bool, note string) {
	status := entities.ResultStatusSuccess
	if !ok {
		status = entities.ResultStatusFailure
	}
	r.report.Add(entities.CallResult{
		Export: export,
		Input:  input,
		Output: output,
		Note:   note,
		Status: status,
	})
}

func (r *runner) abiVersion(ctx context.Context) {
	got, err := CheckABI(ctx, r.lib)
	if err != nil {
		r.fail("abi_version", "", err)
		return
	}
	r.report.ABIVersion = got
	note := ""
	if got == 0 {
		note = "library does not export abi_version"
	}
	r.record("abi_version", "", strconv.FormatUint(uint64(got), 10), true, note)
}

func (r *runner) helloWorld(ctx context.Context) {
	r.printf("%s", HostGreeting)
	if err := r.lib.HelloWorld(ctx); err != nil {
		r.fail("hello_world", "", err)
		return
	}
	r.record("hello_world", "", "", true, "")
}

func (r *runner) square(ctx context.Context, n int32) {
	input := strconv.FormatInt(int64(n), 10)
	got, err := r.lib.Square(ctx, n)
	if err != nil {
		r.fail("square", input, err)
		return
	}
	want, overflow := exports.SquareChecked(n)
	note := ""
	if overflow {
		note = "wrapped"
	}
	r.printf("%d^2 is %d", n, got)
	r.record("square", input, strconv.FormatInt(int64(got), 10), got == want, note)
}

func (r *runner) invert(ctx context.Context, b bool) {
	input := strconv.FormatBool(b)
	got, err := r.lib.Invert(ctx, b)
	if err != nil {
		r.fail("invert", input, err)
		return
	}
	r.printf("The inverse of %t is %t", b, got)
	r.record("invert", input, strconv.FormatBool(got), got == exports.Invert(b), "")
}

func (r *runner) isOdd(ctx context.Context, n int64) {
	input := strconv.FormatInt(n, 10)
	got, err := r.lib.IsOdd(ctx, n)
	if err != nil {
		r.fail("isOdd", input, err)
		return
	}
	r.printf("Is %d odd? %t", n, got)
	r.record("isOdd", input, strconv.FormatBool(got), got == exports.IsOdd(n), "")
}

func (r *runner) sqrt(ctx context.Context, f float32) {
	input := formatFloat(f)
	got, err := r.lib.Sqrt(ctx, f)
	if err != nil {
		r.fail("sqrt", input, err)
		return
	}
	want := exports.Sqrt(f)
	ok := got == want || (isNaN(got) && isNaN(want))
	r.printf("The square root of %s is %s", input, formatFloat(got))
	r.record("sqrt", input, formatFloat(got), ok, "")
}

func (r *runner) length(ctx context.Context, v entities.EulerVector) {
	got, err := r.lib.Length(ctx, v)
	if err != nil {
		r.fail("length", v.String(), err)
		return
	}
	r.printf("The length of euler vector %s is %s", v, formatFloat(got))
	r.record("length", v.String(), formatFloat(got), closeTo(got, exports.Length(v)), "")
}

func (r *runner) toEuler(ctx context.Context, v entities.PolarVector) {
	got, err := r.lib.ToEuler(ctx, v)
	if err != nil {
		r.fail("toEuler", v.String(), err)
		return
	}
	want := exports.ToEuler(v)
	r.printf("The polar vector %s is equivalent to the euler vector %s", v, got)
	r.record("toEuler", v.String(), got.String(), closeTo(got.X, want.X) && closeTo(got.Y, want.Y), "")
}

func (r *runner) inverseWithSecondArray(ctx context.Context, data []byte) {
	input := formatBytes(data)
	before := slices.Clone(data)
	out := make([]byte, len(data))
	if err := r.lib.InverseWithSecondArray(ctx, data, out); err != nil {
		r.fail("inverse_with_second_array", input, err)
		return
	}
	want := make([]byte, len(data))
	exports.ReverseInto(want, before)

	note := ""
	ok := bytes.Equal(out, want)
	if !bytes.Equal(data, before) {
		ok = false
		note = "input was modified"
	}
	r.printf("The reverse of %s is %s", input, formatBytes(out))
	r.record("inverse_with_second_array", input, formatBytes(out), ok, note)
}

func (r *runner) inverseInPlace(ctx context.Context, data []byte) {
	input := formatBytes(data)
	want := slices.Clone(data)
	exports.ReverseInPlace(want)
	if err := r.lib.InverseInPlace(ctx, data); err != nil {
		r.fail("inverse_in_place", input, err)
		return
	}
	r.printf("After in-place reverse, data is %s", formatBytes(data))
	r.record("inverse_in_place", input, formatBytes(data), bytes.Equal(data, want), "")
}

func (r *runner) printc(ctx context.Context, s string) {
	r.printf("Host string: %q", s)
	if err := r.lib.PrintC(ctx, []byte(s)); err != nil {
		r.fail("printc", s, err)
		return
	}
	r.record("printc", s, "", true, "")
}

func (r *runner) formatString(ctx context.Context, n uint32) {
	input := strconv.FormatUint(uint64(n), 10)
	got, err := FormatString(ctx, r.lib, n)
	if err != nil {
		r.fail("format_string", input, err)
		return
	}
	r.printf("Created library string: %q", got)
	r.record("format_string", input, got, got == exports.FormatNumber(n), "")
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

// formatBytes renders b as "[1, 2, 3]".
func formatBytes(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = strconv.Itoa(int(v))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func isNaN(f float32) bool {
	return math.IsNaN(float64(f))
}

func closeTo(a, b float32) bool {
	return math.Abs(float64(a-b)) <= eulerTolerance
}
