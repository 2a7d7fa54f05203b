package host

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/reglet-dev/interop/domain/entities"
	ierrors "github.com/reglet-dev/interop/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_InProcess(t *testing.T) {
	ctx := context.Background()
	var libOut, hostOut bytes.Buffer
	lib := NewInProcessLibrary(&libOut)
	defer lib.Close(ctx)

	report, err := Run(ctx, lib,
		WithOutput(&hostOut),
		WithBackendName(entities.BackendInProcess),
		WithLibraryPath("builtin"),
	)
	require.NoError(t, err)

	assert.True(t, report.IsSuccess(), "failed calls: %+v", report.Failed())
	assert.Equal(t, entities.BackendInProcess, report.Backend)
	assert.Equal(t, entities.ABIVersion, report.ABIVersion)
	require.NotNil(t, report.Metadata)
	assert.Equal(t, "builtin", report.Metadata.Library)
	assert.Zero(t, lib.Outstanding())

	exportsSeen := make([]string, 0, len(report.Calls))
	for _, c := range report.Calls {
		exportsSeen = append(exportsSeen, c.Export)
	}
	assert.Equal(t, []string{
		"abi_version", "hello_world", "square", "square", "invert", "isOdd",
		"sqrt", "sqrt", "length", "toEuler", "inverse_with_second_array",
		"inverse_in_place", "printc", "format_string",
	}, exportsSeen)

	assert.Equal(t, "Hello from Go 😎\nThis is a test äöü 😎\n", libOut.String())

	out := hostOut.String()
	for _, line := range []string{
		"Hello from the host!",
		"20^2 is 400",
		"2147483647^2 is 1",
		"The inverse of true is false",
		"Is 1099511627777 odd? true",
		"The square root of 6.25 is 2.5",
		"The square root of -1 is NaN",
		"The length of euler vector (3, 4) is 5",
		"The reverse of [1, 2, 3, 4, 5] is [5, 4, 3, 2, 1]",
		"After in-place reverse, data is [5, 4, 3, 2, 1]",
		`Created library string: "The number is 42 äöü 😎"`,
	} {
		assert.Contains(t, out, line)
	}
}

func TestRun_WrapNote(t *testing.T) {
	ctx := context.Background()
	report, err := Run(ctx, NewInProcessLibrary(&bytes.Buffer{}), WithOutput(&bytes.Buffer{}))
	require.NoError(t, err)

	var notes []string
	for _, c := range report.Calls {
		if c.Export == "square" {
			notes = append(notes, c.Note)
		}
	}
	assert.Equal(t, []string{"", "wrapped"}, notes)
}

// brokenLibrary returns wrong answers and fails selected calls.
type brokenLibrary struct {
	*InProcessLibrary
}

func (b brokenLibrary) Square(_ context.Context, v int32) (int32, error) {
	return v + v, nil
}

func (b brokenLibrary) PrintC(_ context.Context, _ []byte) error {
	return &ierrors.CallError{Export: "printc", Err: assert.AnError}
}

func (b brokenLibrary) InverseWithSecondArray(_ context.Context, in, out []byte) error {
	copy(out, in)
	in[0] = 0xff
	return nil
}

func TestRun_ReportsFailures(t *testing.T) {
	ctx := context.Background()
	var hostOut bytes.Buffer
	lib := brokenLibrary{NewInProcessLibrary(&bytes.Buffer{})}

	report, err := Run(ctx, lib, WithOutput(&hostOut))
	require.NoError(t, err)

	assert.False(t, report.IsSuccess())
	assert.Equal(t, entities.ResultStatusError, report.Status)

	byExport := make(map[string]entities.CallResult)
	for _, c := range report.Failed() {
		byExport[c.Export] = c
	}

	require.Contains(t, byExport, "square")
	assert.Equal(t, entities.ResultStatusFailure, byExport["square"].Status)

	require.Contains(t, byExport, "printc")
	assert.Equal(t, entities.ResultStatusError, byExport["printc"].Status)
	require.NotNil(t, byExport["printc"].Error)
	assert.Equal(t, "call", byExport["printc"].Error.Type)

	require.Contains(t, byExport, "inverse_with_second_array")
	assert.Equal(t, "input was modified", byExport["inverse_with_second_array"].Note)

	assert.True(t, strings.Contains(hostOut.String(), "printc("))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "[]", formatBytes(nil))
	assert.Equal(t, "[1, 2, 3, 4, 5]", formatBytes([]byte{1, 2, 3, 4, 5}))
	assert.Equal(t, "[255]", formatBytes([]byte{0xff}))
}
