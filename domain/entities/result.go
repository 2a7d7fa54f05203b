package entities

import (
	"time"
)

// ResultStatus represents the outcome status of a smoke run or a single call.
type ResultStatus string

const (
	// ResultStatusSuccess indicates every call returned the expected value.
	ResultStatusSuccess ResultStatus = "success"

	// ResultStatusFailure indicates a call completed but returned an unexpected value.
	ResultStatusFailure ResultStatus = "failure"

	// ResultStatusError indicates a call could not complete across the boundary.
	ResultStatusError ResultStatus = "error"
)

// CallResult records one call across the boundary.
type CallResult struct {
	// Error is set when the call failed to cross the boundary.
	Error *ErrorDetail `json:"error,omitempty"`

	// Export is the library export that was called.
	Export string `json:"export"`

	// Input is a human-readable rendition of the arguments.
	Input string `json:"input,omitempty"`

	// Output is a human-readable rendition of the result.
	Output string `json:"output,omitempty"`

	// Note carries observations such as integer wraparound.
	Note string `json:"note,omitempty"`

	Status ResultStatus `json:"status"`
}

// Report is the outcome of one flat call sequence against a library.
type Report struct {
	// Metadata contains execution metadata (timing, backend).
	Metadata *RunMetadata `json:"metadata,omitempty"`

	// Backend names the loader that produced the library (native, wasm, inprocess).
	Backend string `json:"backend"`

	Calls []CallResult `json:"calls"`

	// Status is the worst status across all calls.
	Status ResultStatus `json:"status"`

	ABIVersion uint32 `json:"abi_version"`
}

// Add appends a call and folds its status into the report status.
func (r *Report) Add(c CallResult) {
	r.Calls = append(r.Calls, c)
	r.Status = worse(r.Status, c.Status)
}

// IsSuccess returns true if every call succeeded.
func (r *Report) IsSuccess() bool {
	return r.Status == ResultStatusSuccess
}

// Failed returns the calls that did not succeed.
func (r *Report) Failed() []CallResult {
	var out []CallResult
	for _, c := range r.Calls {
		if c.Status != ResultStatusSuccess {
			out = append(out, c)
		}
	}
	return out
}

// WithMetadata attaches run metadata and returns the report.
func (r *Report) WithMetadata(m *RunMetadata) *Report {
	r.Metadata = m
	return r
}

func worse(a, b ResultStatus) ResultStatus {
	rank := func(s ResultStatus) int {
		switch s {
		case ResultStatusError:
			return 3
		case ResultStatusFailure:
			return 2
		case ResultStatusSuccess:
			return 1
		default:
			return 0
		}
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}

// RunMetadata contains execution metadata for a smoke run.
type RunMetadata struct {
	// StartTime is when the run started.
	StartTime time.Time `json:"start_time"`

	// EndTime is when the run completed.
	EndTime time.Time `json:"end_time"`

	// Library is the path or name of the loaded library.
	Library string `json:"library,omitempty"`

	// Duration is the total execution time.
	Duration time.Duration `json:"duration_ns"`
}

// NewRunMetadata creates a new RunMetadata with the given start and end times.
func NewRunMetadata(start, end time.Time) *RunMetadata {
	return &RunMetadata{
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
	}
}

// WithLibrary sets the library path and returns the metadata.
func (m *RunMetadata) WithLibrary(path string) *RunMetadata {
	m.Library = path
	return m
}
