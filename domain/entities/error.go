package entities

import "strings"

// ErrorDetail is the report form of a failed call. Type is one of "load",
// "symbol", "layout", "abi_version", "buffer", "handle", "memory", "call",
// "config" or "internal"; Code usually names the export or field involved.
type ErrorDetail struct {
	Wrapped *ErrorDetail   `json:"wrapped,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Message string         `json:"message"`
	Type    string         `json:"type"`
	Code    string         `json:"code,omitempty"`
}

// NewErrorDetail returns a detail of the given type.
func NewErrorDetail(typ, message string) *ErrorDetail {
	return &ErrorDetail{Type: typ, Message: message}
}

// WithCode sets Code and returns e.
func (e *ErrorDetail) WithCode(code string) *ErrorDetail {
	e.Code = code
	return e
}

// WithDetails merges details into e and returns e.
func (e *ErrorDetail) WithDetails(details map[string]any) *ErrorDetail {
	if len(details) == 0 {
		return e
	}
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// Error renders "type: message [code]", followed by the wrapped chain.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	if e.Type != "" && e.Type != "internal" {
		b.WriteString(e.Type)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Code != "" {
		b.WriteString(" [")
		b.WriteString(e.Code)
		b.WriteString("]")
	}
	if e.Wrapped != nil {
		b.WriteString(": ")
		b.WriteString(e.Wrapped.Error())
	}
	return b.String()
}
