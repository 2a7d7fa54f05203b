package log

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime"
	"time"
)

// LogMessageWire is the JSON wire format for a log record sent from the
// library to the host.
type LogMessageWire struct {
	Timestamp time.Time     `json:"timestamp"`
	Attrs     []LogAttrWire `json:"attrs,omitempty"`
	Level     string        `json:"level"`
	Message   string        `json:"message"`
	Source    string        `json:"source,omitempty"`
}

// LogAttrWire represents a single slog attribute for wire transfer.
type LogAttrWire struct {
	Key   string `json:"key"`
	Type  string `json:"type"`  // "string", "int64", "uint64", "bool", "float64", "time", "duration", "error", "json", "any"
	Value string `json:"value"` // String representation of the value
}

// toLogAttrWire converts a slog.Attr to LogAttrWire.
func toLogAttrWire(attr slog.Attr) LogAttrWire {
	wire := LogAttrWire{Key: attr.Key}
	attr.Value = attr.Value.Resolve()

	switch attr.Value.Kind() {
	case slog.KindString:
		wire.Type = "string"
		wire.Value = attr.Value.String()
	case slog.KindInt64:
		wire.Type = "int64"
		wire.Value = fmt.Sprintf("%d", attr.Value.Int64())
	case slog.KindUint64:
		wire.Type = "uint64"
		wire.Value = fmt.Sprintf("%d", attr.Value.Uint64())
	case slog.KindBool:
		wire.Type = "bool"
		wire.Value = fmt.Sprintf("%t", attr.Value.Bool())
	case slog.KindFloat64:
		wire.Type = "float64"
		wire.Value = fmt.Sprintf("%g", attr.Value.Float64())
	case slog.KindTime:
		wire.Type = "time"
		wire.Value = attr.Value.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		wire.Type = "duration"
		wire.Value = attr.Value.Duration().String()
	case slog.KindAny:
		v := attr.Value.Any()
		switch tv := v.(type) {
		case nil:
			wire.Type = "any"
			wire.Value = "<nil>"
		case error:
			wire.Type = "error"
			wire.Value = tv.Error()
		default:
			if data, err := json.Marshal(v); err == nil {
				wire.Type = "json"
				wire.Value = string(data)
			} else {
				wire.Type = "any"
				wire.Value = fmt.Sprintf("%v", v)
			}
		}
	default:
		// Groups arrive flattened through GuestHandler.qualify; anything
		// else is rendered with %v.
		wire.Type = "any"
		wire.Value = fmt.Sprintf("%v", attr.Value.Any())
	}
	return wire
}

// Attr converts the wire attribute back to a slog.Attr, restoring the
// original kind where the text form allows it.
func (a LogAttrWire) Attr() slog.Attr {
	switch a.Type {
	case "int64":
		var n int64
		if _, err := fmt.Sscan(a.Value, &n); err == nil {
			return slog.Int64(a.Key, n)
		}
	case "uint64":
		var n uint64
		if _, err := fmt.Sscan(a.Value, &n); err == nil {
			return slog.Uint64(a.Key, n)
		}
	case "bool":
		return slog.Bool(a.Key, a.Value == "true")
	case "float64":
		var f float64
		if _, err := fmt.Sscan(a.Value, &f); err == nil {
			return slog.Float64(a.Key, f)
		}
	case "duration":
		if d, err := time.ParseDuration(a.Value); err == nil {
			return slog.Duration(a.Key, d)
		}
	case "time":
		if ts, err := time.Parse(time.RFC3339Nano, a.Value); err == nil {
			return slog.Time(a.Key, ts)
		}
	case "json":
		return slog.Any(a.Key, json.RawMessage(a.Value))
	}
	return slog.String(a.Key, a.Value)
}

// ParseLevel maps the level names written by slog.Level.String back to levels.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Replay decodes a serialized record and logs it through logger.
// Undecodable payloads are logged raw at WARN.
func Replay(ctx context.Context, logger *slog.Logger, payload []byte) {
	var msg LogMessageWire
	if err := json.Unmarshal(payload, &msg); err != nil {
		logger.WarnContext(ctx, "undecodable library log record", "payload", string(payload))
		return
	}

	args := make([]any, 0, len(msg.Attrs)+1)
	if msg.Source != "" {
		args = append(args, slog.String("source", msg.Source))
	}
	for _, a := range msg.Attrs {
		args = append(args, a.Attr())
	}
	logger.Log(ctx, ParseLevel(msg.Level), msg.Message, args...)
}

func sourceOf(record slog.Record) string {
	if record.PC == 0 {
		return ""
	}
	frames := runtime.CallersFrames([]uintptr{record.PC})
	f, _ := frames.Next()
	return fmt.Sprintf("%s:%d", f.File, f.Line)
}
