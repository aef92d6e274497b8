package log

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// JSONFormatter renders entries as one JSON object per line.
type JSONFormatter struct {
	// TimestampFormat defaults to RFC3339Nano.
	TimestampFormat string
}

// Format implements Formatter.
func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	layout := f.TimestampFormat
	if layout == "" {
		layout = time.RFC3339Nano
	}
	out := make(map[string]interface{}, len(entry.Fields)+4)
	for k, v := range entry.Fields {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		out[k] = v
	}
	out["ts"] = entry.Timestamp.Format(layout)
	out["level"] = entry.Level.String()
	out["msg"] = entry.Message
	if entry.Caller != "" {
		out["caller"] = entry.Caller
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// TextFormatter renders entries as "ts LEVEL msg key=value ..." lines with
// keys sorted for stable output.
type TextFormatter struct {
	TimestampFormat string
	// ShowCaller appends the caller location.
	ShowCaller bool
}

// Format implements Formatter.
func (f *TextFormatter) Format(entry *Entry) ([]byte, error) {
	layout := f.TimestampFormat
	if layout == "" {
		layout = "2006-01-02T15:04:05.000Z07:00"
	}
	var sb strings.Builder
	sb.WriteString(entry.Timestamp.Format(layout))
	sb.WriteByte(' ')
	sb.WriteString(fmt.Sprintf("%-5s", entry.Level.String()))
	sb.WriteByte(' ')
	sb.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteByte(' ')
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(quoteIfNeeded(fmt.Sprint(entry.Fields[k])))
	}
	if f.ShowCaller && entry.Caller != "" {
		sb.WriteString(" caller=")
		sb.WriteString(entry.Caller)
	}
	sb.WriteByte('\n')
	return []byte(sb.String()), nil
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return fmt.Sprintf("%q", s)
	}
	return s
}
