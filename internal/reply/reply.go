// Package reply turns backend payloads into the single string shown to callers.
package reply

import (
	"bytes"
	"encoding/json"
	"strings"
)

// fields decodes a JSON object one level deep. Each field is interpreted on
// its own, so a sibling with an unexpected type never hides a usable one.
type fields map[string]json.RawMessage

func parseFields(body []byte) (fields, bool) {
	var f fields
	if err := json.Unmarshal(body, &f); err != nil || f == nil {
		return nil, false
	}
	return f, true
}

func (f fields) content() (string, bool) {
	var blocks []json.RawMessage
	if err := json.Unmarshal(f["content"], &blocks); err != nil {
		return "", false
	}
	for _, raw := range blocks {
		var block struct {
			Text any `json:"text"`
		}
		if err := json.Unmarshal(raw, &block); err != nil {
			continue
		}
		if text, ok := block.Text.(string); ok && text != "" {
			return text, true
		}
	}
	return "", false
}

func (f fields) message() (string, bool) {
	var msg string
	if err := json.Unmarshal(f["message"], &msg); err != nil || strings.TrimSpace(msg) == "" {
		return "", false
	}
	return msg, true
}

// unsuccessful accepts success as a bool or as the strings "true"/"false".
func (f fields) unsuccessful() bool {
	raw, ok := f["success"]
	if !ok {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch s := v.(type) {
	case bool:
		return !s
	case string:
		return strings.EqualFold(strings.TrimSpace(s), "false")
	}
	return false
}

func (f fields) errorValue() any {
	raw, ok := f["error"]
	if !ok {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

// Reduce prefers the first text content block, then a top-level message,
// and finally an indented dump of the whole payload. Non-JSON bodies are
// returned trimmed.
func Reduce(body []byte) string {
	if f, ok := parseFields(body); ok {
		if text, ok := f.content(); ok {
			return text
		}
		if msg, ok := f.message(); ok {
			return msg
		}
	}
	return Dump(body)
}

// Dump pretty-prints a JSON payload with two-space indentation.
func Dump(body []byte) string {
	var out bytes.Buffer
	if err := json.Indent(&out, bytes.TrimSpace(body), "", "  "); err != nil {
		return strings.TrimSpace(string(body))
	}
	return out.String()
}

// Failure reports whether a backend answer is an error payload and, if so,
// its human-readable message. Any non-2xx status is a failure; so is a 2xx
// body carrying success=false or an error field.
func Failure(status int, body []byte) (string, bool) {
	f, parsed := parseFields(body)

	failed := status < 200 || status >= 300
	if parsed && (f.unsuccessful() || hasError(f.errorValue())) {
		failed = true
	}
	if !failed {
		return "", false
	}
	if !parsed {
		return strings.TrimSpace(string(body)), true
	}
	return failureMessage(f), true
}

func failureMessage(f fields) string {
	switch e := f.errorValue().(type) {
	case string:
		if strings.TrimSpace(e) != "" {
			return e
		}
	case map[string]any:
		if msg, ok := e["message"].(string); ok && strings.TrimSpace(msg) != "" {
			return msg
		}
	}
	if msg, ok := f.message(); ok {
		return msg
	}
	if text, ok := f.content(); ok {
		return text
	}
	return ""
}

func hasError(v any) bool {
	switch e := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(e) != ""
	case bool:
		return e
	default:
		return true
	}
}
