// Package recovery extracts a JSON value from free-form model output. It
// tolerates code fences and surrounding prose but never repairs broken JSON.
package recovery

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MalformedResponseError is returned when no JSON value can be recovered.
// Raw keeps the untouched model output for diagnosis.
type MalformedResponseError struct {
	Raw    string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	if e.Reason == "" {
		return "no JSON object or array found in AI response"
	}
	return "malformed AI response: " + e.Reason
}

var fenceReplacer = strings.NewReplacer("```json", "", "```", "")

// Recover returns the first JSON value found by, in order: a direct parse of
// the fence-stripped text, the outermost {...} span, the outermost [...] span.
func Recover(raw string) (json.RawMessage, error) {
	clean := strings.TrimSpace(fenceReplacer.Replace(raw))

	if json.Valid([]byte(clean)) {
		return json.RawMessage(clean), nil
	}

	if span, ok := between(clean, "{", "}"); ok && json.Valid([]byte(span)) {
		return json.RawMessage(span), nil
	}

	if span, ok := between(clean, "[", "]"); ok && json.Valid([]byte(span)) {
		return json.RawMessage(span), nil
	}

	return nil, &MalformedResponseError{Raw: raw}
}

// Decode recovers a JSON value and unmarshals it into v. Type mismatches are
// reported as MalformedResponseError too.
func Decode(raw string, v any) error {
	msg, err := Recover(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(msg, v); err != nil {
		return &MalformedResponseError{Raw: raw, Reason: err.Error()}
	}
	return nil
}

// Invalid builds a MalformedResponseError for a schema violation found after
// decoding.
func Invalid(raw, format string, args ...any) error {
	return &MalformedResponseError{Raw: raw, Reason: fmt.Sprintf(format, args...)}
}

func between(s, open, close string) (string, bool) {
	start := strings.Index(s, open)
	end := strings.LastIndex(s, close)
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
