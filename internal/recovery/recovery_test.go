package recovery

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parsed(t *testing.T, msg json.RawMessage) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal(msg, &v))
	return v
}

func TestRecoverEquivalentToDirectParse(t *testing.T) {
	inner := `{"severity":"mod","conditions":["Flu","Cold"],"urgent":false}`
	var want any
	require.NoError(t, json.Unmarshal([]byte(inner), &want))

	cases := map[string]string{
		"plain":           inner,
		"padded":          "\n\n  " + inner + "  \n",
		"json fence":      "```json\n" + inner + "\n```",
		"bare fence":      "```\n" + inner + "\n```",
		"prose around":    "Here is the analysis you asked for:\n" + inner + "\nStay safe!",
		"fence and prose": "Sure.\n```json\n" + inner + "\n```\nLet me know.",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			msg, err := Recover(raw)
			require.NoError(t, err)
			assert.Equal(t, want, parsed(t, msg))
		})
	}
}

func TestRecoverArrays(t *testing.T) {
	raw := "```json\n[{\"t\":\"High WBC\",\"d\":\"...\",\"s\":\"mod\"}]\n```"
	msg, err := Recover(raw)
	require.NoError(t, err)

	items, ok := parsed(t, msg).([]any)
	require.True(t, ok)
	assert.Len(t, items, 1)

	msg, err = Recover(`Findings: ["a", "b"] end`)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, parsed(t, msg))
}

func TestRecoverPrefersObjectSpan(t *testing.T) {
	msg, err := Recover(`result -> {"items":[1,2]} <-`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"items": []any{1.0, 2.0}}, parsed(t, msg))
}

func TestRecoverFallsBackToArrayWhenObjectSpanBroken(t *testing.T) {
	// The {...} span is invalid JSON, but a [...] span is not.
	msg, err := Recover(`note {oops} list: [1, 2]`)
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 2.0}, parsed(t, msg))
}

func TestRecoverFailures(t *testing.T) {
	for _, raw := range []string{
		"",
		"I cannot help with that.",
		"} reversed {",
		`{"unterminated": "value"`,
		`{"broken": tru}`,
		"] nope [",
	} {
		_, err := Recover(raw)
		var mre *MalformedResponseError
		require.True(t, errors.As(err, &mre), "expected MalformedResponseError for %q", raw)
		assert.Equal(t, raw, mre.Raw)
	}
}

func TestDecodeTypeMismatch(t *testing.T) {
	var out struct {
		Score float64 `json:"safetyScore"`
	}
	err := Decode(`{"safetyScore":"high"}`, &out)
	var mre *MalformedResponseError
	require.ErrorAs(t, err, &mre)
	assert.NotEmpty(t, mre.Reason)

	require.NoError(t, Decode("```json\n{\"safetyScore\": 82}\n```", &out))
	assert.Equal(t, 82.0, out.Score)
}

func TestInvalid(t *testing.T) {
	err := Invalid("raw", "missing %s", "severity")
	assert.EqualError(t, err, "malformed AI response: missing severity")
}
