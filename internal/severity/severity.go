// Package severity holds the closed rating vocabularies every feature maps
// model output onto: the low/mod/high severity scale and the 0-100 score
// bands.
package severity

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Level is the clinical urgency of a single finding.
type Level string

const (
	// Low is informational; monitor.
	Low Level = "low"

	// Moderate means caution; seek care if worsening.
	Moderate Level = "mod"

	// High means urgent; immediate care.
	High Level = "high"
)

// Presentation is what a renderer needs to draw a level.
type Presentation struct {
	Label string `json:"label"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
	Badge string `json:"badge"`
}

var presentations = map[Level]Presentation{
	Low:      {Label: "Low Risk", Color: "green", Icon: "✅", Badge: "bl"},
	Moderate: {Label: "Moderate Risk", Color: "orange", Icon: "⚠️", Badge: "bm"},
	High:     {Label: "High Risk", Color: "red", Icon: "🚨", Badge: "bh"},
}

var triageAdvice = map[Level]string{
	Low:      "Non-Urgent — Monitor at Home",
	Moderate: "Moderate — Seek Care if Worsening",
	High:     "High Priority — Seek Immediate Care",
}

// Parse normalises a model-supplied rating. Unknown or empty values are an
// error: no finding may be left unrated.
func Parse(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return Low, nil
	case "mod", "moderate", "medium":
		return Moderate, nil
	case "high":
		return High, nil
	default:
		return "", fmt.Errorf("unrecognised severity %q", s)
	}
}

func (l Level) Valid() bool {
	_, ok := presentations[l]
	return ok
}

func (l Level) Presentation() Presentation {
	return presentations[l]
}

// TriageAdvice is the patient-facing instruction for symptom features.
func (l Level) TriageAdvice() string {
	return triageAdvice[l]
}

// Rank orders levels so callers can pick the most severe.
func (l Level) Rank() int {
	switch l {
	case High:
		return 3
	case Moderate:
		return 2
	case Low:
		return 1
	default:
		return 0
	}
}

// UnmarshalJSON accepts any spelling Parse accepts.
func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("severity must be a string: %w", err)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
