package advisor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Skufu/vitreos/internal/severity"
)

// Finding is one advisor reaction alert.
type Finding struct {
	Title        string                `json:"title"`
	Detail       string                `json:"detail"`
	Severity     severity.Level        `json:"severity"`
	Presentation severity.Presentation `json:"presentation"`
}

type findingWire struct {
	T string         `json:"t"`
	D string         `json:"d"`
	S severity.Level `json:"s"`
}

type findingList []findingWire

func (l *findingList) check() error {
	if len(*l) == 0 {
		return errors.New("no findings returned")
	}
	for i, f := range *l {
		if strings.TrimSpace(f.T) == "" {
			return fmt.Errorf("finding %d: missing t", i)
		}
		if strings.TrimSpace(f.D) == "" {
			return fmt.Errorf("finding %d: missing d", i)
		}
		if !f.S.Valid() {
			return fmt.Errorf("finding %d: missing s", i)
		}
	}
	return nil
}

func (l findingList) findings() []Finding {
	out := make([]Finding, 0, len(l))
	for _, f := range l {
		out = append(out, Finding{Title: f.T, Detail: f.D, Severity: f.S, Presentation: f.S.Presentation()})
	}
	return out
}

// TriageResult is the voice analysis output.
type TriageResult struct {
	Severity     severity.Level        `json:"severity"`
	Conditions   []string              `json:"conditions"`
	Remedies     []string              `json:"remedies"`
	Advice       string                `json:"advice"`
	Urgent       bool                  `json:"urgent"`
	Triage       string                `json:"triage"`
	Presentation severity.Presentation `json:"presentation"`
	Keywords     []string              `json:"keywords"`
}

func (r *TriageResult) check() error {
	if !r.Severity.Valid() {
		return errors.New("missing severity")
	}
	if strings.TrimSpace(r.Advice) == "" {
		return errors.New("missing advice")
	}
	r.Conditions = orEmpty(r.Conditions)
	r.Remedies = orEmpty(r.Remedies)
	r.Triage = r.Severity.TriageAdvice()
	r.Presentation = r.Severity.Presentation()
	return nil
}

// AllergyResult is the allergen cross-reference output.
type AllergyResult struct {
	Allergen              string                `json:"allergen"`
	Severity              severity.Level        `json:"severity"`
	CrossReacts           []string              `json:"crossReacts"`
	AvoidList             []string              `json:"avoidList"`
	DrugInteractions      []string              `json:"drugInteractions"`
	EnvironmentalTriggers []string              `json:"environmentalTriggers"`
	ClinicalNote          string                `json:"clinicalNote"`
	Presentation          severity.Presentation `json:"presentation"`
}

func (r *AllergyResult) check() error {
	if !r.Severity.Valid() {
		return errors.New("missing severity")
	}
	if strings.TrimSpace(r.ClinicalNote) == "" {
		return errors.New("missing clinicalNote")
	}
	r.CrossReacts = orEmpty(r.CrossReacts)
	r.AvoidList = orEmpty(r.AvoidList)
	r.DrugInteractions = orEmpty(r.DrugInteractions)
	r.EnvironmentalTriggers = orEmpty(r.EnvironmentalTriggers)
	r.Presentation = r.Severity.Presentation()
	return nil
}

// Risk is one drug analyzer risk line.
type Risk struct {
	Level   severity.Level `json:"level"`
	Message string         `json:"msg"`
}

// DrugResult is the medication safety assessment. Band, Severity and
// SafetyLabel are always derived from SafetyScore.
type DrugResult struct {
	Medication   string         `json:"medication"`
	Safe         bool           `json:"safe"`
	SafetyScore  float64        `json:"safetyScore"`
	Band         severity.Band  `json:"band"`
	Severity     severity.Level `json:"severity"`
	SafetyLabel  string         `json:"safetyLabel"`
	Risks        []Risk         `json:"risks"`
	Alternatives []string       `json:"alternatives"`
	Interactions []string       `json:"interactions"`
	ClinicalNote string         `json:"clinicalNote"`
}

type drugWire struct {
	Safe         *bool    `json:"safe"`
	SafetyScore  *float64 `json:"safetyScore"`
	Risks        []Risk   `json:"risks"`
	Alternatives []string `json:"alternatives"`
	Interactions []string `json:"interactions"`
	ClinicalNote string   `json:"clinicalNote"`
}

func (w *drugWire) check() error {
	if w.Safe == nil {
		return errors.New("missing safe")
	}
	if w.SafetyScore == nil {
		return errors.New("missing safetyScore")
	}
	if err := severity.ValidateScore(*w.SafetyScore); err != nil {
		return err
	}
	if strings.TrimSpace(w.ClinicalNote) == "" {
		return errors.New("missing clinicalNote")
	}
	for i, r := range w.Risks {
		if !r.Level.Valid() {
			return fmt.Errorf("risk %d: missing level", i)
		}
		if strings.TrimSpace(r.Message) == "" {
			return fmt.Errorf("risk %d: missing msg", i)
		}
	}
	return nil
}

func (w *drugWire) result(medication string) *DrugResult {
	band := severity.BandFor(*w.SafetyScore)
	risks := w.Risks
	if risks == nil {
		risks = []Risk{}
	}
	return &DrugResult{
		Medication:   medication,
		Safe:         *w.Safe,
		SafetyScore:  *w.SafetyScore,
		Band:         band,
		Severity:     band.Level(),
		SafetyLabel:  band.SafetyLabel(),
		Risks:        risks,
		Alternatives: orEmpty(w.Alternatives),
		Interactions: orEmpty(w.Interactions),
		ClinicalNote: w.ClinicalNote,
	}
}

// ConsultResult is the symptom triage output.
type ConsultResult struct {
	Severity       severity.Level        `json:"severity"`
	Conditions     []string              `json:"conditions"`
	Remedies       []string              `json:"remedies"`
	WhenToSeekCare string                `json:"whenToSeekCare"`
	RedFlags       []string              `json:"redFlags"`
	Advice         string                `json:"advice"`
	Triage         string                `json:"triage"`
	Presentation   severity.Presentation `json:"presentation"`
}

func (r *ConsultResult) check() error {
	if !r.Severity.Valid() {
		return errors.New("missing severity")
	}
	if strings.TrimSpace(r.Advice) == "" {
		return errors.New("missing advice")
	}
	r.Conditions = orEmpty(r.Conditions)
	r.Remedies = orEmpty(r.Remedies)
	r.RedFlags = orEmpty(r.RedFlags)
	r.Triage = r.Severity.TriageAdvice()
	r.Presentation = r.Severity.Presentation()
	return nil
}

// Food is one nutrition recommendation.
type Food struct {
	Icon    string `json:"i"`
	Name    string `json:"n"`
	Benefit string `json:"b"`
}

// NutritionResult is the diet plan output.
type NutritionResult struct {
	Label       string   `json:"label"`
	Eat         []Food   `json:"eat"`
	Avoid       []Food   `json:"avoid"`
	MealPlan    string   `json:"mealPlan"`
	Supplements []string `json:"supplements"`
}

func (r *NutritionResult) check() error {
	for i, f := range r.Eat {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("eat %d: missing n", i)
		}
	}
	for i, f := range r.Avoid {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("avoid %d: missing n", i)
		}
	}
	if r.Eat == nil {
		r.Eat = []Food{}
	}
	if r.Avoid == nil {
		r.Avoid = []Food{}
	}
	r.Supplements = orEmpty(r.Supplements)
	return nil
}

// Alert flags one out-of-range metric.
type Alert struct {
	Metric  string `json:"metric"`
	Message string `json:"message"`
}

// DashboardResult is the longitudinal insight output. OverallHealth and Band
// are derived from HealthScore.
type DashboardResult struct {
	OverallHealth   string        `json:"overallHealth"`
	HealthScore     float64       `json:"healthScore"`
	Band            severity.Band `json:"band"`
	Insights        []string      `json:"insights"`
	Recommendations []string      `json:"recommendations"`
	Alerts          []Alert       `json:"alerts"`
	Entries         int           `json:"entries"`
}

type dashboardWire struct {
	OverallHealth   string   `json:"overallHealth"`
	HealthScore     *float64 `json:"healthScore"`
	Insights        []string `json:"insights"`
	Recommendations []string `json:"recommendations"`
	Alerts          []Alert  `json:"alerts"`
}

func (w *dashboardWire) check() error {
	if w.HealthScore == nil {
		return errors.New("missing healthScore")
	}
	if err := severity.ValidateScore(*w.HealthScore); err != nil {
		return err
	}
	for i, a := range w.Alerts {
		if strings.TrimSpace(a.Metric) == "" || strings.TrimSpace(a.Message) == "" {
			return fmt.Errorf("alert %d: missing metric or message", i)
		}
	}
	return nil
}

// KeyFinding is one scanned report line.
type KeyFinding struct {
	Label  string     `json:"label"`
	Value  flexString `json:"value"`
	Status string     `json:"status"`
}

var findingStatuses = map[string]bool{"normal": true, "low": true, "high": true, "info": true}

// ScanResult is the document explanation output.
type ScanResult struct {
	FileName        string                `json:"fileName"`
	Title           string                `json:"title"`
	Summary         string                `json:"summary"`
	KeyFindings     []KeyFinding          `json:"keyFindings"`
	Explanation     string                `json:"explanation"`
	ExtractedData   map[string]flexString `json:"extractedData"`
	Recommendations []string              `json:"recommendations"`
}

func (r *ScanResult) check() error {
	for i, f := range r.KeyFindings {
		if strings.TrimSpace(f.Label) == "" {
			return fmt.Errorf("keyFinding %d: missing label", i)
		}
		status := strings.ToLower(strings.TrimSpace(f.Status))
		if !findingStatuses[status] {
			return fmt.Errorf("keyFinding %d: unknown status %q", i, f.Status)
		}
		r.KeyFindings[i].Status = status
	}
	if r.KeyFindings == nil {
		r.KeyFindings = []KeyFinding{}
	}
	if r.ExtractedData == nil {
		r.ExtractedData = map[string]flexString{}
	}
	r.Recommendations = orEmpty(r.Recommendations)
	return nil
}

// context is what later voice analyses are told about this scan.
func (r *ScanResult) context() string {
	return firstNonBlank(r.Explanation, r.Summary)
}

func (r *ScanResult) extracted() map[string]string {
	out := make(map[string]string, len(r.ExtractedData))
	for k, v := range r.ExtractedData {
		out[k] = string(v)
	}
	return out
}

// flexString accepts a JSON string, number or boolean. Models often send lab
// values unquoted.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v.(type) {
	case float64, bool, nil:
		*f = flexString(strings.TrimSpace(string(data)))
		if v == nil {
			*f = ""
		}
		return nil
	default:
		return fmt.Errorf("expected scalar, got %s", data)
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
