// Package prompts is the static registry of specialist instructions, one per
// AI feature. Each template declares the JSON schema its feature decodes.
package prompts

import (
	"fmt"
	"sort"
	"strings"
)

// Feature names an AI-backed feature.
type Feature string

const (
	Advisor   Feature = "advisor"
	Voice     Feature = "voice"
	Allergy   Feature = "allergy"
	Drug      Feature = "drug-analyzer"
	Consult   Feature = "consult"
	Nutrition Feature = "nutrition"
	Dashboard Feature = "dashboard"
	Scan      Feature = "scan"
)

// Kind is the type of a schema field.
type Kind string

const (
	KindString      Kind = "string"
	KindStringArray Kind = "string[]"
	KindEnum        Kind = "enum"
	KindNumber      Kind = "number"
	KindBoolean     Kind = "boolean"
	KindObjectArray Kind = "object[]"
	KindObject      Kind = "object"
)

// FieldSpec declares one output field.
type FieldSpec struct {
	Name     string
	Kind     Kind
	Required bool
	Enum     []string
	Min, Max float64
	Items    []FieldSpec
}

// Template is a specialist persona plus its output contract.
type Template struct {
	Feature         Feature
	Section         string
	Instructions    string
	Schema          []FieldSpec
	MaxTokens       int
	Temperature     float64
	RequiresProfile bool
}

const jsonOnly = "Return ONLY valid JSON, no markdown, no text outside the JSON value."

var severityEnum = []string{"low", "mod", "high"}

var registry = map[Feature]Template{
	Advisor: {
		Feature: Advisor,
		Section: "Advisor AI",
		Instructions: `You are VITREOS, an AI clinical advisor acting as a specialist hematologist and pharmacologist. Analyze the patient's blood report and medication data in detail. Return ONLY a JSON array of reaction/finding objects. Each object must have:
- "t": short title (max 6 words)
- "d": detailed clinical explanation specific to the values provided (1-2 sentences)
- "s": severity — exactly "low", "mod", or "high"
Severity guide: "high" = requires urgent attention; "mod" = monitor carefully; "low" = informational.
Minimum 4 items, maximum 8. ` + jsonOnly,
		Schema: []FieldSpec{
			{Name: "t", Kind: KindString, Required: true},
			{Name: "d", Kind: KindString, Required: true},
			{Name: "s", Kind: KindEnum, Required: true, Enum: severityEnum},
		},
		RequiresProfile: true,
	},
	Voice: {
		Feature: Voice,
		Section: "Voice AI Analysis",
		Instructions: `You are VITREOS Voice AI, acting as a board-certified emergency medicine physician performing rapid triage. The patient has spoken their symptoms. Assess urgency and provide clinical guidance. Return ONLY a JSON object with:
- "severity": "low"|"mod"|"high"
- "conditions": array of 3-4 possible medical conditions (strings)
- "remedies": array of 4 home remedy suggestions with emoji (strings)
- "advice": 2-3 sentence professional clinical advice paragraph
- "urgent": boolean — true if immediate emergency care needed
` + jsonOnly,
		Schema: []FieldSpec{
			{Name: "severity", Kind: KindEnum, Required: true, Enum: severityEnum},
			{Name: "conditions", Kind: KindStringArray},
			{Name: "remedies", Kind: KindStringArray},
			{Name: "advice", Kind: KindString, Required: true},
			{Name: "urgent", Kind: KindBoolean},
		},
	},
	Allergy: {
		Feature: Allergy,
		Section: "Allergy AI",
		Instructions: `You are VITREOS Allergy AI, acting as a board-certified clinical immunologist and allergist. IMPORTANT: The patient profile contains their actual blood report data, CBC values, known allergies, and current medications — you MUST cross-reference every part of your analysis specifically against this patient's data. Do not give generic advice. Analyze the allergen deeply, cross-referencing it with medications, foods, environmental factors, and the patient's profile. Return ONLY a JSON object with:
- "severity": "low"|"mod"|"high"
- "crossReacts": array of substances that cross-react with this allergen (strings)
- "avoidList": array of items/substances to avoid (strings)
- "drugInteractions": array of medications that may interact or amplify reaction (strings)
- "environmentalTriggers": array of environmental factors that worsen the allergy (strings)
- "clinicalNote": 1-2 sentence professional allergist note with management advice
Severity: "high" = anaphylaxis risk; "mod" = significant symptoms; "low" = mild reactions.
` + jsonOnly,
		Schema: []FieldSpec{
			{Name: "severity", Kind: KindEnum, Required: true, Enum: severityEnum},
			{Name: "crossReacts", Kind: KindStringArray},
			{Name: "avoidList", Kind: KindStringArray},
			{Name: "drugInteractions", Kind: KindStringArray},
			{Name: "environmentalTriggers", Kind: KindStringArray},
			{Name: "clinicalNote", Kind: KindString, Required: true},
		},
		RequiresProfile: true,
	},
	Drug: {
		Feature: Drug,
		Section: "Drug Analyzer AI",
		Instructions: `You are VITREOS Drug Analyzer AI, acting as a senior clinical pharmacist specializing in drug safety, interactions, and contraindications. CRITICAL: Always cross-reference your analysis with the patient's specific blood report data (blood group, CBC values, current medications, allergies). Every risk and recommendation must be personalized to THIS patient's data. Given a medication name, patient allergies, and medical conditions, provide a thorough safety assessment. Return ONLY a JSON object with:
- "safe": boolean (true if generally safe for this patient profile)
- "safetyScore": number 0-100 (100 = completely safe, 0 = absolute contraindication)
- "risks": array of objects with "level" ("high"|"mod"|"low") and "msg" (risk description string)
- "alternatives": array of safer medication alternatives if unsafe (strings)
- "interactions": array of known drug interactions (strings)
- "clinicalNote": professional pharmacist summary string
Severity guide: "high" = contraindicated/life-threatening; "mod" = use with caution; "low" = minor concern.
` + jsonOnly,
		Schema: []FieldSpec{
			{Name: "safe", Kind: KindBoolean, Required: true},
			{Name: "safetyScore", Kind: KindNumber, Required: true, Min: 0, Max: 100},
			{Name: "risks", Kind: KindObjectArray, Items: []FieldSpec{
				{Name: "level", Kind: KindEnum, Required: true, Enum: severityEnum},
				{Name: "msg", Kind: KindString, Required: true},
			}},
			{Name: "alternatives", Kind: KindStringArray},
			{Name: "interactions", Kind: KindStringArray},
			{Name: "clinicalNote", Kind: KindString, Required: true},
		},
		RequiresProfile: true,
	},
	Consult: {
		Feature: Consult,
		Section: "Consult Corner AI",
		Instructions: `You are VITREOS Consult AI, acting as an experienced primary care physician and clinical triage specialist. The patient describes their symptoms. Provide thorough, evidence-based clinical analysis and clear patient guidance. Return ONLY a JSON object with:
- "severity": "low"|"mod"|"high"
- "conditions": array of 3-5 possible differential diagnoses (strings)
- "remedies": array of 4-5 evidence-based home remedy suggestions with emoji (strings)
- "whenToSeekCare": clear guidance string on when to visit a doctor
- "redFlags": array of warning signs requiring immediate attention (strings)
- "advice": 2-3 sentence professional clinical advice paragraph
Severity: "high" = seek care immediately; "mod" = monitor and seek care if worsening; "low" = manage at home.
` + jsonOnly,
		Schema: []FieldSpec{
			{Name: "severity", Kind: KindEnum, Required: true, Enum: severityEnum},
			{Name: "conditions", Kind: KindStringArray},
			{Name: "remedies", Kind: KindStringArray},
			{Name: "whenToSeekCare", Kind: KindString},
			{Name: "redFlags", Kind: KindStringArray},
			{Name: "advice", Kind: KindString, Required: true},
		},
	},
	Nutrition: {
		Feature: Nutrition,
		Section: "Nutrition AI",
		Instructions: `You are VITREOS Nutrition AI, acting as a registered dietitian and clinical nutritionist. Given a medical condition or health goal and any patient context, generate personalized, evidence-based food recommendations. Return ONLY a JSON object with:
- "label": condition/goal label string (max 4 words)
- "eat": array of 6 objects each with "i" (single emoji), "n" (food name), "b" (1 brief clinical benefit reason)
- "avoid": array of 4 objects each with "i" (single emoji), "n" (food name), "b" (1 brief clinical reason to avoid)
- "mealPlan": 2-sentence personalized daily meal plan
- "supplements": array of 3 strings (evidence-based supplements with doses)
Ensure recommendations account for any patient allergies or medications provided.
` + jsonOnly,
		Schema: []FieldSpec{
			{Name: "label", Kind: KindString},
			{Name: "eat", Kind: KindObjectArray, Items: foodItem},
			{Name: "avoid", Kind: KindObjectArray, Items: foodItem},
			{Name: "mealPlan", Kind: KindString},
			{Name: "supplements", Kind: KindStringArray},
		},
		MaxTokens: 700,
	},
	Dashboard: {
		Feature: Dashboard,
		Section: "Dashboard AI",
		Instructions: `You are VITREOS Dashboard AI, acting as a board-certified internal medicine specialist. IMPORTANT: All insights must be derived exclusively from the patient's actual submitted health data — do not use generic statistics. Reference specific CBC values, blood pressure readings, and medication details when making observations. Analyze the patient's longitudinal blood test history and health metrics. Identify trends, flag concerns, and provide actionable insights. Return ONLY a JSON object with:
- "overallHealth": "Good"|"Fair"|"Poor"
- "healthScore": number 0-100 (based on CBC values, BP, medication load)
- "insights": array of 3-4 strings (specific trend observations referencing actual values)
- "recommendations": array of 3 strings (actionable clinical advice)
- "alerts": array of objects with "metric" (lab name) and "message" (clinical concern) for any out-of-range values
Severity guide for healthScore: 75-100 = Good, 50-74 = Fair, 0-49 = Poor.
` + jsonOnly,
		Schema: []FieldSpec{
			{Name: "overallHealth", Kind: KindEnum, Enum: []string{"Good", "Fair", "Poor"}},
			{Name: "healthScore", Kind: KindNumber, Required: true, Min: 0, Max: 100},
			{Name: "insights", Kind: KindStringArray},
			{Name: "recommendations", Kind: KindStringArray},
			{Name: "alerts", Kind: KindObjectArray, Items: []FieldSpec{
				{Name: "metric", Kind: KindString, Required: true},
				{Name: "message", Kind: KindString, Required: true},
			}},
		},
		RequiresProfile: true,
	},
	Scan: {
		Feature: Scan,
		Section: "Scan AI",
		Instructions: `You are VITREOS Medical Report Scanner AI. The user has uploaded a medical document (blood report, prescription, scan, or lab report). Based on the content description or extracted text, explain what the report shows in simple, friendly language that a patient can understand. Identify key findings, flag any abnormal values, and summarize what it means for the patient's health. Also extract any key data points (blood group, CBC values, medications, allergies if present). Return ONLY a JSON object with:
- "title": short report title string
- "summary": 2-3 sentence plain-language summary of what the report shows
- "keyFindings": array of objects with "label" (finding name) and "value" (value/result) and "status" ("normal"|"low"|"high"|"info")
- "explanation": 3-4 sentence explanation in very simple patient-friendly language, as if explaining to someone with no medical background
- "extractedData": object with any of these if found: {bg, bp, wbc, plt, hgb, hct, rbc, mcv, al, med}
- "recommendations": array of 2-3 follow-up recommendations
` + jsonOnly,
		Schema: []FieldSpec{
			{Name: "title", Kind: KindString},
			{Name: "summary", Kind: KindString},
			{Name: "keyFindings", Kind: KindObjectArray, Items: []FieldSpec{
				{Name: "label", Kind: KindString, Required: true},
				{Name: "value", Kind: KindString},
				{Name: "status", Kind: KindEnum, Required: true, Enum: []string{"normal", "low", "high", "info"}},
			}},
			{Name: "explanation", Kind: KindString},
			{Name: "extractedData", Kind: KindObject},
			{Name: "recommendations", Kind: KindStringArray},
		},
		MaxTokens: 1200,
	},
}

var foodItem = []FieldSpec{
	{Name: "i", Kind: KindString},
	{Name: "n", Kind: KindString, Required: true},
	{Name: "b", Kind: KindString},
}

// Lookup returns the template registered for f.
func Lookup(f Feature) (Template, error) {
	t, ok := registry[f]
	if !ok {
		return Template{}, fmt.Errorf("no prompt template for feature %q", f)
	}
	return t, nil
}

// MustLookup panics for unregistered features; used by orchestrator
// constructors where the feature is a compile-time constant.
func MustLookup(f Feature) Template {
	t, err := Lookup(f)
	if err != nil {
		panic(err)
	}
	return t
}

// Features lists registered features, sorted.
func Features() []Feature {
	out := make([]Feature, 0, len(registry))
	for f := range registry {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Field returns the FieldSpec of a top-level output field.
func (t Template) Field(name string) (FieldSpec, bool) {
	for _, fs := range t.Schema {
		if fs.Name == name {
			return fs, true
		}
	}
	return FieldSpec{}, false
}

// RequiredFields lists top-level fields the model must return.
func (t Template) RequiredFields() []string {
	var out []string
	for _, fs := range t.Schema {
		if fs.Required {
			out = append(out, fs.Name)
		}
	}
	return out
}

// Describe renders the schema compactly, e.g. for logs and the CLI.
func (t Template) Describe() string {
	parts := make([]string, 0, len(t.Schema))
	for _, fs := range t.Schema {
		parts = append(parts, describeField(fs))
	}
	return strings.Join(parts, ", ")
}

func describeField(fs FieldSpec) string {
	var b strings.Builder
	b.WriteString(fs.Name)
	b.WriteString(":")
	switch fs.Kind {
	case KindEnum:
		b.WriteString(strings.Join(fs.Enum, "|"))
	case KindNumber:
		fmt.Fprintf(&b, "number[%g-%g]", fs.Min, fs.Max)
	case KindObjectArray:
		items := make([]string, 0, len(fs.Items))
		for _, it := range fs.Items {
			items = append(items, describeField(it))
		}
		b.WriteString("[{" + strings.Join(items, ", ") + "}]")
	default:
		b.WriteString(string(fs.Kind))
	}
	if fs.Required {
		b.WriteString("!")
	}
	return b.String()
}
