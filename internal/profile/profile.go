// Package profile owns the single patient profile shared by every AI
// feature, its completeness flag and the bounded submission history.
package profile

import (
	"sort"
	"strings"
)

// Field names a profile entry. Values match the advisor form keys.
type Field string

const (
	BloodGroup    Field = "bg"
	BloodPressure Field = "bp"
	WBC           Field = "wbc"
	Platelets     Field = "plt"
	Hemoglobin    Field = "hgb"
	Hematocrit    Field = "hct"
	RBC           Field = "rbc"
	MCV           Field = "mcv"
	Allergies     Field = "al"
	Medications   Field = "med"
	Dosage        Field = "dos"
	Environment   Field = "env"
)

// Fields lists every known field in form order.
var Fields = []Field{
	BloodGroup, BloodPressure, WBC, Platelets, Hemoglobin, Hematocrit,
	RBC, MCV, Allergies, Medications, Dosage, Environment,
}

var known = func() map[Field]bool {
	m := make(map[Field]bool, len(Fields))
	for _, f := range Fields {
		m[f] = true
	}
	return m
}()

// Known reports whether f belongs to the fixed field set.
func Known(f Field) bool {
	return known[f]
}

// Profile maps fields to the values the patient entered. A missing key and
// an empty string are both "not provided" but are kept distinct.
type Profile map[Field]string

// FromMap keeps only known fields. Values are trimmed but empty values are
// preserved.
func FromMap(in map[string]string) Profile {
	p := make(Profile, len(in))
	for k, v := range in {
		f := Field(strings.ToLower(strings.TrimSpace(k)))
		if Known(f) {
			p[f] = strings.TrimSpace(v)
		}
	}
	return p
}

// Lookup returns the value and whether it was provided (present and
// non-blank).
func (p Profile) Lookup(f Field) (string, bool) {
	v, ok := p[f]
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// Or returns the value or fallback when the field was not provided.
func (p Profile) Or(f Field, fallback string) string {
	if v, ok := p.Lookup(f); ok {
		return v
	}
	return fallback
}

// Usable reports whether at least one field carries a value.
func (p Profile) Usable() bool {
	for f := range p {
		if _, ok := p.Lookup(f); ok {
			return true
		}
	}
	return false
}

func (p Profile) Clone() Profile {
	out := make(Profile, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Map converts back to plain string keys.
func (p Profile) Map() map[string]string {
	out := make(map[string]string, len(p))
	for k, v := range p {
		out[string(k)] = v
	}
	return out
}

// ProvidedFields returns the fields with values, sorted.
func (p Profile) ProvidedFields() []Field {
	var out []Field
	for f := range p {
		if _, ok := p.Lookup(f); ok {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SplitList splits a free-text allergy or medication list on commas and
// semicolons.
func SplitList(text string) []string {
	out := []string{}
	for _, t := range strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';'
	}) {
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
