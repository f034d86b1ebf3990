package advisor

import (
	"fmt"
	"strings"
	"time"

	"github.com/Skufu/vitreos/internal/profile"
)

const (
	notProvided = "Not provided"
	none        = "None"
)

func bloodReport(p profile.Profile) string {
	lines := []string{
		"Patient blood report:",
		"Blood Group: " + p.Or(profile.BloodGroup, notProvided),
		"Blood Pressure (Systolic): " + p.Or(profile.BloodPressure, notProvided) + " mmHg",
		"WBC: " + p.Or(profile.WBC, notProvided) + " ×10³/µL (Normal: 4.5–11.0)",
		"Platelet Count: " + p.Or(profile.Platelets, notProvided) + " ×10³/µL (Normal: 150–400)",
		"Hemoglobin: " + p.Or(profile.Hemoglobin, notProvided) + " g/dL (Normal: 12–17.5)",
		"Hematocrit: " + p.Or(profile.Hematocrit, notProvided) + " % (Normal: 36–52)",
		"RBC: " + p.Or(profile.RBC, notProvided) + " ×10⁶/µL (Normal: 4.2–5.9)",
		"MCV: " + p.Or(profile.MCV, notProvided) + " fL (Normal: 80–100)",
		"Known Allergies: " + p.Or(profile.Allergies, none),
		"Current Medication: " + p.Or(profile.Medications, none),
		"Dosage: " + p.Or(profile.Dosage, notProvided),
		"Environmental Factors: " + p.Or(profile.Environment, none),
	}
	return strings.Join(lines, "\n")
}

// profileSummary is the one-line patient context appended to free-text
// features. Empty when nothing was provided.
func profileSummary(p profile.Profile) string {
	if !p.Usable() {
		return ""
	}
	return fmt.Sprintf(
		"Patient profile: Blood group %s, BP %s mmHg, WBC %s ×10³/µL, HGB %s g/dL, PLT %s ×10³/µL. Known allergies: %s. Current medications: %s. Dosage: %s. Environmental factors: %s.",
		p.Or(profile.BloodGroup, notProvided),
		p.Or(profile.BloodPressure, notProvided),
		p.Or(profile.WBC, notProvided),
		p.Or(profile.Hemoglobin, notProvided),
		p.Or(profile.Platelets, notProvided),
		p.Or(profile.Allergies, none),
		p.Or(profile.Medications, none),
		p.Or(profile.Dosage, notProvided),
		p.Or(profile.Environment, none),
	)
}

func allergyContext(allergen string, p profile.Profile) string {
	return fmt.Sprintf("Allergen to analyze: %q. %s", allergen, profileSummary(p))
}

func drugContext(in DrugInput, p profile.Profile) string {
	allergies := firstNonBlank(in.Allergies, p.Or(profile.Allergies, ""))
	meds := firstNonBlank(in.Medications, p.Or(profile.Medications, ""))

	var b strings.Builder
	fmt.Fprintf(&b, "Medication to analyze: %s\n\nPatient profile from Advisor tab:\n", in.Name)
	fmt.Fprintf(&b, "Blood Group: %s\n", p.Or(profile.BloodGroup, notProvided))
	fmt.Fprintf(&b, "Blood Pressure: %s mmHg\n", p.Or(profile.BloodPressure, notProvided))
	fmt.Fprintf(&b, "WBC: %s ×10³/µL | HGB: %s g/dL | PLT: %s ×10³/µL\n",
		p.Or(profile.WBC, notProvided), p.Or(profile.Hemoglobin, notProvided), p.Or(profile.Platelets, notProvided))
	fmt.Fprintf(&b, "RBC: %s ×10⁶/µL | MCV: %s fL | HCT: %s%%\n",
		p.Or(profile.RBC, notProvided), p.Or(profile.MCV, notProvided), p.Or(profile.Hematocrit, notProvided))
	fmt.Fprintf(&b, "Current medications: %s\n", orNone(meds))
	fmt.Fprintf(&b, "Known allergies: %s\n", orNone(allergies))
	fmt.Fprintf(&b, "Current conditions: %s\n", firstNonBlank(in.Conditions, "None specified"))
	fmt.Fprintf(&b, "Dosage context: %s\n", p.Or(profile.Dosage, notProvided))
	fmt.Fprintf(&b, "Environmental factors: %s\n\n", p.Or(profile.Environment, none))
	fmt.Fprintf(&b, "Assess whether %s is safe and appropriate for this patient, flag all interactions, contraindications, and risks.", in.Name)
	return b.String()
}

func voiceContext(transcript string, keywords []string, p profile.Profile, scanNote string) string {
	detected := "Not detected via keywords"
	if len(keywords) > 0 {
		detected = strings.Join(keywords, ", ")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Patient spoken natural language query: %q\nDetected symptom keywords: %s.", transcript, detected)
	if summary := profileSummary(p); summary != "" {
		b.WriteString(" " + summary)
	}
	if scanNote != "" {
		fmt.Fprintf(&b, " Recent scanned report context: %s.", scanNote)
	}
	return b.String()
}

func consultContext(description string, p profile.Profile) string {
	return strings.TrimSpace(fmt.Sprintf("Patient describes: %q. %s", description, profileSummary(p)))
}

func nutritionContext(goal string, p profile.Profile) string {
	return strings.TrimSpace(fmt.Sprintf("Condition or health goal: %q. %s", goal, profileSummary(p)))
}

func dashboardContext(entries []profile.HistoryEntry) string {
	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, "Patient longitudinal health data:")
	for i, e := range entries {
		p := e.Profile
		lines = append(lines, fmt.Sprintf(
			"Entry %d (%s): BG=%s, WBC=%s, PLT=%s, HGB=%s, HCT=%s, RBC=%s, BP=%s mmHg, Meds=%s, Allergies=%s",
			i+1, e.Timestamp.Format(time.DateOnly),
			p.Or(profile.BloodGroup, notProvided),
			p.Or(profile.WBC, notProvided),
			p.Or(profile.Platelets, notProvided),
			p.Or(profile.Hemoglobin, notProvided),
			p.Or(profile.Hematocrit, notProvided),
			p.Or(profile.RBC, notProvided),
			p.Or(profile.BloodPressure, notProvided),
			p.Or(profile.Medications, none),
			p.Or(profile.Allergies, none),
		))
	}
	return strings.Join(lines, "\n")
}

func documentContext(doc Document) string {
	ctx := fmt.Sprintf("Medical document uploaded: %q (%s, %.1fKB).", doc.Name, doc.MIMEType, float64(doc.Size)/1024)
	if doc.IsImage() {
		return ctx + " Please analyze this medical document and extract all visible medical data, values, and findings."
	}
	return ctx + " Please provide a typical medical report analysis and extraction based on the file name and context. Assume this is a standard blood/lab report if unclear."
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func orNone(v string) string {
	if v == "" {
		return none
	}
	return v
}
