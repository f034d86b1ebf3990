// Package gate decides whether profile-dependent AI features may run.
package gate

import (
	"github.com/Skufu/vitreos/internal/prompts"
)

// Completeness is satisfied by *profile.Store.
type Completeness interface {
	Complete() bool
}

type Policy struct {
	profile Completeness
}

func NewPolicy(profile Completeness) *Policy {
	return &Policy{profile: profile}
}

// IsUnlocked depends only on profile completeness. Callers decide whether a
// feature consults the policy at all.
func (p *Policy) IsUnlocked(feature prompts.Feature) bool {
	return p.profile.Complete()
}

var placeholders = map[prompts.Feature]string{
	prompts.Advisor:   "Submit your blood report, allergies, and medications to run the advisor analysis.",
	prompts.Allergy:   "Fill in your blood report, allergies, and medications in the Advisor tab. The AI will then cross-reference every allergen you search against your personal health data for a fully personalised analysis.",
	prompts.Drug:      "Submit your blood report in the Advisor tab for fully personalised drug interaction analysis. All severity results will be cross-referenced with your health data.",
	prompts.Dashboard: "Submit your blood report in the Advisor tab to unlock personalised dashboard insights.",
}

// Placeholder is the message shown instead of a locked feature.
func Placeholder(feature prompts.Feature) string {
	if msg, ok := placeholders[feature]; ok {
		return "Incomplete Advisor Profile: " + msg
	}
	return "Incomplete Advisor Profile: complete the Advisor form to enable this feature."
}

// FeatureStatus describes one feature for clients deciding what to show.
type FeatureStatus struct {
	Feature         prompts.Feature `json:"feature"`
	RequiresProfile bool            `json:"requiresProfile"`
	Unlocked        bool            `json:"unlocked"`
	Placeholder     string          `json:"placeholder,omitempty"`
}

// Status reports every registered feature.
func (p *Policy) Status() []FeatureStatus {
	features := prompts.Features()
	out := make([]FeatureStatus, 0, len(features))
	for _, f := range features {
		tpl := prompts.MustLookup(f)
		st := FeatureStatus{Feature: f, RequiresProfile: tpl.RequiresProfile, Unlocked: true}
		if tpl.RequiresProfile && !p.IsUnlocked(f) {
			st.Unlocked = false
			st.Placeholder = Placeholder(f)
		}
		out = append(out, st)
	}
	return out
}
