package advisor

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/Skufu/vitreos/internal/completion"
	"github.com/Skufu/vitreos/internal/prompts"
)

// Advisor analyses the submitted blood report.
func (s *Service) Advisor(ctx context.Context) ([]Finding, error) {
	tpl, snap, err := s.begin(prompts.Advisor)
	if err != nil {
		return nil, err
	}
	var list findingList
	if err := s.exchange(ctx, tpl, completion.Request{Context: bloodReport(snap)}, &list); err != nil {
		return nil, err
	}
	return list.findings(), nil
}

// Voice triages a spoken query. An empty transcript falls back to what the
// keyword set has accumulated.
func (s *Service) Voice(ctx context.Context, transcript string) (*TriageResult, error) {
	keywords := s.keywords.Keywords()
	transcript = firstNonBlank(transcript, s.keywords.Transcript())
	if transcript == "" && len(keywords) == 0 {
		return nil, s.reject(invalid(prompts.Voice, "no voice input detected yet"))
	}
	if transcript == "" {
		transcript = strings.Join(keywords, ", ")
	}

	tpl, snap, err := s.begin(prompts.Voice)
	if err != nil {
		return nil, err
	}
	req := completion.Request{Context: voiceContext(transcript, keywords, snap, s.lastScanContext())}
	var res TriageResult
	if err := s.exchange(ctx, tpl, req, &res); err != nil {
		return nil, err
	}
	res.Keywords = keywords
	return &res, nil
}

// Allergy cross-references an allergen against the profile.
func (s *Service) Allergy(ctx context.Context, allergen string) (*AllergyResult, error) {
	allergen = strings.TrimSpace(allergen)
	if utf8.RuneCountInString(allergen) < 2 {
		return nil, s.reject(invalid(prompts.Allergy, "allergen must be at least 2 characters"))
	}
	tpl, snap, err := s.begin(prompts.Allergy)
	if err != nil {
		return nil, err
	}
	var res AllergyResult
	if err := s.exchange(ctx, tpl, completion.Request{Context: allergyContext(allergen, snap)}, &res); err != nil {
		return nil, err
	}
	res.Allergen = allergen
	return &res, nil
}

// DrugInput fields other than Name override the profile when set.
type DrugInput struct {
	Name        string `json:"name"`
	Allergies   string `json:"allergies"`
	Medications string `json:"medications"`
	Conditions  string `json:"conditions"`
}

// Drug assesses medication safety and bands the returned score.
func (s *Service) Drug(ctx context.Context, in DrugInput) (*DrugResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, s.reject(invalid(prompts.Drug, "medication name is required"))
	}
	tpl, snap, err := s.begin(prompts.Drug)
	if err != nil {
		return nil, err
	}
	var wire drugWire
	if err := s.exchange(ctx, tpl, completion.Request{Context: drugContext(in, snap)}, &wire); err != nil {
		return nil, err
	}
	return wire.result(in.Name), nil
}

// Consult triages a written symptom description.
func (s *Service) Consult(ctx context.Context, description string) (*ConsultResult, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, s.reject(invalid(prompts.Consult, "describe your symptoms first"))
	}
	tpl, snap, err := s.begin(prompts.Consult)
	if err != nil {
		return nil, err
	}
	var res ConsultResult
	if err := s.exchange(ctx, tpl, completion.Request{Context: consultContext(description, snap)}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Nutrition builds a diet plan for a condition or goal.
func (s *Service) Nutrition(ctx context.Context, goal string) (*NutritionResult, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return nil, s.reject(invalid(prompts.Nutrition, "enter a condition or health goal"))
	}
	tpl, snap, err := s.begin(prompts.Nutrition)
	if err != nil {
		return nil, err
	}
	var res NutritionResult
	if err := s.exchange(ctx, tpl, completion.Request{Context: nutritionContext(goal, snap)}, &res); err != nil {
		return nil, err
	}
	if strings.TrimSpace(res.Label) == "" {
		res.Label = goal
	}
	return &res, nil
}
