// Package advisor runs the AI-backed features. Every run follows the same
// path: input validation, gate, configured check, completion, recovery,
// typed validation.
package advisor

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Skufu/vitreos/internal/completion"
	"github.com/Skufu/vitreos/internal/gate"
	"github.com/Skufu/vitreos/internal/metrics"
	"github.com/Skufu/vitreos/internal/profile"
	"github.com/Skufu/vitreos/internal/prompts"
	"github.com/Skufu/vitreos/internal/recovery"
	"github.com/Skufu/vitreos/internal/symptoms"
)

// Service holds the dependencies shared by all orchestrators.
type Service struct {
	profile  *profile.Store
	gate     *gate.Policy
	ai       completion.Completer
	keywords *symptoms.KeywordSet
	logger   zerolog.Logger

	mu          sync.Mutex
	lastScan    *ScanResult
	scanContext string
}

func New(store *profile.Store, policy *gate.Policy, ai completion.Completer, keywords *symptoms.KeywordSet, logger zerolog.Logger) *Service {
	return &Service{
		profile:  store,
		gate:     policy,
		ai:       ai,
		keywords: keywords,
		logger:   logger.With().Str("component", "advisor").Logger(),
	}
}

// checked is implemented by every typed result. check fills defaults and
// rejects schema violations.
type checked interface {
	check() error
}

// begin applies the gate and configured checks and snapshots the profile.
func (s *Service) begin(feature prompts.Feature) (prompts.Template, profile.Profile, error) {
	tpl := prompts.MustLookup(feature)
	if tpl.RequiresProfile && !s.gate.IsUnlocked(feature) {
		return tpl, nil, s.reject(&Failure{
			Kind:        KindLocked,
			Feature:     feature,
			Message:     "submit an advisor profile first",
			Placeholder: gate.Placeholder(feature),
		})
	}
	if !s.ai.Configured() {
		return tpl, nil, s.reject(&Failure{
			Kind:    KindNotConfigured,
			Feature: feature,
			Message: tpl.Section + " requires an AI API key",
		})
	}
	return tpl, s.profile.Snapshot(), nil
}

// exchange sends one request and decodes the recovered JSON into out.
func (s *Service) exchange(ctx context.Context, tpl prompts.Template, req completion.Request, out checked) error {
	req.Feature = string(tpl.Feature)
	req.Instructions = tpl.Instructions
	if req.MaxTokens == 0 {
		req.MaxTokens = tpl.MaxTokens
	}
	if req.Temperature == 0 {
		req.Temperature = tpl.Temperature
	}

	raw, err := s.ai.Complete(ctx, req)
	if err != nil {
		return s.reject(classify(tpl.Feature, err))
	}

	if err := recovery.Decode(raw, out); err != nil {
		return s.malformed(tpl.Feature, err)
	}
	if err := out.check(); err != nil {
		return s.malformed(tpl.Feature, recovery.Invalid(raw, "%s", err.Error()))
	}

	metrics.OrchestratorRuns.WithLabelValues(string(tpl.Feature), "completed").Inc()
	return nil
}

func (s *Service) malformed(feature prompts.Feature, err error) error {
	var mal *recovery.MalformedResponseError
	if errors.As(err, &mal) {
		s.logger.Warn().Str("feature", string(feature)).Str("raw", mal.Raw).Msg("unusable AI response")
	}
	return s.reject(classify(feature, err))
}

func (s *Service) reject(f *Failure) error {
	metrics.OrchestratorRuns.WithLabelValues(string(f.Feature), string(f.Kind)).Inc()
	ev := s.logger.Info()
	if f.Kind == KindRequestFailed || f.Kind == KindMalformed {
		ev = s.logger.Error()
	}
	ev.Str("feature", string(f.Feature)).Str("kind", string(f.Kind)).Msg(f.Message)
	return f
}
