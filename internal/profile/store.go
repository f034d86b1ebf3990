package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Skufu/vitreos/internal/kv"
	"github.com/Skufu/vitreos/internal/metrics"
)

// Storage keys.
const (
	ProfileKey = "vitreos-advisor-profile"
	HistoryKey = "vitreos-hist"
)

// MaxHistory bounds the analysis history log.
const MaxHistory = 50

// ErrEmptyProfile is returned by Submit when no field has a value.
var ErrEmptyProfile = errors.New("profile has no usable field")

// HistoryEntry is an immutable snapshot taken at submission time.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"ts"`
	Profile   Profile   `json:"profile"`
}

// Store holds the one live profile. All mutations persist before the
// in-memory state changes.
type Store struct {
	kv     kv.Store
	logger zerolog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	current  Profile
	complete bool
	history  []HistoryEntry
}

func NewStore(backend kv.Store, logger zerolog.Logger) *Store {
	return &Store{
		kv:      backend,
		logger:  logger.With().Str("component", "profile").Logger(),
		now:     time.Now,
		current: Profile{},
	}
}

// Snapshot returns a copy of the current profile.
func (s *Store) Snapshot() Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Complete is true once a profile was submitted or restored, until Clear.
func (s *Store) Complete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.complete
}

// History returns entries newest first.
func (s *Store) History() []HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]HistoryEntry, len(s.history))
	for i, h := range s.history {
		out[i] = HistoryEntry{ID: h.ID, Timestamp: h.Timestamp, Profile: h.Profile.Clone()}
	}
	return out
}

// Submit replaces the whole profile, marks it complete and records a
// history entry.
func (s *Store) Submit(ctx context.Context, fields Profile) error {
	next := FromMap(fields.Map())
	if !next.Usable() {
		return ErrEmptyProfile
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := HistoryEntry{ID: uuid.NewString(), Timestamp: s.now().UTC(), Profile: next.Clone()}
	history := append([]HistoryEntry{entry}, s.history...)
	if len(history) > MaxHistory {
		history = history[:MaxHistory]
	}

	if err := s.putJSON(ctx, ProfileKey, next); err != nil {
		return err
	}
	if err := s.putJSON(ctx, HistoryKey, history); err != nil {
		if rbErr := s.restorePersisted(ctx); rbErr != nil {
			s.logger.Error().Err(rbErr).Msg("rollback of profile after failed history write failed")
		}
		return err
	}

	s.current = next
	s.complete = true
	s.history = history
	metrics.ProfileComplete.Set(1)

	s.logger.Info().Int("fields", len(next.ProvidedFields())).Int("history", len(history)).Msg("profile submitted")
	return nil
}

// Restore loads the persisted profile and history. Missing or corrupt data
// leaves the store empty; it never fails startup.
func (s *Store) Restore(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = s.loadHistory(ctx)

	var saved Profile
	if !s.getJSON(ctx, ProfileKey, &saved) {
		s.current = Profile{}
		s.complete = false
		return
	}
	restored := FromMap(saved.Map())
	if !restored.Usable() {
		s.logger.Warn().Msg("persisted profile has no usable field; treating as absent")
		s.current = Profile{}
		s.complete = false
		return
	}

	s.current = restored
	s.complete = true
	metrics.ProfileComplete.Set(1)
	s.logger.Info().Int("fields", len(s.current.ProvidedFields())).Msg("profile restored")
}

// ApplyExtracted merges the non-blank known fields of partial into the
// profile and returns how many were applied. Completeness is unchanged.
func (s *Store) ApplyExtracted(ctx context.Context, partial Profile) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Clone()
	applied := 0
	for f, v := range partial {
		if !Known(f) {
			continue
		}
		if _, ok := partial.Lookup(f); !ok {
			continue
		}
		next[f] = v
		applied++
	}
	if applied == 0 {
		return 0, nil
	}

	if err := s.putJSON(ctx, ProfileKey, next); err != nil {
		return 0, err
	}
	s.current = next
	s.logger.Info().Int("applied", applied).Msg("extracted fields applied")
	return applied, nil
}

// Clear drops the profile and its persisted copy. History is kept.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(ctx, ProfileKey); err != nil {
		return fmt.Errorf("clear profile: %w", err)
	}
	s.current = Profile{}
	s.complete = false
	metrics.ProfileComplete.Set(0)
	s.logger.Info().Msg("profile cleared")
	return nil
}

// ClearHistory drops every history entry.
func (s *Store) ClearHistory(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(ctx, HistoryKey); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	s.history = nil
	return nil
}

func (s *Store) loadHistory(ctx context.Context) []HistoryEntry {
	var entries []HistoryEntry
	if !s.getJSON(ctx, HistoryKey, &entries) {
		return nil
	}
	if len(entries) > MaxHistory {
		entries = entries[:MaxHistory]
	}
	return entries
}

// restorePersisted writes the in-memory profile back over ProfileKey, or
// deletes the key when there is nothing usable to keep. Callers hold s.mu.
func (s *Store) restorePersisted(ctx context.Context) error {
	if !s.current.Usable() {
		return s.kv.Delete(ctx, ProfileKey)
	}
	return s.putJSON(ctx, ProfileKey, s.current)
}

func (s *Store) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}

// getJSON reports whether key held a decodable value.
func (s *Store) getJSON(ctx context.Context, key string, v any) bool {
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return false
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("read failed; treating as absent")
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("corrupt value; treating as absent")
		return false
	}
	return true
}
