// Package profile holds and evolves per-user accessibility profiles.
// The store is the sole owner of profile state: callers only ever see
// snapshots, and updates for one profile id are serialized through a
// per-key mutex so concurrent analyses never lose a count.
package profile

import (
	"log/slog"
	"sync"
	"time"

	"github.com/zombar/readassist/internal/models"
	"github.com/zombar/readassist/internal/scorer"
)

// SmoothingAlpha is the exponential-smoothing constant for the running
// comprehension estimate: new = (1-alpha)*old + alpha*observed. Fixed
// at 0.3 as part of the tested contract.
const SmoothingAlpha = 0.3

// severityEscalationRisk is the structural-risk floor above which a
// high-complexity analysis counts as evidence of reading difficulty.
const severityEscalationRisk = 0.25

// Persister is the storage backend. A nil backend keeps profiles
// in-memory only, which satisfies the within-process lifetime
// requirement on its own.
type Persister interface {
	SaveProfile(*models.UserProfile) error
	GetProfile(id string) (*models.UserProfile, error)
}

// Outcome is what one completed analysis feeds back into a profile.
type Outcome struct {
	Complexity     float64
	Confidence     float64
	StructuralRisk float64
	Terms          []models.TermMatch
}

// Store is the keyed profile store.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	db      Persister
	logger  *slog.Logger
	now     func() time.Time
}

type entry struct {
	mu      sync.Mutex
	profile models.UserProfile
}

// NewStore creates an in-memory store.
func NewStore() *Store {
	return NewStoreWithPersister(nil)
}

// NewStoreWithPersister creates a store backed by db. Profiles are
// loaded lazily on first access and written through on every update.
func NewStoreWithPersister(db Persister) *Store {
	return &Store{
		entries: make(map[string]*entry),
		db:      db,
		logger:  slog.Default(),
		now:     time.Now,
	}
}

// Get returns a snapshot of the profile for id, creating a default
// profile (severity unknown) on first contact.
func (s *Store) Get(id string) models.UserProfile {
	return s.Ensure(id, models.SeverityUnknown)
}

// Ensure returns a snapshot like Get, seeding a newly created profile
// with the given severity hint. The hint never overrides an existing
// profile.
func (s *Store) Ensure(id string, hint models.Severity) models.UserProfile {
	e := s.entry(id, hint)
	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshot(e.profile)
}

// Update applies one completed analysis outcome: increments the
// texts-analyzed counter, unions newly surfaced terms into the known
// set, recomputes the comprehension estimate and, when the evidence
// warrants, escalates severity one level. The whole mutation happens
// under the profile's key lock and is written through atomically.
func (s *Store) Update(id string, outcome Outcome) models.UserProfile {
	p, _ := s.UpdateWith(id, outcome, nil)
	return p
}

// UpdateWith applies outcome like Update, but first runs commit with
// the post-update snapshot while still holding the key lock. If commit
// fails the mutation is discarded and the profile stays exactly as it
// was, so a retried caller applies the outcome at most once. A nil
// commit always applies.
func (s *Store) UpdateWith(id string, outcome Outcome, commit func(models.UserProfile) error) (models.UserProfile, error) {
	e := s.entry(id, models.SeverityUnknown)
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.profile
	p.KnownTerms = append([]string(nil), p.KnownTerms...)
	p.TextsAnalyzed++

	for _, t := range outcome.Terms {
		if !p.Knows(t.Term) {
			p.KnownTerms = append(p.KnownTerms, t.Term)
		}
	}

	// Observed comprehension is the inverse of complexity, pulled
	// toward neutral when the assessment itself was uncertain.
	observed := 1 - outcome.Complexity
	observed = 0.5 + outcome.Confidence*(observed-0.5)
	if p.TextsAnalyzed == 1 {
		p.Comprehension = observed
	} else {
		p.Comprehension = (1-SmoothingAlpha)*p.Comprehension + SmoothingAlpha*observed
	}

	if outcome.Complexity > scorer.BandModerateMax && outcome.StructuralRisk > severityEscalationRisk {
		p.Severity = escalate(p.Severity)
	}

	p.UpdatedAt = s.now().UTC()

	if commit != nil {
		if err := commit(snapshot(p)); err != nil {
			return snapshot(e.profile), err
		}
	}

	e.profile = p

	if s.db != nil {
		if err := s.db.SaveProfile(&e.profile); err != nil {
			// In-memory state stays authoritative for this process.
			s.logger.Error("failed to persist profile", "profile_id", id, "error", err)
		}
	}

	return snapshot(p), nil
}

// Exists reports whether a profile has ever been seen, without
// creating one.
func (s *Store) Exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; ok {
		return true
	}
	if s.db != nil {
		if _, err := s.db.GetProfile(id); err == nil {
			return true
		}
	}
	return false
}

// entry returns the live entry for id, creating or loading it.
func (s *Store) entry(id string, hint models.Severity) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[id]; ok {
		return e
	}

	if s.db != nil {
		if stored, err := s.db.GetProfile(id); err == nil {
			e := &entry{profile: *stored}
			s.entries[id] = e
			return e
		}
	}

	now := s.now().UTC()
	e := &entry{profile: models.UserProfile{
		ID:        id,
		Severity:  hint,
		CreatedAt: now,
		UpdatedAt: now,
	}}
	if e.profile.Severity == "" {
		e.profile.Severity = models.SeverityUnknown
	}
	s.entries[id] = e
	return e
}

// escalate moves severity up one level, never past moderate: severe is
// only ever set by an explicit caller hint.
func escalate(s models.Severity) models.Severity {
	switch s {
	case models.SeverityUnknown, models.SeverityNone:
		return models.SeverityMild
	case models.SeverityMild:
		return models.SeverityModerate
	default:
		return s
	}
}

func snapshot(p models.UserProfile) models.UserProfile {
	p.KnownTerms = append([]string(nil), p.KnownTerms...)
	return p
}
