package experiment

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// MemoryConfigStore is an in-memory ConfigStore with a small management
// surface. It's useful for testing, local development, and applications
// whose definitions ship with the binary.
type MemoryConfigStore struct {
	mu          sync.RWMutex
	experiments map[string]Experiment
	flags       map[string]FeatureFlag
}

// NewMemoryConfigStore creates a store seeded with the given definitions.
// Every definition is validated; a single malformed entry fails creation.
func NewMemoryConfigStore(experiments []Experiment, flags []FeatureFlag) (*MemoryConfigStore, error) {
	s := &MemoryConfigStore{
		experiments: make(map[string]Experiment, len(experiments)),
		flags:       make(map[string]FeatureFlag, len(flags)),
	}

	now := time.Now()
	for _, exp := range experiments {
		if err := exp.Validate(); err != nil {
			return nil, err
		}
		if exp.CreatedAt.IsZero() {
			exp.CreatedAt = now
		}
		if exp.UpdatedAt.IsZero() {
			exp.UpdatedAt = exp.CreatedAt
		}
		exp.Variants = slices.Clone(exp.Variants)
		s.experiments[exp.ID] = exp
	}
	for _, flag := range flags {
		if err := flag.Validate(); err != nil {
			return nil, err
		}
		if flag.CreatedAt.IsZero() {
			flag.CreatedAt = now
		}
		if flag.UpdatedAt.IsZero() {
			flag.UpdatedAt = flag.CreatedAt
		}
		s.flags[flag.ID] = flag
	}
	return s, nil
}

// LoadActiveExperiments returns copies of all non-archived experiments.
func (s *MemoryConfigStore) LoadActiveExperiments(ctx context.Context) ([]Experiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Experiment, 0, len(s.experiments))
	for _, exp := range s.experiments {
		if exp.Status == StatusArchived {
			continue
		}
		exp.Variants = slices.Clone(exp.Variants)
		result = append(result, exp)
	}
	return result, nil
}

// LoadActiveFlags returns copies of all flags.
func (s *MemoryConfigStore) LoadActiveFlags(ctx context.Context) ([]FeatureFlag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]FeatureFlag, 0, len(s.flags))
	for _, flag := range s.flags {
		result = append(result, flag)
	}
	return result, nil
}

// UpsertExperiment creates or replaces an experiment definition.
func (s *MemoryConfigStore) UpsertExperiment(ctx context.Context, exp Experiment) error {
	if err := exp.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.experiments[exp.ID]; ok {
		exp.CreatedAt = existing.CreatedAt
	} else if exp.CreatedAt.IsZero() {
		exp.CreatedAt = now
	}
	exp.UpdatedAt = now
	exp.Variants = slices.Clone(exp.Variants)
	s.experiments[exp.ID] = exp
	return nil
}

// SetExperimentStatus moves an experiment through its lifecycle, enforcing
// the allowed transitions.
func (s *MemoryConfigStore) SetExperimentStatus(ctx context.Context, experimentID string, next Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.experiments[experimentID]
	if !ok {
		return ErrExperimentNotFound
	}
	if !exp.Status.CanTransitionTo(next) {
		return errors.Join(ErrInvalidTransition,
			fmt.Errorf("cannot move experiment %q from %s to %s", experimentID, exp.Status, next))
	}

	exp.Status = next
	exp.UpdatedAt = time.Now()
	s.experiments[experimentID] = exp
	return nil
}

// UpsertFlag creates or replaces a feature flag definition.
func (s *MemoryConfigStore) UpsertFlag(ctx context.Context, flag FeatureFlag) error {
	if err := flag.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.flags[flag.ID]; ok {
		flag.CreatedAt = existing.CreatedAt
	} else if flag.CreatedAt.IsZero() {
		flag.CreatedAt = now
	}
	flag.UpdatedAt = now
	s.flags[flag.ID] = flag
	return nil
}

// DeleteFlag removes a feature flag definition.
func (s *MemoryConfigStore) DeleteFlag(ctx context.Context, flagID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.flags[flagID]; !ok {
		return ErrFlagNotFound
	}
	delete(s.flags, flagID)
	return nil
}

// MemoryAssignmentStore is an in-memory AssignmentStore. Assignments are
// write-once: a second save for the same (experiment, user) pair is a
// silent no-op, mirroring the contract durable implementations follow.
type MemoryAssignmentStore struct {
	mu          sync.RWMutex
	assignments map[string]map[string]Assignment
	conversions []Conversion
}

// NewMemoryAssignmentStore creates an empty in-memory assignment store.
func NewMemoryAssignmentStore() *MemoryAssignmentStore {
	return &MemoryAssignmentStore{
		assignments: make(map[string]map[string]Assignment),
	}
}

// LoadAssignments returns the user's assignments keyed by experiment id.
func (s *MemoryAssignmentStore) LoadAssignments(ctx context.Context, userID string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]string, len(s.assignments[userID]))
	for experimentID, a := range s.assignments[userID] {
		result[experimentID] = a.VariantID
	}
	return result, nil
}

// SaveAssignment records a first-time assignment; existing records win.
func (s *MemoryAssignmentStore) SaveAssignment(ctx context.Context, a Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byExperiment, ok := s.assignments[a.UserID]
	if !ok {
		byExperiment = make(map[string]Assignment)
		s.assignments[a.UserID] = byExperiment
	}
	if _, exists := byExperiment[a.ExperimentID]; exists {
		return nil
	}
	byExperiment[a.ExperimentID] = a
	return nil
}

// SaveConversion appends a conversion record.
func (s *MemoryAssignmentStore) SaveConversion(ctx context.Context, c Conversion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversions = append(s.conversions, c)
	return nil
}

// Conversions returns a copy of all recorded conversions.
func (s *MemoryAssignmentStore) Conversions() []Conversion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.conversions)
}

// Assignment returns the stored assignment for the pair, if any.
func (s *MemoryAssignmentStore) Assignment(experimentID, userID string) (Assignment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[userID][experimentID]
	return a, ok
}
