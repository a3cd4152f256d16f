package experiment

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrymomot/experimentkit/pkg/targeting"
)

// Status is the lifecycle state of an experiment. Only running experiments
// are eligible for assignment.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

// IsEligible reports whether experiments in this status may assign variants.
func (s Status) IsEligible() bool {
	return s == StatusRunning
}

// statusTransitions encodes the allowed lifecycle moves. Archived is
// terminal; completed experiments can only be archived.
var statusTransitions = map[Status][]Status{
	StatusDraft:     {StatusRunning, StatusArchived},
	StatusRunning:   {StatusPaused, StatusCompleted, StatusArchived},
	StatusPaused:    {StatusRunning, StatusCompleted, StatusArchived},
	StatusCompleted: {StatusArchived},
	StatusArchived:  {},
}

// CanTransitionTo reports whether the lifecycle allows moving to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Variant is one arm of an experiment. Allocation is its share of
// in-experiment traffic in [0,100].
type Variant struct {
	ID         string `json:"id" yaml:"id"`
	Allocation int    `json:"allocation" yaml:"allocation"`
	IsControl  bool   `json:"is_control,omitempty" yaml:"is_control,omitempty"`
}

// Experiment is a read-only experiment definition as served by a
// ConfigStore. Variant order is part of the definition: the allocator walks
// variants in declaration order, so reordering them reassigns every user.
type Experiment struct {
	ID          string    `json:"id" yaml:"id"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Status      Status    `json:"status" yaml:"status"`
	Variants    []Variant `json:"variants" yaml:"variants"`

	// Targeting restricts which users are considered at all.
	Targeting targeting.Rules `json:"targeting,omitzero" yaml:"targeting,omitempty"`

	// TrafficAllocation is the percentage of targeted users admitted into
	// the experiment, gated before any variant is picked.
	TrafficAllocation int `json:"traffic_allocation" yaml:"traffic_allocation"`

	// Optional scheduling bounds. A nil bound is open-ended.
	StartAt *time.Time `json:"start_at,omitempty" yaml:"start_at,omitempty"`
	EndAt   *time.Time `json:"end_at,omitempty" yaml:"end_at,omitempty"`

	CreatedAt time.Time `json:"created_at,omitzero" yaml:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitzero" yaml:"updated_at,omitempty"`
}

// ActiveAt reports whether t falls within the experiment's scheduling
// bounds.
func (e *Experiment) ActiveAt(t time.Time) bool {
	if e.StartAt != nil && t.Before(*e.StartAt) {
		return false
	}
	if e.EndAt != nil && !t.Before(*e.EndAt) {
		return false
	}
	return true
}

// ControlVariant returns the fallback variant: the one flagged as control,
// or the first in declaration order when none is flagged.
func (e *Experiment) ControlVariant() (Variant, bool) {
	if len(e.Variants) == 0 {
		return Variant{}, false
	}
	for _, v := range e.Variants {
		if v.IsControl {
			return v, true
		}
	}
	return e.Variants[0], true
}

// Validate checks structural soundness of a definition. Allocation sums are
// deliberately not required to hit exactly 100: the allocator treats the
// control variant as the remainder bucket, which absorbs rounding.
func (e *Experiment) Validate() error {
	if e.ID == "" {
		return errors.Join(ErrInvalidDefinition, errors.New("experiment id cannot be empty"))
	}
	if len(e.Variants) == 0 {
		return errors.Join(ErrInvalidDefinition, fmt.Errorf("experiment %q has no variants", e.ID))
	}
	if e.TrafficAllocation < 0 || e.TrafficAllocation > 100 {
		return errors.Join(ErrInvalidDefinition,
			fmt.Errorf("experiment %q traffic allocation %d out of range", e.ID, e.TrafficAllocation))
	}

	seen := make(map[string]struct{}, len(e.Variants))
	for _, v := range e.Variants {
		if v.ID == "" {
			return errors.Join(ErrInvalidDefinition, fmt.Errorf("experiment %q has a variant with empty id", e.ID))
		}
		if _, dup := seen[v.ID]; dup {
			return errors.Join(ErrInvalidDefinition, fmt.Errorf("experiment %q variant %q declared twice", e.ID, v.ID))
		}
		seen[v.ID] = struct{}{}
		if v.Allocation < 0 || v.Allocation > 100 {
			return errors.Join(ErrInvalidDefinition,
				fmt.Errorf("experiment %q variant %q allocation %d out of range", e.ID, v.ID, v.Allocation))
		}
	}
	return nil
}

// FeatureFlag is a read-only flag definition as served by a ConfigStore.
type FeatureFlag struct {
	ID          string `json:"id" yaml:"id"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Enabled is the master kill switch checked before anything else.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Value is the typed payload returned to admitted users. A nil value
	// with Enabled=true is served as boolean true.
	Value any `json:"value,omitempty" yaml:"value,omitempty"`

	Targeting targeting.Rules `json:"targeting,omitzero" yaml:"targeting,omitempty"`

	// RolloutPercentage gates admitted users after targeting,
	// independently of it.
	RolloutPercentage int `json:"rollout_percentage" yaml:"rollout_percentage"`

	CreatedAt time.Time `json:"created_at,omitzero" yaml:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitzero" yaml:"updated_at,omitempty"`
}

// Validate checks structural soundness of a flag definition.
func (f *FeatureFlag) Validate() error {
	if f.ID == "" {
		return errors.Join(ErrInvalidDefinition, errors.New("flag id cannot be empty"))
	}
	if f.RolloutPercentage < 0 || f.RolloutPercentage > 100 {
		return errors.Join(ErrInvalidDefinition,
			fmt.Errorf("flag %q rollout percentage %d out of range", f.ID, f.RolloutPercentage))
	}
	return nil
}

// Assignment is the durable fact that a user resolved to a variant. Once
// written it is immutable for the experiment's lifetime; stores must treat
// writes for an existing (experiment, user) pair as no-ops.
type Assignment struct {
	ExperimentID string    `json:"experiment_id"`
	UserID       string    `json:"user_id"`
	VariantID    string    `json:"variant_id"`
	AssignedAt   time.Time `json:"assigned_at"`
}

// Conversion records a tracked action attributed to an assigned variant.
type Conversion struct {
	ExperimentID string    `json:"experiment_id"`
	UserID       string    `json:"user_id"`
	VariantID    string    `json:"variant_id"`
	MetricID     string    `json:"metric_id"`
	Value        float64   `json:"value"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Analytics event names emitted through the EventEmitter.
const (
	EventExperimentAssigned   = "experiment_assigned"
	EventExperimentExposed    = "experiment_exposed"
	EventExperimentConversion = "experiment_conversion"
	EventFeatureFlagAccessed  = "feature_flag_accessed"
)
