package experiment

import "context"

// ConfigStore supplies experiment and flag definitions. The engine reads it
// once during Init and never polls; picking up configuration changes
// requires re-initializing a new engine.
type ConfigStore interface {
	// LoadActiveExperiments returns every non-archived experiment
	// definition. The engine still enforces status and scheduling at
	// decision time.
	LoadActiveExperiments(ctx context.Context) ([]Experiment, error)

	// LoadActiveFlags returns every non-archived feature flag definition.
	LoadActiveFlags(ctx context.Context) ([]FeatureFlag, error)
}

// AssignmentStore is the durable record of (experiment, user) → variant.
// Implementations must treat SaveAssignment as write-once: a second write
// for the same (experiment, user) pair is a no-op, never an overwrite. All
// writes are best-effort from the engine's perspective; failures are logged
// by the engine and must not be retried synchronously.
type AssignmentStore interface {
	// LoadAssignments returns the user's existing assignments keyed by
	// experiment id.
	LoadAssignments(ctx context.Context, userID string) (map[string]string, error)

	// SaveAssignment persists a first-time assignment.
	SaveAssignment(ctx context.Context, a Assignment) error

	// SaveConversion records a conversion attributed to an assignment.
	SaveConversion(ctx context.Context, c Conversion) error
}

// EventEmitter receives exposure and conversion analytics events. Delivery
// is best-effort: the engine dispatches emissions off the decision path and
// only logs failures.
type EventEmitter interface {
	Emit(ctx context.Context, event string, props map[string]any) error
}
