package experiment

import "errors"

// Predefined errors for the experiment package. The decision path
// (GetVariant, GetFeatureFlag, IsFeatureEnabled, TrackConversion) never
// returns errors; these surface from store implementations, the management
// surface, and initialization helpers.
var (
	// ErrInvalidDefinition indicates a structurally broken experiment or
	// flag definition.
	ErrInvalidDefinition = errors.New("invalid experiment definition")

	// ErrExperimentNotFound indicates the referenced experiment does not
	// exist in the store.
	ErrExperimentNotFound = errors.New("experiment not found")

	// ErrFlagNotFound indicates the referenced feature flag does not
	// exist in the store.
	ErrFlagNotFound = errors.New("feature flag not found")

	// ErrInvalidTransition indicates a lifecycle move the status machine
	// does not allow.
	ErrInvalidTransition = errors.New("invalid experiment status transition")

	// ErrStoreUnavailable wraps I/O failures from backing stores.
	ErrStoreUnavailable = errors.New("experiment store unavailable")

	// ErrStoreNil indicates a required store dependency was not provided.
	ErrStoreNil = errors.New("store dependency cannot be nil")
)
