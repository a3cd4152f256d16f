package experiment

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/experimentkit/pkg/bucketing"
	"github.com/dmitrymomot/experimentkit/pkg/targeting"
)

// Engine is the experimentation decision engine. It composes targeting
// evaluation, deterministic bucketing, and the injected stores into a total
// decision API: every call returns a value, never an error, because flag
// and experiment checks routinely guard unrelated application logic.
//
// The decision path is lock-free over immutable configuration; the only
// mutable shared state is the assignment cache, guarded by an
// insert-if-absent discipline. Persistence and event emission happen on
// background goroutines and never block or fail a decision.
type Engine struct {
	configStore     ConfigStore
	assignmentStore AssignmentStore
	emitter         EventEmitter
	log             *slog.Logger
	platform        PlatformExtractor
	now             func() time.Time
	persistTimeout  time.Duration

	loadOnce sync.Once

	mu          sync.RWMutex
	experiments map[string]Experiment
	flags       map[string]FeatureFlag

	amu         sync.RWMutex
	assignments map[assignmentKey]string

	wg sync.WaitGroup
}

type assignmentKey struct {
	experimentID string
	userID       string
}

// New constructs an engine around the given stores. Construct once per
// process, call Init, and share the instance across request handlers.
func New(configStore ConfigStore, assignmentStore AssignmentStore, opts ...Option) (*Engine, error) {
	if configStore == nil || assignmentStore == nil {
		return nil, ErrStoreNil
	}

	e := &Engine{
		configStore:     configStore,
		assignmentStore: assignmentStore,
		log:             slog.Default(),
		now:             time.Now,
		persistTimeout:  5 * time.Second,
		experiments:     make(map[string]Experiment),
		flags:           make(map[string]FeatureFlag),
		assignments:     make(map[assignmentKey]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Init loads active experiment and flag definitions and optionally
// prefetches existing assignments for the given users to warm the cache.
// The definition load happens once per engine; prefetching runs on every
// call. Store failures degrade rather than abort: the engine logs them and
// proceeds with empty configuration or no prior assignments, since every
// decision can be recomputed deterministically.
func (e *Engine) Init(ctx context.Context, userIDs ...string) {
	e.loadOnce.Do(func() {
		e.loadDefinitions(ctx)
	})

	for _, userID := range userIDs {
		e.prefetchAssignments(ctx, userID)
	}
}

func (e *Engine) loadDefinitions(ctx context.Context) {
	experiments, err := e.configStore.LoadActiveExperiments(ctx)
	if err != nil {
		e.log.ErrorContext(ctx, "experiment: loading experiment definitions failed, proceeding with none",
			slog.Any("error", err))
	}
	flags, err := e.configStore.LoadActiveFlags(ctx)
	if err != nil {
		e.log.ErrorContext(ctx, "experiment: loading flag definitions failed, proceeding with none",
			slog.Any("error", err))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, exp := range experiments {
		if err := exp.Validate(); err != nil {
			e.log.WarnContext(ctx, "experiment: skipping malformed definition", slog.Any("error", err))
			continue
		}
		e.experiments[exp.ID] = exp
	}
	for _, flag := range flags {
		if err := flag.Validate(); err != nil {
			e.log.WarnContext(ctx, "experiment: skipping malformed flag", slog.Any("error", err))
			continue
		}
		e.flags[flag.ID] = flag
	}
}

func (e *Engine) prefetchAssignments(ctx context.Context, userID string) {
	if userID == "" {
		return
	}
	existing, err := e.assignmentStore.LoadAssignments(ctx, userID)
	if err != nil {
		e.log.WarnContext(ctx, "experiment: assignment prefetch failed, decisions will be recomputed",
			slog.String("user_id", userID), slog.Any("error", err))
		return
	}

	e.amu.Lock()
	defer e.amu.Unlock()
	for experimentID, variantID := range existing {
		key := assignmentKey{experimentID: experimentID, userID: userID}
		// Never overwrite what this process already decided.
		if _, ok := e.assignments[key]; !ok {
			e.assignments[key] = variantID
		}
	}
}

// GetVariant returns the variant assigned to the user for the experiment,
// or the empty string when the user is not in the experiment: unknown or
// non-running experiment, outside scheduling bounds, targeting rejection,
// or traffic-allocation rejection. The result is deterministic and sticky:
// once a (experiment, user) pair resolves to a variant, every subsequent
// call returns the same variant regardless of later configuration changes.
//
// An exposure event is emitted on every successful call, not only the
// first, since a user can be shown a treatment repeatedly.
func (e *Engine) GetVariant(ctx context.Context, experimentID, userID string, attrs targeting.Attributes) string {
	if experimentID == "" || userID == "" {
		return ""
	}

	key := assignmentKey{experimentID: experimentID, userID: userID}
	if variantID, ok := e.cachedAssignment(key); ok {
		e.emitExposure(ctx, experimentID, userID, variantID, false)
		return variantID
	}

	exp, ok := e.experiment(experimentID)
	if !ok || !exp.Status.IsEligible() || !exp.ActiveAt(e.now()) {
		return ""
	}
	if !exp.Targeting.Matches(attrs, e.platformOf(ctx)) {
		return ""
	}

	// The hash key combines user and experiment so bucketing outcomes are
	// independent across experiments for the same user.
	hashKey := userID + ":" + experimentID
	if !bucketing.InPercentage(exp.TrafficAllocation, hashKey) {
		return ""
	}

	variantID := pickVariant(&exp, hashKey)
	if variantID == "" {
		return ""
	}

	variantID, created := e.insertAssignment(key, variantID)
	if created {
		assignment := Assignment{
			ExperimentID: experimentID,
			UserID:       userID,
			VariantID:    variantID,
			AssignedAt:   e.now(),
		}
		e.dispatch(ctx, "save_assignment", func(ctx context.Context) error {
			return e.assignmentStore.SaveAssignment(ctx, assignment)
		})
		e.emitEvent(ctx, EventExperimentAssigned, map[string]any{
			"experiment_id": experimentID,
			"user_id":       userID,
			"variant_id":    variantID,
		})
	}

	e.emitExposure(ctx, experimentID, userID, variantID, created)
	return variantID
}

// GetFeatureFlag returns the flag's value for the user, or nil when the
// flag is unknown, disabled, rejected by targeting, or outside the rollout
// percentage. Flags carry no persisted assignment: the rollout gate hashes
// the same input on every call, so re-evaluation is naturally sticky while
// the percentage is unchanged, and raising the percentage only ever admits
// previously-excluded users.
func (e *Engine) GetFeatureFlag(ctx context.Context, flagID, userID string, attrs targeting.Attributes) any {
	if flagID == "" || userID == "" {
		return nil
	}

	flag, ok := e.flag(flagID)
	if !ok || !flag.Enabled {
		return nil
	}
	if !flag.Targeting.Matches(attrs, e.platformOf(ctx)) {
		return nil
	}
	if !bucketing.InPercentage(flag.RolloutPercentage, userID+":"+flagID) {
		return nil
	}

	value := flag.Value
	if value == nil {
		value = true
	}

	e.emitEvent(ctx, EventFeatureFlagAccessed, map[string]any{
		"flag_id": flagID,
		"user_id": userID,
		"value":   value,
	})
	return value
}

// IsFeatureEnabled is a convenience wrapper over GetFeatureFlag: nil is
// false, a boolean value is itself, and any other non-nil value is true.
func (e *Engine) IsFeatureEnabled(ctx context.Context, flagID, userID string, attrs targeting.Attributes) bool {
	value := e.GetFeatureFlag(ctx, flagID, userID, attrs)
	if value == nil {
		return false
	}
	if b, ok := value.(bool); ok {
		return b
	}
	return true
}

// TrackConversion records a conversion for the user's assigned variant. It
// is a no-op when the user holds no assignment for the experiment: a user
// cannot convert for a treatment they were never exposed to, and conversion
// tracking never assigns a variant as a side effect.
func (e *Engine) TrackConversion(ctx context.Context, experimentID, userID, metricID string, value float64) {
	key := assignmentKey{experimentID: experimentID, userID: userID}
	variantID, ok := e.cachedAssignment(key)
	if !ok {
		return
	}

	conversion := Conversion{
		ExperimentID: experimentID,
		UserID:       userID,
		VariantID:    variantID,
		MetricID:     metricID,
		Value:        value,
		OccurredAt:   e.now(),
	}
	e.dispatch(ctx, "save_conversion", func(ctx context.Context) error {
		return e.assignmentStore.SaveConversion(ctx, conversion)
	})
	e.emitEvent(ctx, EventExperimentConversion, map[string]any{
		"experiment_id": experimentID,
		"user_id":       userID,
		"variant_id":    variantID,
		"metric_id":     metricID,
		"value":         value,
	})
}

// Close waits for in-flight background writes and emissions to drain.
// Abandoning them on shutdown is safe for correctness (a lost assignment
// write is recomputed identically on next access) but flushing avoids
// losing analytics events.
func (e *Engine) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pickVariant selects a variant by cumulative weight, falling back to the
// control (or first) variant when allocations sum under the hashed bucket.
func pickVariant(exp *Experiment, hashKey string) string {
	choices := make([]bucketing.Choice, len(exp.Variants))
	for i, v := range exp.Variants {
		choices[i] = bucketing.Choice{ID: v.ID, Weight: v.Allocation}
	}

	if idx := bucketing.Pick(choices, hashKey); idx >= 0 {
		return exp.Variants[idx].ID
	}
	if control, ok := exp.ControlVariant(); ok {
		return control.ID
	}
	return ""
}

func (e *Engine) cachedAssignment(key assignmentKey) (string, bool) {
	e.amu.RLock()
	defer e.amu.RUnlock()
	variantID, ok := e.assignments[key]
	return variantID, ok
}

// insertAssignment writes the variant into the cache unless another
// goroutine got there first. Concurrent first-time decisions compute the
// identical variant anyway (the algorithm is pure), so the race is benign;
// the lock only protects the map itself and picks the single writer that
// persists.
func (e *Engine) insertAssignment(key assignmentKey, variantID string) (string, bool) {
	e.amu.Lock()
	defer e.amu.Unlock()
	if existing, ok := e.assignments[key]; ok {
		return existing, false
	}
	e.assignments[key] = variantID
	return variantID, true
}

func (e *Engine) experiment(id string) (Experiment, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	exp, ok := e.experiments[id]
	return exp, ok
}

func (e *Engine) flag(id string) (FeatureFlag, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	flag, ok := e.flags[id]
	return flag, ok
}

func (e *Engine) platformOf(ctx context.Context) targeting.Platform {
	if e.platform == nil {
		return targeting.PlatformUnknown
	}
	return e.platform(ctx)
}

func (e *Engine) emitExposure(ctx context.Context, experimentID, userID, variantID string, first bool) {
	e.emitEvent(ctx, EventExperimentExposed, map[string]any{
		"experiment_id":  experimentID,
		"user_id":        userID,
		"variant_id":     variantID,
		"first_exposure": first,
	})
}

func (e *Engine) emitEvent(ctx context.Context, event string, props map[string]any) {
	if e.emitter == nil {
		return
	}
	props["event_id"] = uuid.NewString()
	props["occurred_at"] = e.now().UTC()

	e.dispatch(ctx, event, func(ctx context.Context) error {
		return e.emitter.Emit(ctx, event, props)
	})
}

// dispatch runs fn on a background goroutine detached from the caller's
// cancellation, bounded by the persist timeout. Failures are logged, never
// propagated: the decision has already been returned.
func (e *Engine) dispatch(ctx context.Context, op string, fn func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, e.persistTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			e.log.ErrorContext(ctx, "experiment: background operation failed",
				slog.String("op", op), slog.Any("error", err))
		}
	}()
}
