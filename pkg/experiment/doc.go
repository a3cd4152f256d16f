// Package experiment implements a deterministic experimentation and
// feature-flag decision engine.
//
// The engine answers one question: for this user and this experiment or
// flag, which treatment applies? The answer must be identical on every
// call, on every application instance, and after every restart, without a
// central coordinator deciding per request. That follows from three design
// rules:
//
//  1. Decisions derive from a stable hash of userID+":"+experimentID
//     (pkg/bucketing), so any instance computes the same result.
//  2. Assignments are write-once. The engine caches the first decision in
//     memory and persists it asynchronously; stores enforce that a second
//     write for the same pair never overwrites the first. Changing
//     targeting rules or traffic percentages later never flips an
//     already-assigned user.
//  3. The decision path is total. Unknown ids, malformed attributes,
//     missing configuration, and store outages all degrade to "not in the
//     experiment" — they never become errors in the calling code path.
//
// # Usage
//
//	store, err := experiment.NewMemoryConfigStore([]experiment.Experiment{{
//		ID:     "checkout-button-color",
//		Status: experiment.StatusRunning,
//		Variants: []experiment.Variant{
//			{ID: "red", Allocation: 50, IsControl: true},
//			{ID: "blue", Allocation: 50},
//		},
//		TrafficAllocation: 100,
//	}}, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	engine, err := experiment.New(store, experiment.NewMemoryAssignmentStore(),
//		experiment.WithEventEmitter(experiment.NewLogEmitter(nil)),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	engine.Init(ctx)
//	defer engine.Close(ctx)
//
//	variant := engine.GetVariant(ctx, "checkout-button-color", userID, nil)
//	// later, when the user checks out:
//	engine.TrackConversion(ctx, "checkout-button-color", userID, "purchase", 1)
//
// # Stores
//
// Configuration comes from a ConfigStore (in-memory or YAML file);
// assignments and conversions go to an AssignmentStore with in-memory,
// Redis, Postgres, and MongoDB implementations. All durable backends
// enforce write-once assignments at the storage layer (HSETNX, ON CONFLICT
// DO NOTHING, $setOnInsert), so even writers racing across processes
// converge on the first recorded variant.
//
// # Side effects
//
// Persistence and analytics emission are fire-and-forget: the decision
// returns after the in-memory cache write, and background goroutines handle
// I/O with a bounded timeout. Failures are logged and swallowed — a lost
// assignment write merely means the identical decision is recomputed and
// re-persisted on the next access.
//
// # Feature flags
//
// Flags carry no persisted assignment. The rollout gate hashes the same
// input on every evaluation, so results are stable while the percentage is
// unchanged, and the gate is monotonic: raising the percentage admits new
// users but can never un-admit previously included ones. If product
// requirements ever demand values that stay sticky across rollout changes,
// that is a new persistence feature, not a tweak to this path.
package experiment
