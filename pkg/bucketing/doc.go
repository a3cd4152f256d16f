// Package bucketing provides deterministic user bucketing primitives for
// experiment assignment and percentage rollouts.
//
// All decisions are derived from a stable FNV-1a hash of a caller-supplied
// key, folded into the [0,100) bucket space. The same key always lands in
// the same bucket on every process, host, and restart, which is what makes
// coordinator-free experiment assignment possible: any instance computing a
// decision for a given key arrives at the identical result.
//
// # Stability contract
//
// The hash algorithm is part of the package's public contract. Changing it
// is equivalent to re-randomizing every user's bucket across all experiments
// and rollouts at once, and must be treated as a breaking migration. The
// known-answer tests in this package exist to catch accidental changes.
//
// # Usage
//
// Percentage gating:
//
//	if bucketing.InPercentage(25, userID+":"+experimentID) {
//		// user is within the 25% gate
//	}
//
// Weighted selection:
//
//	choices := []bucketing.Choice{
//		{ID: "control", Weight: 50},
//		{ID: "treatment", Weight: 50},
//	}
//	idx := bucketing.Pick(choices, userID+":"+experimentID)
//	if idx < 0 {
//		// weights summed under the bucket value; caller falls back
//	}
//
// Keys should combine the subject and the decision scope (for example
// userID+":"+experimentID) so that bucketing outcomes are statistically
// independent across experiments for the same user.
package bucketing
