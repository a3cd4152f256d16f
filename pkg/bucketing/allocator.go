package bucketing

// Choice is a weighted option for Pick. Weight is a share of the bucket
// space in [0,100].
type Choice struct {
	ID     string
	Weight int
}

// InPercentage reports whether the key falls within the given percentage
// gate. The gate is monotonic: a key admitted at pct is admitted at every
// higher percentage, so raising a rollout never un-admits anyone.
//
// pct >= 100 admits unconditionally without hashing and pct <= 0 rejects
// unconditionally, which keeps the boundary cases independent of hash
// distribution quality.
func InPercentage(pct int, key string) bool {
	if pct >= BucketCount {
		return true
	}
	if pct <= 0 {
		return false
	}
	return int(Bucket(key)) < pct
}

// Pick selects a choice by walking the slice in declaration order and
// accumulating weights until the cumulative weight exceeds the key's bucket.
// It returns the index of the selected choice, or -1 when the weights sum
// to less than the bucket value (e.g. allocations that round to slightly
// under 100); the caller decides the fallback.
//
// The walk order is load-bearing: reordering choices moves the cumulative
// boundaries and silently reassigns every key, so callers must pass choices
// in their original declaration order.
func Pick(choices []Choice, key string) int {
	if len(choices) == 0 {
		return -1
	}

	bucket := int(Bucket(key))
	cumulative := 0
	for i, c := range choices {
		if c.Weight <= 0 {
			continue
		}
		cumulative += c.Weight
		if bucket < cumulative {
			return i
		}
	}

	return -1
}
