package bucketing

import "hash/fnv"

// BucketCount is the size of the bucket space. Buckets are compared against
// percentages in [0,100], so the space is fixed at 100.
const BucketCount = 100

// Hash maps an arbitrary string key to a 32-bit value using FNV-1a.
//
// The function is pure and never seeded or salted per process; identical
// input yields an identical value on every platform. Do not change the
// algorithm: the resulting buckets are persisted implicitly in every
// historical assignment.
func Hash(key string) uint32 {
	h := fnv.New32a()
	// fnv.Write never returns an error.
	_, _ = h.Write([]byte(key))
	return h.Sum32()
}

// Bucket returns the key's stable position in [0,BucketCount).
func Bucket(key string) uint32 {
	return Hash(key) % BucketCount
}
