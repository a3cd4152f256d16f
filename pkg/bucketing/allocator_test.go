package bucketing_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/experimentkit/pkg/bucketing"
)

func TestInPercentage(t *testing.T) {
	t.Parallel()

	t.Run("Boundaries", func(t *testing.T) {
		t.Parallel()
		assert.True(t, bucketing.InPercentage(100, "anyone"))
		assert.True(t, bucketing.InPercentage(150, "anyone"))
		assert.False(t, bucketing.InPercentage(0, "anyone"))
		assert.False(t, bucketing.InPercentage(-5, "anyone"))
	})

	t.Run("Deterministic", func(t *testing.T) {
		t.Parallel()
		for i := range 100 {
			key := fmt.Sprintf("user-%d:new-dashboard", i)
			first := bucketing.InPercentage(40, key)
			for range 10 {
				assert.Equal(t, first, bucketing.InPercentage(40, key))
			}
		}
	})

	t.Run("Monotonic", func(t *testing.T) {
		t.Parallel()
		// A key admitted at a lower percentage must stay admitted at
		// every higher one; raising a rollout never kicks users out.
		for i := range 5_000 {
			key := fmt.Sprintf("user-%d:rollout", i)
			admitted := false
			for pct := 0; pct <= 100; pct += 5 {
				in := bucketing.InPercentage(pct, key)
				if admitted {
					require.True(t, in,
						"key %q un-admitted when pct raised to %d", key, pct)
				}
				admitted = admitted || in
			}
			require.True(t, admitted, "key %q never admitted even at 100", key)
		}
	})

	t.Run("ApproximatesPercentage", func(t *testing.T) {
		t.Parallel()
		const n = 100_000
		admitted := 0
		for i := range n {
			if bucketing.InPercentage(25, fmt.Sprintf("user-%d:gate", i)) {
				admitted++
			}
		}
		assert.InDelta(t, 0.25, float64(admitted)/n, 0.01)
	})
}

func TestPick(t *testing.T) {
	t.Parallel()

	even := []bucketing.Choice{
		{ID: "red", Weight: 50},
		{ID: "blue", Weight: 50},
	}

	t.Run("Empty", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, -1, bucketing.Pick(nil, "u1"))
		assert.Equal(t, -1, bucketing.Pick([]bucketing.Choice{}, "u1"))
	})

	t.Run("Deterministic", func(t *testing.T) {
		t.Parallel()
		first := bucketing.Pick(even, "u1:checkout-button-color")
		require.GreaterOrEqual(t, first, 0)
		for range 1_000 {
			assert.Equal(t, first, bucketing.Pick(even, "u1:checkout-button-color"))
		}
	})

	t.Run("SingleChoiceTakesAll", func(t *testing.T) {
		t.Parallel()
		all := []bucketing.Choice{{ID: "only", Weight: 100}}
		for i := range 1_000 {
			assert.Equal(t, 0, bucketing.Pick(all, fmt.Sprintf("user-%d", i)))
		}
	})

	t.Run("ZeroWeightNeverPicked", func(t *testing.T) {
		t.Parallel()
		choices := []bucketing.Choice{
			{ID: "off", Weight: 0},
			{ID: "on", Weight: 100},
		}
		for i := range 1_000 {
			assert.Equal(t, 1, bucketing.Pick(choices, fmt.Sprintf("user-%d", i)))
		}
	})

	t.Run("UnderhundredFallsThrough", func(t *testing.T) {
		t.Parallel()
		// Allocations that round to slightly under 100 leave a sliver of
		// the bucket space unclaimed; Pick signals it instead of guessing.
		short := []bucketing.Choice{
			{ID: "a", Weight: 33},
			{ID: "b", Weight: 33},
			{ID: "c", Weight: 33},
		}
		fellThrough := 0
		for i := range 10_000 {
			if bucketing.Pick(short, fmt.Sprintf("user-%d:short", i)) < 0 {
				fellThrough++
			}
		}
		// Roughly 1% of keys land in bucket 99.
		assert.Greater(t, fellThrough, 0)
		assert.InDelta(t, 100, fellThrough, 80)
	})

	t.Run("AllocationFidelity", func(t *testing.T) {
		t.Parallel()
		const n = 100_000
		counts := make([]int, len(even))
		for i := range n {
			idx := bucketing.Pick(even, fmt.Sprintf("user-%d:checkout-button-color", i))
			require.GreaterOrEqual(t, idx, 0)
			counts[idx]++
		}
		assert.InDelta(t, 0.5, float64(counts[0])/n, 0.015)
		assert.InDelta(t, 0.5, float64(counts[1])/n, 0.015)
	})

	t.Run("SkewedAllocationFidelity", func(t *testing.T) {
		t.Parallel()
		const n = 100_000
		skewed := []bucketing.Choice{
			{ID: "control", Weight: 90},
			{ID: "treatment", Weight: 10},
		}
		treated := 0
		for i := range n {
			if bucketing.Pick(skewed, fmt.Sprintf("user-%d:skew", i)) == 1 {
				treated++
			}
		}
		assert.InDelta(t, 0.10, float64(treated)/n, 0.01)
	})

	t.Run("IndependentAcrossExperiments", func(t *testing.T) {
		t.Parallel()
		// Joint distribution over two experiments for the same user
		// population. With independent bucketing each of the four cells
		// holds ~25%; a chi-square statistic over the 2x2 table should
		// stay far below the 0.001 critical value for 1 degree of
		// freedom (10.83).
		const n = 40_000
		var table [2][2]int
		for i := range n {
			user := fmt.Sprintf("user-%d", i)
			a := bucketing.Pick(even, user+":checkout-button-color")
			b := bucketing.Pick(even, user+":checkout-flow-v2")
			require.GreaterOrEqual(t, a, 0)
			require.GreaterOrEqual(t, b, 0)
			table[a][b]++
		}

		expected := float64(n) / 4
		chi2 := 0.0
		for _, row := range table {
			for _, observed := range row {
				diff := float64(observed) - expected
				chi2 += diff * diff / expected
			}
		}
		assert.Less(t, chi2, 10.83, "joint distribution %v rejects independence", table)
	})
}
