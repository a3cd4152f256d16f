package experiment_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/experimentkit/pkg/experiment"
)

func TestMemoryConfigStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("RejectsMalformedSeed", func(t *testing.T) {
		t.Parallel()
		_, err := experiment.NewMemoryConfigStore([]experiment.Experiment{{ID: "no-variants"}}, nil)
		assert.ErrorIs(t, err, experiment.ErrInvalidDefinition)
	})

	t.Run("FiltersArchivedExperiments", func(t *testing.T) {
		t.Parallel()
		archived := checkoutExperiment()
		archived.ID = "old-experiment"
		archived.Status = experiment.StatusArchived

		store, err := experiment.NewMemoryConfigStore(
			[]experiment.Experiment{checkoutExperiment(), archived}, nil)
		require.NoError(t, err)

		experiments, err := store.LoadActiveExperiments(ctx)
		require.NoError(t, err)
		require.Len(t, experiments, 1)
		assert.Equal(t, "checkout-button-color", experiments[0].ID)
	})

	t.Run("UpsertPreservesCreatedAt", func(t *testing.T) {
		t.Parallel()
		store, err := experiment.NewMemoryConfigStore([]experiment.Experiment{checkoutExperiment()}, nil)
		require.NoError(t, err)

		experiments, err := store.LoadActiveExperiments(ctx)
		require.NoError(t, err)
		created := experiments[0].CreatedAt

		updated := checkoutExperiment()
		updated.Description = "second revision"
		require.NoError(t, store.UpsertExperiment(ctx, updated))

		experiments, err = store.LoadActiveExperiments(ctx)
		require.NoError(t, err)
		require.Len(t, experiments, 1)
		assert.Equal(t, created, experiments[0].CreatedAt)
		assert.Equal(t, "second revision", experiments[0].Description)
		assert.True(t, experiments[0].UpdatedAt.After(created) || experiments[0].UpdatedAt.Equal(created))
	})

	t.Run("StatusTransitions", func(t *testing.T) {
		t.Parallel()
		draft := checkoutExperiment()
		draft.Status = experiment.StatusDraft
		store, err := experiment.NewMemoryConfigStore([]experiment.Experiment{draft}, nil)
		require.NoError(t, err)

		require.NoError(t, store.SetExperimentStatus(ctx, draft.ID, experiment.StatusRunning))
		require.NoError(t, store.SetExperimentStatus(ctx, draft.ID, experiment.StatusPaused))
		require.NoError(t, store.SetExperimentStatus(ctx, draft.ID, experiment.StatusRunning))
		require.NoError(t, store.SetExperimentStatus(ctx, draft.ID, experiment.StatusCompleted))
		require.NoError(t, store.SetExperimentStatus(ctx, draft.ID, experiment.StatusArchived))
	})

	t.Run("InvalidTransition", func(t *testing.T) {
		t.Parallel()
		completed := checkoutExperiment()
		completed.Status = experiment.StatusCompleted
		store, err := experiment.NewMemoryConfigStore([]experiment.Experiment{completed}, nil)
		require.NoError(t, err)

		err = store.SetExperimentStatus(ctx, completed.ID, experiment.StatusRunning)
		assert.ErrorIs(t, err, experiment.ErrInvalidTransition)
	})

	t.Run("TransitionUnknownExperiment", func(t *testing.T) {
		t.Parallel()
		store, err := experiment.NewMemoryConfigStore(nil, nil)
		require.NoError(t, err)
		err = store.SetExperimentStatus(ctx, "missing", experiment.StatusRunning)
		assert.ErrorIs(t, err, experiment.ErrExperimentNotFound)
	})

	t.Run("FlagLifecycle", func(t *testing.T) {
		t.Parallel()
		store, err := experiment.NewMemoryConfigStore(nil, nil)
		require.NoError(t, err)

		flag := experiment.FeatureFlag{ID: "new-dashboard", Enabled: true, RolloutPercentage: 25}
		require.NoError(t, store.UpsertFlag(ctx, flag))

		flags, err := store.LoadActiveFlags(ctx)
		require.NoError(t, err)
		require.Len(t, flags, 1)
		assert.Equal(t, 25, flags[0].RolloutPercentage)

		require.NoError(t, store.DeleteFlag(ctx, "new-dashboard"))
		flags, err = store.LoadActiveFlags(ctx)
		require.NoError(t, err)
		assert.Empty(t, flags)

		assert.ErrorIs(t, store.DeleteFlag(ctx, "new-dashboard"), experiment.ErrFlagNotFound)
	})
}

func TestMemoryAssignmentStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("WriteOnce", func(t *testing.T) {
		t.Parallel()
		store := experiment.NewMemoryAssignmentStore()

		first := experiment.Assignment{
			ExperimentID: "checkout-button-color",
			UserID:       "u1",
			VariantID:    "red",
			AssignedAt:   time.Now(),
		}
		require.NoError(t, store.SaveAssignment(ctx, first))

		second := first
		second.VariantID = "blue"
		require.NoError(t, store.SaveAssignment(ctx, second))

		got, ok := store.Assignment("checkout-button-color", "u1")
		require.True(t, ok)
		assert.Equal(t, "red", got.VariantID)
	})

	t.Run("LoadAssignments", func(t *testing.T) {
		t.Parallel()
		store := experiment.NewMemoryAssignmentStore()
		require.NoError(t, store.SaveAssignment(ctx, experiment.Assignment{
			ExperimentID: "exp-a", UserID: "u1", VariantID: "red",
		}))
		require.NoError(t, store.SaveAssignment(ctx, experiment.Assignment{
			ExperimentID: "exp-b", UserID: "u1", VariantID: "on",
		}))
		require.NoError(t, store.SaveAssignment(ctx, experiment.Assignment{
			ExperimentID: "exp-a", UserID: "u2", VariantID: "blue",
		}))

		got, err := store.LoadAssignments(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"exp-a": "red", "exp-b": "on"}, got)

		empty, err := store.LoadAssignments(ctx, "unknown")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("Conversions", func(t *testing.T) {
		t.Parallel()
		store := experiment.NewMemoryAssignmentStore()
		require.NoError(t, store.SaveConversion(ctx, experiment.Conversion{
			ExperimentID: "exp-a", UserID: "u1", VariantID: "red", MetricID: "purchase", Value: 9.99,
		}))
		require.NoError(t, store.SaveConversion(ctx, experiment.Conversion{
			ExperimentID: "exp-a", UserID: "u1", VariantID: "red", MetricID: "purchase", Value: 4.99,
		}))

		conversions := store.Conversions()
		require.Len(t, conversions, 2)
		assert.Equal(t, 9.99, conversions[0].Value)
		assert.Equal(t, 4.99, conversions[1].Value)
	})
}
