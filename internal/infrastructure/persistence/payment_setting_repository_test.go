package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mealfee/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormPaymentSettingRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewGormPaymentSettingRepository(db)
	schoolID := uuid.New()

	t.Run("save and reload", func(t *testing.T) {
		setting := newPersistedSetting(t, schoolID)
		require.NoError(t, repo.Save(ctx, setting))

		loaded, err := repo.FindByID(ctx, setting.ID)
		require.NoError(t, err)
		assert.Equal(t, setting.Year, loaded.Year)
		assert.True(t, loaded.MealPricePerDay.Equal(setting.MealPricePerDay))
		assert.True(t, loaded.IsActive)
	})

	t.Run("active month window query", func(t *testing.T) {
		scoped := uuid.New()
		setting := newPersistedSetting(t, scoped)
		require.NoError(t, repo.Save(ctx, setting))

		covering, err := repo.FindActiveForMonth(ctx, scoped, 2026, 3)
		require.NoError(t, err)
		require.Len(t, covering, 1)
		assert.Equal(t, setting.ID, covering[0].ID)

		outside, err := repo.FindActiveForMonth(ctx, scoped, 2025, 3)
		require.NoError(t, err)
		assert.Empty(t, outside)

		otherSchool, err := repo.FindActiveForMonth(ctx, uuid.New(), 2026, 3)
		require.NoError(t, err)
		assert.Empty(t, otherSchool)
	})

	t.Run("deactivated setting drops out of the window query", func(t *testing.T) {
		scoped := uuid.New()
		setting := newPersistedSetting(t, scoped)
		require.NoError(t, repo.Save(ctx, setting))

		setting.SetActive(false)
		require.NoError(t, repo.SaveWithLock(ctx, setting))

		covering, err := repo.FindActiveForMonth(ctx, scoped, 2026, 3)
		require.NoError(t, err)
		assert.Empty(t, covering)
	})

	t.Run("optimistic lock rejects a stale version", func(t *testing.T) {
		setting := newPersistedSetting(t, uuid.New())
		require.NoError(t, repo.Save(ctx, setting))

		a, err := repo.FindByID(ctx, setting.ID)
		require.NoError(t, err)
		b, err := repo.FindByID(ctx, setting.ID)
		require.NoError(t, err)

		require.NoError(t, a.UpdatePricing(decimal.NewFromInt(21000), a.TotalAmount))
		require.NoError(t, repo.SaveWithLock(ctx, a))

		require.NoError(t, b.UpdatePricing(decimal.NewFromInt(22000), b.TotalAmount))
		assert.ErrorIs(t, repo.SaveWithLock(ctx, b), shared.ErrConcurrencyConflict)
	})

	t.Run("delete", func(t *testing.T) {
		setting := newPersistedSetting(t, uuid.New())
		require.NoError(t, repo.Save(ctx, setting))

		require.NoError(t, repo.Delete(ctx, setting.ID))
		_, err := repo.FindByID(ctx, setting.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, setting.ID), shared.ErrNotFound)
	})
}
