package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mealfee/backend/internal/domain/billing"
	"github.com/mealfee/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type settingServiceFixture struct {
	svc         *PaymentSettingService
	settingRepo *memSettingRepo
	invoiceRepo *memInvoiceRepo
	schoolID    uuid.UUID
}

func newSettingServiceFixture(t *testing.T) *settingServiceFixture {
	t.Helper()
	settingRepo := newMemSettingRepo()
	invoiceRepo := newMemInvoiceRepo()
	return &settingServiceFixture{
		svc: NewPaymentSettingService(PaymentSettingServiceConfig{
			SettingRepo: settingRepo,
			InvoiceRepo: invoiceRepo,
		}),
		settingRepo: settingRepo,
		invoiceRepo: invoiceRepo,
		schoolID:    uuid.New(),
	}
}

func (f *settingServiceFixture) createRequest(year, from, to int) CreatePaymentSettingRequest {
	return CreatePaymentSettingRequest{
		SchoolID:        f.schoolID,
		Year:            year,
		FromMonth:       from,
		ToMonth:         to,
		MealPricePerDay: decimal.NewFromInt(20000),
		TotalAmount:     decimal.NewFromInt(440000),
	}
}

func TestPaymentSettingServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an active setting", func(t *testing.T) {
		f := newSettingServiceFixture(t)
		resp, err := f.svc.Create(ctx, f.createRequest(2026, 1, 5))
		require.NoError(t, err)
		assert.True(t, resp.IsActive)
		assert.Equal(t, 2026, resp.Year)
	})

	t.Run("overlapping active window is rejected", func(t *testing.T) {
		f := newSettingServiceFixture(t)
		_, err := f.svc.Create(ctx, f.createRequest(2026, 1, 5))
		require.NoError(t, err)

		_, err = f.svc.Create(ctx, f.createRequest(2026, 5, 9))
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeConflict, domainErr.Code)
	})

	t.Run("adjacent windows do not collide", func(t *testing.T) {
		f := newSettingServiceFixture(t)
		_, err := f.svc.Create(ctx, f.createRequest(2026, 1, 5))
		require.NoError(t, err)

		_, err = f.svc.Create(ctx, f.createRequest(2026, 6, 12))
		assert.NoError(t, err)
	})

	t.Run("same window in another school is independent", func(t *testing.T) {
		f := newSettingServiceFixture(t)
		_, err := f.svc.Create(ctx, f.createRequest(2026, 1, 5))
		require.NoError(t, err)

		other := f.createRequest(2026, 1, 5)
		other.SchoolID = uuid.New()
		_, err = f.svc.Create(ctx, other)
		assert.NoError(t, err)
	})

	t.Run("invalid month range rejected", func(t *testing.T) {
		f := newSettingServiceFixture(t)
		_, err := f.svc.Create(ctx, f.createRequest(2026, 9, 2))
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeValidation, domainErr.Code)
	})
}

func TestPaymentSettingServiceGetActiveFor(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves the single covering setting", func(t *testing.T) {
		f := newSettingServiceFixture(t)
		created, err := f.svc.Create(ctx, f.createRequest(2026, 1, 5))
		require.NoError(t, err)

		resp, err := f.svc.GetActiveFor(ctx, f.schoolID, 2026, 3)
		require.NoError(t, err)
		assert.Equal(t, created.ID, resp.ID)
	})

	t.Run("no covering setting is a configuration error", func(t *testing.T) {
		f := newSettingServiceFixture(t)
		_, err := f.svc.GetActiveFor(ctx, f.schoolID, 2026, 3)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeConfiguration, domainErr.Code)
	})

	t.Run("inactive setting does not cover", func(t *testing.T) {
		f := newSettingServiceFixture(t)
		created, err := f.svc.Create(ctx, f.createRequest(2026, 1, 5))
		require.NoError(t, err)

		inactive := false
		_, err = f.svc.Update(ctx, created.ID, UpdatePaymentSettingRequest{IsActive: &inactive})
		require.NoError(t, err)

		_, err = f.svc.GetActiveFor(ctx, f.schoolID, 2026, 3)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeConfiguration, domainErr.Code)
	})

	t.Run("overlapping settings slipping past creation are a configuration error", func(t *testing.T) {
		f := newSettingServiceFixture(t)
		// Write directly, bypassing the service overlap check
		for range 2 {
			setting, err := billing.NewPaymentSetting(
				f.schoolID, uuid.New(),
				2026, 1, 5,
				decimal.NewFromInt(20000), decimal.NewFromInt(440000),
				"",
			)
			require.NoError(t, err)
			require.NoError(t, f.settingRepo.Save(ctx, setting))
		}

		_, err := f.svc.GetActiveFor(ctx, f.schoolID, 2026, 3)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeConfiguration, domainErr.Code)
	})
}

func TestPaymentSettingServiceUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("partial pricing update", func(t *testing.T) {
		f := newSettingServiceFixture(t)
		created, err := f.svc.Create(ctx, f.createRequest(2026, 1, 5))
		require.NoError(t, err)

		price := decimal.NewFromInt(25000)
		resp, err := f.svc.Update(ctx, created.ID, UpdatePaymentSettingRequest{MealPricePerDay: &price})
		require.NoError(t, err)
		assert.True(t, resp.MealPricePerDay.Equal(price))
		assert.True(t, resp.TotalAmount.Equal(created.TotalAmount))
	})

	t.Run("updating several fields at once still saves", func(t *testing.T) {
		f := newSettingServiceFixture(t)
		created, err := f.svc.Create(ctx, f.createRequest(2026, 1, 5))
		require.NoError(t, err)

		from, to := 2, 6
		price := decimal.NewFromInt(23000)
		note := "adjusted after enrollment"
		resp, err := f.svc.Update(ctx, created.ID, UpdatePaymentSettingRequest{
			FromMonth:       &from,
			ToMonth:         &to,
			MealPricePerDay: &price,
			Note:            &note,
		})
		require.NoError(t, err)
		assert.Equal(t, 2, resp.FromMonth)
		assert.Equal(t, 6, resp.ToMonth)
		assert.True(t, resp.MealPricePerDay.Equal(price))
		assert.Equal(t, note, resp.Note)
	})

	t.Run("update cannot create an overlap", func(t *testing.T) {
		f := newSettingServiceFixture(t)
		_, err := f.svc.Create(ctx, f.createRequest(2026, 1, 5))
		require.NoError(t, err)
		second, err := f.svc.Create(ctx, f.createRequest(2026, 6, 12))
		require.NoError(t, err)

		from := 4
		_, err = f.svc.Update(ctx, second.ID, UpdatePaymentSettingRequest{FromMonth: &from})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeConflict, domainErr.Code)
	})

	t.Run("setting with paid invoices keeps window and pricing frozen", func(t *testing.T) {
		f := newSettingServiceFixture(t)
		created, err := f.svc.Create(ctx, f.createRequest(2026, 1, 12))
		require.NoError(t, err)

		setting, err := f.settingRepo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		invoice := seedInvoiceForSetting(t, f.invoiceRepo, setting)
		_, err = invoice.RecordPayment(invoice.AmountToPay, "cash", "", "", time.Now())
		require.NoError(t, err)
		require.NoError(t, f.invoiceRepo.SaveWithLock(ctx, invoice))

		from, to := 9, 12
		price := decimal.NewFromInt(60000)
		_, err = f.svc.Update(ctx, created.ID, UpdatePaymentSettingRequest{
			FromMonth:       &from,
			ToMonth:         &to,
			MealPricePerDay: &price,
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeConflict, domainErr.Code)

		// Note and activation edits stay open
		note := "archived after 2026"
		updated, err := f.svc.Update(ctx, created.ID, UpdatePaymentSettingRequest{Note: &note})
		require.NoError(t, err)
		assert.Equal(t, note, updated.Note)
	})

	t.Run("update of missing setting", func(t *testing.T) {
		f := newSettingServiceFixture(t)
		note := "n"
		_, err := f.svc.Update(ctx, uuid.New(), UpdatePaymentSettingRequest{Note: &note})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestPaymentSettingServiceDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("unreferenced setting deletes", func(t *testing.T) {
		f := newSettingServiceFixture(t)
		created, err := f.svc.Create(ctx, f.createRequest(2026, 1, 5))
		require.NoError(t, err)

		require.NoError(t, f.svc.Delete(ctx, created.ID))
		_, err = f.svc.Get(ctx, created.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("setting with paid invoices is protected", func(t *testing.T) {
		f := newSettingServiceFixture(t)
		created, err := f.svc.Create(ctx, f.createRequest(2026, 1, 12))
		require.NoError(t, err)

		setting, err := f.settingRepo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		invoice := seedInvoiceForSetting(t, f.invoiceRepo, setting)
		_, err = invoice.RecordPayment(decimal.NewFromInt(100000), "cash", "", "", time.Now())
		require.NoError(t, err)
		require.NoError(t, f.invoiceRepo.SaveWithLock(ctx, invoice))

		err = f.svc.Delete(ctx, created.ID)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeConflict, domainErr.Code)
	})

	t.Run("delete of missing setting", func(t *testing.T) {
		f := newSettingServiceFixture(t)
		assert.ErrorIs(t, f.svc.Delete(ctx, uuid.New()), shared.ErrNotFound)
	})
}
