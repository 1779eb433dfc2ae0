package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mealfee/backend/internal/domain/attendance"
	"github.com/mealfee/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invoiceServiceFixture struct {
	svc         *InvoiceService
	settingRepo *memSettingRepo
	invoiceRepo *memInvoiceRepo
	leaveRepo   *memLeaveRepo
	schoolID    uuid.UUID
}

func newInvoiceServiceFixture(t *testing.T) *invoiceServiceFixture {
	t.Helper()
	settingRepo := newMemSettingRepo()
	invoiceRepo := newMemInvoiceRepo()
	leaveRepo := newMemLeaveRepo()
	settingSvc := NewPaymentSettingService(PaymentSettingServiceConfig{
		SettingRepo: settingRepo,
		InvoiceRepo: invoiceRepo,
	})
	svc := NewInvoiceService(InvoiceServiceConfig{
		InvoiceRepo: invoiceRepo,
		SettingSvc:  settingSvc,
		LeaveRepo:   leaveRepo,
	})
	return &invoiceServiceFixture{
		svc:         svc,
		settingRepo: settingRepo,
		invoiceRepo: invoiceRepo,
		leaveRepo:   leaveRepo,
		schoolID:    uuid.New(),
	}
}

func (f *invoiceServiceFixture) seedSetting(t *testing.T, year, from, to int) uuid.UUID {
	t.Helper()
	resp, err := NewPaymentSettingService(PaymentSettingServiceConfig{
		SettingRepo: f.settingRepo,
		InvoiceRepo: f.invoiceRepo,
	}).Create(context.Background(), CreatePaymentSettingRequest{
		SchoolID:        f.schoolID,
		Year:            year,
		FromMonth:       from,
		ToMonth:         to,
		MealPricePerDay: decimal.NewFromInt(20000),
		TotalAmount:     decimal.NewFromInt(440000),
	})
	require.NoError(t, err)
	return resp.ID
}

func (f *invoiceServiceFixture) seedLeave(t *testing.T, studentID uuid.UUID, start, end time.Time) {
	t.Helper()
	record, err := attendance.NewLeaveRecord(f.schoolID, studentID, uuid.New(), start, end, "sick")
	require.NoError(t, err)
	require.NoError(t, f.leaveRepo.Save(context.Background(), record))
}

func TestInvoiceServiceGenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("absent days reduce the billed amount", func(t *testing.T) {
		f := newInvoiceServiceFixture(t)
		f.seedSetting(t, 2026, 1, 12)
		studentID := uuid.New()
		// Mar 2-4 and Mar 4-6 union to five distinct days
		f.seedLeave(t, studentID, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC))
		f.seedLeave(t, studentID, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC))

		resp, err := f.svc.Generate(ctx, GenerateInvoicesRequest{
			SchoolID:   f.schoolID,
			StudentIDs: []uuid.UUID{studentID},
			Year:       2026,
			MonthNo:    3,
		})
		require.NoError(t, err)
		require.Len(t, resp.Generated, 1)
		assert.Empty(t, resp.Existing)
		assert.Equal(t, 5, resp.Generated[0].AbsentDays)
		assert.True(t, resp.Generated[0].AmountToPay.Equal(decimal.NewFromInt(340000)),
			"440000 - 5*20000 should be 340000, got %s", resp.Generated[0].AmountToPay)
	})

	t.Run("second run reports existing invoices and bills nothing twice", func(t *testing.T) {
		f := newInvoiceServiceFixture(t)
		f.seedSetting(t, 2026, 1, 12)
		studentID := uuid.New()
		req := GenerateInvoicesRequest{
			SchoolID:   f.schoolID,
			StudentIDs: []uuid.UUID{studentID},
			Year:       2026,
			MonthNo:    3,
		}

		first, err := f.svc.Generate(ctx, req)
		require.NoError(t, err)
		require.Len(t, first.Generated, 1)

		second, err := f.svc.Generate(ctx, req)
		require.NoError(t, err)
		assert.Empty(t, second.Generated)
		require.Len(t, second.Existing, 1)
		assert.Equal(t, first.Generated[0].ID, second.Existing[0].ID)
	})

	t.Run("mixed batch generates only the missing invoices", func(t *testing.T) {
		f := newInvoiceServiceFixture(t)
		f.seedSetting(t, 2026, 1, 12)
		billed := uuid.New()
		fresh := uuid.New()

		_, err := f.svc.Generate(ctx, GenerateInvoicesRequest{
			SchoolID: f.schoolID, StudentIDs: []uuid.UUID{billed}, Year: 2026, MonthNo: 3,
		})
		require.NoError(t, err)

		resp, err := f.svc.Generate(ctx, GenerateInvoicesRequest{
			SchoolID: f.schoolID, StudentIDs: []uuid.UUID{billed, fresh}, Year: 2026, MonthNo: 3,
		})
		require.NoError(t, err)
		assert.Len(t, resp.Existing, 1)
		require.Len(t, resp.Generated, 1)
		assert.Equal(t, fresh, resp.Generated[0].StudentID)
	})

	t.Run("no active setting fails the whole run", func(t *testing.T) {
		f := newInvoiceServiceFixture(t)

		_, err := f.svc.Generate(ctx, GenerateInvoicesRequest{
			SchoolID: f.schoolID, StudentIDs: []uuid.UUID{uuid.New()}, Year: 2026, MonthNo: 3,
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeConfiguration, domainErr.Code)
	})

	t.Run("setting outside the requested month fails the run", func(t *testing.T) {
		f := newInvoiceServiceFixture(t)
		f.seedSetting(t, 2026, 9, 12)

		_, err := f.svc.Generate(ctx, GenerateInvoicesRequest{
			SchoolID: f.schoolID, StudentIDs: []uuid.UUID{uuid.New()}, Year: 2026, MonthNo: 3,
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeConfiguration, domainErr.Code)
	})

	t.Run("negative holiday days rejected", func(t *testing.T) {
		f := newInvoiceServiceFixture(t)
		f.seedSetting(t, 2026, 1, 12)

		_, err := f.svc.Generate(ctx, GenerateInvoicesRequest{
			SchoolID: f.schoolID, StudentIDs: []uuid.UUID{uuid.New()},
			Year: 2026, MonthNo: 3, HolidayDays: -1,
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeValidation, domainErr.Code)
	})

	t.Run("unique-index race reads back the winner", func(t *testing.T) {
		f := newInvoiceServiceFixture(t)
		f.seedSetting(t, 2026, 1, 12)
		studentID := uuid.New()

		winner, err := f.svc.Generate(ctx, GenerateInvoicesRequest{
			SchoolID: f.schoolID, StudentIDs: []uuid.UUID{studentID}, Year: 2026, MonthNo: 3,
		})
		require.NoError(t, err)
		require.Len(t, winner.Generated, 1)

		// The concurrent run's row lands after our existence check; the
		// unique index rejects the insert and the winner is read back
		f.invoiceRepo.missStudentMonthOnce = true
		loser, err := f.svc.Generate(ctx, GenerateInvoicesRequest{
			SchoolID: f.schoolID, StudentIDs: []uuid.UUID{studentID}, Year: 2026, MonthNo: 3,
		})
		require.NoError(t, err)
		assert.Empty(t, loser.Generated)
		require.Len(t, loser.Existing, 1)
		assert.Equal(t, winner.Generated[0].ID, loser.Existing[0].ID)
	})
}

func TestInvoiceServiceQueries(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceServiceFixture(t)
	f.seedSetting(t, 2026, 1, 12)
	studentID := uuid.New()

	resp, err := f.svc.Generate(ctx, GenerateInvoicesRequest{
		SchoolID: f.schoolID, StudentIDs: []uuid.UUID{studentID}, Year: 2026, MonthNo: 3,
	})
	require.NoError(t, err)
	invoiceID := resp.Generated[0].ID

	t.Run("get by id", func(t *testing.T) {
		got, err := f.svc.Get(ctx, invoiceID)
		require.NoError(t, err)
		assert.Equal(t, resp.Generated[0].InvoiceCode, got.InvoiceCode)
	})

	t.Run("get missing invoice", func(t *testing.T) {
		_, err := f.svc.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("list by month", func(t *testing.T) {
		list, total, err := f.svc.ListByMonth(ctx, f.schoolID, 2026, 3, shared.DefaultFilter())
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		assert.Len(t, list, 1)
	})

	t.Run("unpaid invoices include the fresh one", func(t *testing.T) {
		unpaid, err := f.svc.ListUnpaidByStudent(ctx, f.schoolID, studentID)
		require.NoError(t, err)
		assert.Len(t, unpaid, 1)
	})
}

func TestInvoiceServiceMarkReviewed(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceServiceFixture(t)
	f.seedSetting(t, 2026, 1, 12)
	studentID := uuid.New()

	resp, err := f.svc.Generate(ctx, GenerateInvoicesRequest{
		SchoolID: f.schoolID, StudentIDs: []uuid.UUID{studentID}, Year: 2026, MonthNo: 3,
	})
	require.NoError(t, err)
	invoiceID := resp.Generated[0].ID

	// Overpay to raise the review flag
	paySvc := NewPaymentService(PaymentServiceConfig{InvoiceRepo: f.invoiceRepo})
	paid, err := paySvc.RecordManualPayment(ctx, invoiceID, RecordPaymentRequest{
		Amount: decimal.NewFromInt(500000),
		Method: "cash",
	})
	require.NoError(t, err)
	require.True(t, paid.NeedsReview)

	reviewed, err := f.svc.MarkReviewed(ctx, invoiceID)
	require.NoError(t, err)
	assert.False(t, reviewed.NeedsReview)

	got, err := f.svc.Get(ctx, invoiceID)
	require.NoError(t, err)
	assert.False(t, got.NeedsReview)
}

func TestInvoiceServiceRegenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("picks up leave submitted after generation", func(t *testing.T) {
		f := newInvoiceServiceFixture(t)
		f.seedSetting(t, 2026, 1, 12)
		studentID := uuid.New()

		resp, err := f.svc.Generate(ctx, GenerateInvoicesRequest{
			SchoolID: f.schoolID, StudentIDs: []uuid.UUID{studentID}, Year: 2026, MonthNo: 3,
		})
		require.NoError(t, err)
		require.Len(t, resp.Generated, 1)
		require.True(t, resp.Generated[0].AmountToPay.Equal(decimal.NewFromInt(440000)))

		f.seedLeave(t, studentID, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC))

		regen, err := f.svc.Regenerate(ctx, RegenerateInvoiceRequest{InvoiceID: resp.Generated[0].ID})
		require.NoError(t, err)
		assert.Equal(t, resp.Generated[0].ID, regen.ID)
		assert.Equal(t, 3, regen.AbsentDays)
		assert.True(t, regen.AmountToPay.Equal(decimal.NewFromInt(380000)),
			"440000 - 3*20000 should be 380000, got %s", regen.AmountToPay)

		stored, err := f.svc.Get(ctx, regen.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, stored.AbsentDays)
	})

	t.Run("invoice with payments is refused", func(t *testing.T) {
		f := newInvoiceServiceFixture(t)
		f.seedSetting(t, 2026, 1, 12)
		studentID := uuid.New()

		resp, err := f.svc.Generate(ctx, GenerateInvoicesRequest{
			SchoolID: f.schoolID, StudentIDs: []uuid.UUID{studentID}, Year: 2026, MonthNo: 3,
		})
		require.NoError(t, err)
		invoiceID := resp.Generated[0].ID

		paySvc := NewPaymentService(PaymentServiceConfig{InvoiceRepo: f.invoiceRepo})
		_, err = paySvc.RecordManualPayment(ctx, invoiceID, RecordPaymentRequest{
			Amount: decimal.NewFromInt(100000),
			Method: "cash",
		})
		require.NoError(t, err)

		_, err = f.svc.Regenerate(ctx, RegenerateInvoiceRequest{InvoiceID: invoiceID})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeConflict, domainErr.Code)

		// Amounts stay frozen
		got, err := f.svc.Get(ctx, invoiceID)
		require.NoError(t, err)
		assert.True(t, got.AmountToPay.Equal(decimal.NewFromInt(440000)))
	})

	t.Run("unknown invoice", func(t *testing.T) {
		f := newInvoiceServiceFixture(t)
		_, err := f.svc.Regenerate(ctx, RegenerateInvoiceRequest{InvoiceID: uuid.New()})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestInvoiceServiceGetForStudent(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceServiceFixture(t)
	f.seedSetting(t, 2026, 1, 12)
	studentID := uuid.New()

	resp, err := f.svc.Generate(ctx, GenerateInvoicesRequest{
		SchoolID: f.schoolID, StudentIDs: []uuid.UUID{studentID}, Year: 2026, MonthNo: 3,
	})
	require.NoError(t, err)
	invoiceID := resp.Generated[0].ID

	got, err := f.svc.GetForStudent(ctx, invoiceID, studentID)
	require.NoError(t, err)
	assert.Equal(t, invoiceID, got.ID)

	_, err = f.svc.GetForStudent(ctx, invoiceID, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
