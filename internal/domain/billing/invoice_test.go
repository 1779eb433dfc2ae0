package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mealfee/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestInvoice(t *testing.T, amountToPay int64) *Invoice {
	t.Helper()
	inv, err := NewInvoice(
		uuid.New(), uuid.New(), uuid.New(),
		2026, 3,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		decimal.NewFromInt(20000), decimal.NewFromInt(440000),
		3, 0,
		decimal.NewFromInt(amountToPay),
	)
	require.NoError(t, err)
	return inv
}

func TestNewInvoice(t *testing.T) {
	t.Run("creates unpaid invoice", func(t *testing.T) {
		inv := createTestInvoice(t, 380000)

		assert.Equal(t, InvoiceStatusUnpaid, inv.Status)
		assert.False(t, inv.NeedsReview)
		assert.Equal(t, 1, inv.Version)
		assert.Contains(t, inv.InvoiceCode, "INV-202603-")
		assert.True(t, inv.AbsentDeduction.Equal(decimal.NewFromInt(60000)))
	})

	t.Run("zero amount is immediately paid", func(t *testing.T) {
		inv := createTestInvoice(t, 0)
		assert.Equal(t, InvoiceStatusPaid, inv.Status)
	})

	t.Run("rejects inverted period", func(t *testing.T) {
		_, err := NewInvoice(
			uuid.New(), uuid.New(), uuid.New(),
			2026, 3,
			time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			decimal.NewFromInt(20000), decimal.NewFromInt(440000),
			0, 0, decimal.NewFromInt(440000),
		)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeValidation, domainErr.Code)
	})

	t.Run("rejects negative amount", func(t *testing.T) {
		_, err := NewInvoice(
			uuid.New(), uuid.New(), uuid.New(),
			2026, 3,
			time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
			decimal.NewFromInt(20000), decimal.NewFromInt(440000),
			0, 0, decimal.NewFromInt(-1),
		)
		assert.Error(t, err)
	})
}

func TestInvoiceRecordPayment(t *testing.T) {
	t.Run("partial then full payment", func(t *testing.T) {
		inv := createTestInvoice(t, 380000)

		_, err := inv.RecordPayment(decimal.NewFromInt(100000), "cash", "", "", time.Now())
		require.NoError(t, err)
		assert.Equal(t, InvoiceStatusPartiallyPaid, inv.Status)
		assert.True(t, inv.OutstandingAmount().Equal(decimal.NewFromInt(280000)))

		_, err = inv.RecordPayment(decimal.NewFromInt(280000), "linkpay", "tx-001", "", time.Now())
		require.NoError(t, err)
		assert.Equal(t, InvoiceStatusPaid, inv.Status)
		assert.False(t, inv.NeedsReview)
		assert.True(t, inv.OutstandingAmount().IsZero())
	})

	t.Run("duplicate transaction ref is rejected", func(t *testing.T) {
		inv := createTestInvoice(t, 380000)

		_, err := inv.RecordPayment(decimal.NewFromInt(100000), "linkpay", "tx-dup", "", time.Now())
		require.NoError(t, err)

		_, err = inv.RecordPayment(decimal.NewFromInt(100000), "linkpay", "tx-dup", "", time.Now())
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeConflict, domainErr.Code)

		// The duplicate must not have credited anything
		assert.Len(t, inv.PaymentEntries, 1)
		assert.True(t, inv.PaidAmount().Equal(decimal.NewFromInt(100000)))
	})

	t.Run("empty refs never collide", func(t *testing.T) {
		inv := createTestInvoice(t, 380000)

		_, err := inv.RecordPayment(decimal.NewFromInt(100000), "cash", "", "", time.Now())
		require.NoError(t, err)
		_, err = inv.RecordPayment(decimal.NewFromInt(100000), "cash", "", "", time.Now())
		require.NoError(t, err)
		assert.Len(t, inv.PaymentEntries, 2)
	})

	t.Run("overpayment flags review but settles", func(t *testing.T) {
		inv := createTestInvoice(t, 380000)

		_, err := inv.RecordPayment(decimal.NewFromInt(400000), "linkpay", "tx-over", "", time.Now())
		require.NoError(t, err)
		assert.Equal(t, InvoiceStatusPaid, inv.Status)
		assert.True(t, inv.NeedsReview)
		assert.True(t, inv.OutstandingAmount().IsZero())
	})

	t.Run("correction requires note", func(t *testing.T) {
		inv := createTestInvoice(t, 380000)
		_, err := inv.RecordPayment(decimal.NewFromInt(100000), "cash", "", "", time.Now())
		require.NoError(t, err)

		_, err = inv.RecordPayment(decimal.NewFromInt(-50000), "cash", "", "", time.Now())
		assert.Error(t, err)

		_, err = inv.RecordPayment(decimal.NewFromInt(-50000), "cash", "", "typo in amount", time.Now())
		require.NoError(t, err)
		assert.True(t, inv.PaidAmount().Equal(decimal.NewFromInt(50000)))
		assert.Equal(t, InvoiceStatusPartiallyPaid, inv.Status)
	})

	t.Run("correction cannot push paid total negative", func(t *testing.T) {
		inv := createTestInvoice(t, 380000)
		_, err := inv.RecordPayment(decimal.NewFromInt(100000), "cash", "", "", time.Now())
		require.NoError(t, err)

		_, err = inv.RecordPayment(decimal.NewFromInt(-150000), "cash", "", "refund", time.Now())
		assert.Error(t, err)
	})

	t.Run("correction reverts paid status", func(t *testing.T) {
		inv := createTestInvoice(t, 380000)
		_, err := inv.RecordPayment(decimal.NewFromInt(380000), "cash", "", "", time.Now())
		require.NoError(t, err)
		require.Equal(t, InvoiceStatusPaid, inv.Status)

		_, err = inv.RecordPayment(decimal.NewFromInt(-80000), "cash", "", "cashier error", time.Now())
		require.NoError(t, err)
		assert.Equal(t, InvoiceStatusPartiallyPaid, inv.Status)
	})

	t.Run("zero amount is rejected", func(t *testing.T) {
		inv := createTestInvoice(t, 380000)
		_, err := inv.RecordPayment(decimal.Zero, "cash", "", "", time.Now())
		assert.Error(t, err)
	})

	t.Run("each payment bumps the version", func(t *testing.T) {
		inv := createTestInvoice(t, 380000)
		before := inv.Version
		_, err := inv.RecordPayment(decimal.NewFromInt(1000), "cash", "", "", time.Now())
		require.NoError(t, err)
		assert.Equal(t, before+1, inv.Version)
	})
}

func TestPaymentEntriesScan(t *testing.T) {
	entries := PaymentEntries{
		{ID: uuid.New(), Amount: decimal.NewFromInt(100000), Method: "linkpay", GatewayTransactionRef: "tx-1", PaidAt: time.Now().UTC(), RecordedAt: time.Now().UTC()},
	}

	value, err := entries.Value()
	require.NoError(t, err)

	var scanned PaymentEntries
	require.NoError(t, scanned.Scan([]byte(value.(string))))
	require.Len(t, scanned, 1)
	assert.Equal(t, "tx-1", scanned[0].GatewayTransactionRef)
	assert.True(t, scanned[0].Amount.Equal(decimal.NewFromInt(100000)))

	t.Run("nil scans to empty slice", func(t *testing.T) {
		var empty PaymentEntries
		require.NoError(t, empty.Scan(nil))
		assert.Empty(t, empty)
	})
}

func TestInvoiceMarkReviewed(t *testing.T) {
	inv := createTestInvoice(t, 380000)
	_, err := inv.RecordPayment(decimal.NewFromInt(400000), "linkpay", "tx-1", "", time.Now())
	require.NoError(t, err)
	require.True(t, inv.NeedsReview)

	inv.MarkReviewed()
	assert.False(t, inv.NeedsReview)
}
