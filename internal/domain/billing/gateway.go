package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mealfee/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CreatePaymentLinkRequest asks the gateway for a hosted checkout link for
// one invoice. Amount is the outstanding balance in whole VND.
type CreatePaymentLinkRequest struct {
	InvoiceID   uuid.UUID
	InvoiceCode string
	StudentID   uuid.UUID
	Amount      decimal.Decimal
	Description string
	ReturnURL   string
}

// CreatePaymentLinkResponse is the gateway's checkout link. Creating a link
// mutates nothing on the invoice; only a verified callback records payment.
type CreatePaymentLinkResponse struct {
	PaymentURL     string
	GatewayOrderID string
	ExpiresAt      time.Time
}

// PaymentCallback is the verified, gateway-neutral view of an incoming
// payment notification.
type PaymentCallback struct {
	InvoiceCode           string
	GatewayTransactionRef string
	Amount                decimal.Decimal
	PaidAt                time.Time
	RawParams             map[string]string
}

// PaymentGateway is the port to an external payment provider.
type PaymentGateway interface {
	// Name identifies the gateway in payment entries and logs
	Name() string

	// CreatePaymentLink requests a hosted checkout link for an invoice
	CreatePaymentLink(ctx context.Context, req CreatePaymentLinkRequest) (*CreatePaymentLinkResponse, error)

	// VerifyCallback authenticates a webhook notification and extracts the
	// payment details. Invalid signatures must be rejected here, before any
	// state change.
	VerifyCallback(params map[string]string) (*PaymentCallback, error)

	// GenerateCallbackResponse builds the acknowledgement body the gateway
	// expects. success=false asks the gateway to redeliver.
	GenerateCallbackResponse(success bool) string
}

// Gateway errors. Transport failures use CodeGateway so callers know the
// operation is retryable; signature failures are terminal.
var (
	ErrGatewayUnavailable    = shared.NewGatewayError("Payment gateway is unavailable")
	ErrInvalidSignature      = shared.NewValidationError("Callback signature verification failed")
	ErrCallbackMissingFields = shared.NewValidationError("Callback is missing required fields")
)
