package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mealfee/backend/internal/domain/billing"
	"github.com/mealfee/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxLockRetries bounds the reload-and-retry loop on version conflicts
const maxLockRetries = 3

// PaymentService records payments against invoices and requests gateway
// checkout links.
type PaymentService struct {
	invoiceRepo billing.InvoiceRepository
	gateway     billing.PaymentGateway
	logger      *zap.Logger
}

// PaymentServiceConfig holds configuration for the payment service
type PaymentServiceConfig struct {
	InvoiceRepo billing.InvoiceRepository
	Gateway     billing.PaymentGateway
	Logger      *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(config PaymentServiceConfig) *PaymentService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		invoiceRepo: config.InvoiceRepo,
		gateway:     config.Gateway,
		logger:      logger,
	}
}

// RecordPaymentRequest records a manual payment or correction.
// Negative amounts are corrections and require a note.
type RecordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
	Method string          `json:"method" validate:"required"`
	Note   string          `json:"note"`
	PaidAt *time.Time      `json:"paid_at"`
}

// CreatePaymentLinkRequest asks for a hosted checkout link
type CreatePaymentLinkRequest struct {
	ReturnURL string `json:"return_url"`
}

// PaymentLinkResponse carries the gateway checkout link
type PaymentLinkResponse struct {
	InvoiceID      uuid.UUID       `json:"invoice_id"`
	InvoiceCode    string          `json:"invoice_code"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentURL     string          `json:"payment_url"`
	GatewayOrderID string          `json:"gateway_order_id"`
	ExpiresAt      time.Time       `json:"expires_at"`
}

// RecordManualPayment appends a payment entry to an invoice. Version
// conflicts with a concurrent webhook are resolved by reloading and
// re-applying, bounded by maxLockRetries.
func (s *PaymentService) RecordManualPayment(ctx context.Context, invoiceID uuid.UUID, req RecordPaymentRequest) (*InvoiceResponse, error) {
	paidAt := time.Now()
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}

	var invoice *billing.Invoice
	for attempt := 0; attempt < maxLockRetries; attempt++ {
		var err error
		invoice, err = s.invoiceRepo.FindByID(ctx, invoiceID)
		if err != nil {
			return nil, err
		}

		if _, err := invoice.RecordPayment(req.Amount, req.Method, "", req.Note, paidAt); err != nil {
			return nil, err
		}

		err = s.invoiceRepo.SaveWithLock(ctx, invoice)
		if err == nil {
			s.logger.Info("Manual payment recorded",
				zap.String("invoice_code", invoice.InvoiceCode),
				zap.String("amount", req.Amount.String()),
				zap.String("status", string(invoice.Status)))
			return toInvoiceResponse(invoice), nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			return nil, err
		}
		s.logger.Warn("Version conflict recording payment, retrying",
			zap.String("invoice_id", invoiceID.String()),
			zap.Int("attempt", attempt+1))
	}
	return nil, shared.ErrConcurrencyConflict
}

// CreatePaymentLink requests a checkout link for an invoice's outstanding
// balance. No invoice state changes here; payment lands via the callback.
func (s *PaymentService) CreatePaymentLink(ctx context.Context, invoiceID uuid.UUID, req CreatePaymentLinkRequest) (*PaymentLinkResponse, error) {
	if s.gateway == nil {
		return nil, shared.NewGatewayError("No payment gateway configured")
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	outstanding := invoice.OutstandingAmount()
	if !outstanding.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Invoice %s has no outstanding balance", invoice.InvoiceCode))
	}

	linkResp, err := s.gateway.CreatePaymentLink(ctx, billing.CreatePaymentLinkRequest{
		InvoiceID:   invoice.ID,
		InvoiceCode: invoice.InvoiceCode,
		StudentID:   invoice.StudentID,
		Amount:      outstanding,
		Description: fmt.Sprintf("Meal fee %04d-%02d, invoice %s", invoice.Year, invoice.MonthNo, invoice.InvoiceCode),
		ReturnURL:   req.ReturnURL,
	})
	if err != nil {
		s.logger.Error("Payment link creation failed",
			zap.String("invoice_code", invoice.InvoiceCode),
			zap.String("gateway", s.gateway.Name()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Payment link created",
		zap.String("invoice_code", invoice.InvoiceCode),
		zap.String("gateway_order_id", linkResp.GatewayOrderID))

	return &PaymentLinkResponse{
		InvoiceID:      invoice.ID,
		InvoiceCode:    invoice.InvoiceCode,
		Amount:         outstanding,
		PaymentURL:     linkResp.PaymentURL,
		GatewayOrderID: linkResp.GatewayOrderID,
		ExpiresAt:      linkResp.ExpiresAt,
	}, nil
}
