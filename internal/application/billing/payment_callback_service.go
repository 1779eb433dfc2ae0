package billing

import (
	"context"
	"errors"

	"github.com/mealfee/backend/internal/domain/billing"
	"github.com/mealfee/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// PaymentCallbackService processes webhook notifications from the payment
// gateway. Processing is idempotent: a redelivered notification is
// acknowledged without recording a second payment. The fast path is the
// idempotency store; the durable guarantee is the transaction ref recorded
// on the invoice itself.
type PaymentCallbackService struct {
	invoiceRepo billing.InvoiceRepository
	gateway     billing.PaymentGateway
	idemStore   shared.IdempotencyStore
	idemConfig  shared.IdempotencyConfig
	logger      *zap.Logger
}

// PaymentCallbackServiceConfig holds configuration for the callback service
type PaymentCallbackServiceConfig struct {
	InvoiceRepo       billing.InvoiceRepository
	Gateway           billing.PaymentGateway
	IdempotencyStore  shared.IdempotencyStore
	IdempotencyConfig shared.IdempotencyConfig
	Logger            *zap.Logger
}

// NewPaymentCallbackService creates a new PaymentCallbackService
func NewPaymentCallbackService(config PaymentCallbackServiceConfig) *PaymentCallbackService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentCallbackService{
		invoiceRepo: config.InvoiceRepo,
		gateway:     config.Gateway,
		idemStore:   config.IdempotencyStore,
		idemConfig:  config.IdempotencyConfig,
		logger:      logger,
	}
}

// CallbackResult reports the outcome of one callback delivery
type CallbackResult struct {
	Success          bool   `json:"success"`
	AlreadyProcessed bool   `json:"already_processed"`
	InvoiceCode      string `json:"invoice_code,omitempty"`
	ResponseBody     string `json:"-"`
}

// Process verifies and applies one webhook delivery. The returned
// ResponseBody is what the HTTP layer writes back to the gateway.
func (s *PaymentCallbackService) Process(ctx context.Context, params map[string]string) (*CallbackResult, error) {
	if s.gateway == nil {
		return &CallbackResult{ResponseBody: `{"return":"FAIL"}`},
			shared.NewGatewayError("No payment gateway configured")
	}

	callback, err := s.gateway.VerifyCallback(params)
	if err != nil {
		s.logger.Warn("Callback verification failed", zap.Error(err))
		return &CallbackResult{ResponseBody: s.gateway.GenerateCallbackResponse(false)}, err
	}

	s.logger.Info("Payment callback received",
		zap.String("invoice_code", callback.InvoiceCode),
		zap.String("transaction_ref", callback.GatewayTransactionRef),
		zap.String("amount", callback.Amount.String()))

	if s.alreadyProcessed(ctx, callback.GatewayTransactionRef) {
		s.logger.Info("Callback already processed, acknowledging",
			zap.String("transaction_ref", callback.GatewayTransactionRef))
		return &CallbackResult{
			Success:          true,
			AlreadyProcessed: true,
			InvoiceCode:      callback.InvoiceCode,
			ResponseBody:     s.gateway.GenerateCallbackResponse(true),
		}, nil
	}

	result, err := s.apply(ctx, callback)
	if err != nil {
		result = &CallbackResult{
			InvoiceCode:  callback.InvoiceCode,
			ResponseBody: s.gateway.GenerateCallbackResponse(false),
		}
		return result, err
	}

	s.markProcessed(ctx, callback.GatewayTransactionRef)
	result.ResponseBody = s.gateway.GenerateCallbackResponse(true)
	return result, nil
}

func (s *PaymentCallbackService) apply(ctx context.Context, callback *billing.PaymentCallback) (*CallbackResult, error) {
	for attempt := 0; attempt < maxLockRetries; attempt++ {
		invoice, err := s.invoiceRepo.FindByCode(ctx, callback.InvoiceCode)
		if err != nil {
			return nil, err
		}

		_, err = invoice.RecordPayment(
			callback.Amount,
			s.gateway.Name(),
			callback.GatewayTransactionRef,
			"",
			callback.PaidAt,
		)
		if err != nil {
			var domainErr *shared.DomainError
			// The ref already sits on the invoice: a redelivery that raced
			// past the fast path. Acknowledge without a second credit.
			if errors.As(err, &domainErr) && domainErr.Code == shared.CodeConflict {
				s.markProcessed(ctx, callback.GatewayTransactionRef)
				return &CallbackResult{
					Success:          true,
					AlreadyProcessed: true,
					InvoiceCode:      invoice.InvoiceCode,
				}, nil
			}
			return nil, err
		}

		err = s.invoiceRepo.SaveWithLock(ctx, invoice)
		if err == nil {
			if invoice.NeedsReview {
				s.logger.Warn("Invoice overpaid, flagged for review",
					zap.String("invoice_code", invoice.InvoiceCode),
					zap.String("paid_amount", invoice.PaidAmount().String()),
					zap.String("amount_to_pay", invoice.AmountToPay.String()))
			}
			s.logger.Info("Gateway payment recorded",
				zap.String("invoice_code", invoice.InvoiceCode),
				zap.String("transaction_ref", callback.GatewayTransactionRef),
				zap.String("status", string(invoice.Status)))
			return &CallbackResult{Success: true, InvoiceCode: invoice.InvoiceCode}, nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			return nil, err
		}
		s.logger.Warn("Version conflict applying callback, retrying",
			zap.String("invoice_code", callback.InvoiceCode),
			zap.Int("attempt", attempt+1))
	}
	return nil, shared.ErrConcurrencyConflict
}

func (s *PaymentCallbackService) alreadyProcessed(ctx context.Context, txRef string) bool {
	if s.idemStore == nil || !s.idemConfig.Enabled {
		return false
	}
	// The store namespaces its keys; the ref is passed through as-is
	processed, err := s.idemStore.IsProcessed(ctx, txRef)
	if err != nil {
		// A broken fast path falls through to the invoice-level check
		s.logger.Warn("Idempotency store check failed", zap.Error(err))
		return false
	}
	return processed
}

func (s *PaymentCallbackService) markProcessed(ctx context.Context, txRef string) {
	if s.idemStore == nil || !s.idemConfig.Enabled {
		return
	}
	if _, err := s.idemStore.MarkProcessed(ctx, txRef, s.idemConfig.TTL); err != nil {
		s.logger.Warn("Failed to mark callback processed", zap.Error(err))
	}
}
