package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mealfee/backend/internal/domain/billing"
	"github.com/mealfee/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const linkPayTimeLayout = time.RFC3339

// LinkPayAdapter implements the PaymentGateway port for LinkPay, a hosted
// checkout provider. Requests are signed with HMAC-SHA256 over the sorted
// parameter string; callbacks carry the same signature scheme.
type LinkPayAdapter struct {
	config     *LinkPayConfig
	httpClient *http.Client
	now        func() time.Time
}

// NewLinkPayAdapter creates a LinkPay adapter
func NewLinkPayAdapter(config *LinkPayConfig) (*LinkPayAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &LinkPayAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		now: time.Now,
	}, nil
}

// Name identifies the gateway in payment entries and logs
func (a *LinkPayAdapter) Name() string {
	return "linkpay"
}

// CreatePaymentLink requests a hosted checkout link. Transport and
// gateway-side failures surface as retryable GATEWAY_ERRORs; the bounded
// client timeout keeps a stuck gateway from pinning request handlers.
func (a *LinkPayAdapter) CreatePaymentLink(ctx context.Context, req billing.CreatePaymentLinkRequest) (*billing.CreatePaymentLinkResponse, error) {
	expiresAt := a.now().Add(a.config.LinkTTL)

	body := linkPayCheckoutRequest{
		MerchantID:  a.config.MerchantID,
		OrderRef:    req.InvoiceCode,
		Amount:      req.Amount.StringFixed(0),
		Currency:    "VND",
		Description: req.Description,
		ReturnURL:   req.ReturnURL,
		CallbackURL: a.config.CallbackURL,
		ExpiresAt:   expiresAt.Format(linkPayTimeLayout),
	}
	body.Signature = a.sign(map[string]string{
		"merchant_id":  body.MerchantID,
		"order_ref":    body.OrderRef,
		"amount":       body.Amount,
		"currency":     body.Currency,
		"callback_url": body.CallbackURL,
		"expires_at":   body.ExpiresAt,
	})

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("linkpay: failed to marshal checkout request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(a.config.BaseURL, "/")+"/v1/checkout", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("linkpay: failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, billing.ErrGatewayUnavailable
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, billing.ErrGatewayUnavailable
	}
	if httpResp.StatusCode >= 500 {
		return nil, billing.ErrGatewayUnavailable
	}

	var checkout linkPayCheckoutResponse
	if err := json.Unmarshal(respBody, &checkout); err != nil {
		return nil, fmt.Errorf("linkpay: invalid checkout response: %w", err)
	}
	if checkout.Code != "OK" {
		return nil, shared.NewGatewayError(
			fmt.Sprintf("LinkPay rejected checkout: %s %s", checkout.Code, checkout.Message))
	}
	if checkout.PaymentURL == "" {
		return nil, shared.NewGatewayError("LinkPay checkout response is missing the payment URL")
	}

	return &billing.CreatePaymentLinkResponse{
		PaymentURL:     checkout.PaymentURL,
		GatewayOrderID: checkout.OrderID,
		ExpiresAt:      expiresAt,
	}, nil
}

// VerifyCallback authenticates a webhook delivery and extracts its payment
// details. The signature covers every parameter except the signature itself.
func (a *LinkPayAdapter) VerifyCallback(params map[string]string) (*billing.PaymentCallback, error) {
	signature := params[cbParamSignature]
	if signature == "" {
		return nil, billing.ErrCallbackMissingFields
	}

	unsigned := make(map[string]string, len(params))
	for k, v := range params {
		if k != cbParamSignature {
			unsigned[k] = v
		}
	}
	expected := a.sign(unsigned)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, billing.ErrInvalidSignature
	}

	orderRef := params[cbParamOrderRef]
	txRef := params[cbParamTxRef]
	if orderRef == "" || txRef == "" {
		return nil, billing.ErrCallbackMissingFields
	}

	amount, err := decimal.NewFromString(params[cbParamAmount])
	if err != nil || !amount.IsPositive() {
		return nil, billing.ErrCallbackMissingFields
	}

	paidAt := a.now()
	if raw := params[cbParamPaidAt]; raw != "" {
		if t, err := time.Parse(linkPayTimeLayout, raw); err == nil {
			paidAt = t
		}
	}

	return &billing.PaymentCallback{
		InvoiceCode:           orderRef,
		GatewayTransactionRef: txRef,
		Amount:                amount,
		PaidAt:                paidAt,
		RawParams:             params,
	}, nil
}

// GenerateCallbackResponse builds the acknowledgement LinkPay expects
func (a *LinkPayAdapter) GenerateCallbackResponse(success bool) string {
	ack := linkPayAck{Return: "FAIL"}
	if success {
		ack.Return = "SUCCESS"
	}
	b, _ := json.Marshal(ack)
	return string(b)
}

// sign computes the HMAC-SHA256 over "k1=v1&k2=v2..." with keys sorted
func (a *LinkPayAdapter) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(params[k])
	}

	mac := hmac.New(sha256.New, []byte(a.config.SecretKey))
	mac.Write([]byte(sb.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

var _ billing.PaymentGateway = (*LinkPayAdapter)(nil)
