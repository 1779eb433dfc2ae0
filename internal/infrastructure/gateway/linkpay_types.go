package gateway

// linkPayCheckoutRequest is the JSON body posted to the checkout endpoint
type linkPayCheckoutRequest struct {
	MerchantID  string `json:"merchant_id"`
	OrderRef    string `json:"order_ref"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description,omitempty"`
	ReturnURL   string `json:"return_url,omitempty"`
	CallbackURL string `json:"callback_url"`
	ExpiresAt   string `json:"expires_at"`
	Signature   string `json:"signature"`
}

// linkPayCheckoutResponse is the checkout endpoint's JSON reply
type linkPayCheckoutResponse struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	PaymentURL string `json:"payment_url"`
	OrderID    string `json:"order_id"`
}

// Callback parameter names sent by LinkPay on payment completion
const (
	cbParamOrderRef  = "order_ref"
	cbParamTxRef     = "transaction_ref"
	cbParamAmount    = "amount"
	cbParamPaidAt    = "paid_at"
	cbParamSignature = "signature"
)

// linkPayAck is the acknowledgement body LinkPay expects from the webhook
type linkPayAck struct {
	Return string `json:"return"`
}
