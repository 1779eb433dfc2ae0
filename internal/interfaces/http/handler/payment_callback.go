package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	appbilling "github.com/mealfee/backend/internal/application/billing"
)

// PaymentCallbackHandler receives webhook notifications from the payment
// gateway. The response body follows the gateway's acknowledgement protocol
// rather than the API envelope.
type PaymentCallbackHandler struct {
	BaseHandler
	service *appbilling.PaymentCallbackService
}

// NewPaymentCallbackHandler creates a new PaymentCallbackHandler
func NewPaymentCallbackHandler(service *appbilling.PaymentCallbackService) *PaymentCallbackHandler {
	return &PaymentCallbackHandler{service: service}
}

// RegisterRoutes registers callback routes
func (h *PaymentCallbackHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/callbacks/payment", h.HandleCallback)
}

// HandleCallback handles POST /callbacks/payment.
// The gateway posts form-encoded parameters. A 200 with a FAIL body asks
// the gateway to redeliver; processing stays idempotent on redelivery.
func (h *PaymentCallbackHandler) HandleCallback(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusBadRequest, "invalid form data")
		return
	}

	params := make(map[string]string, len(c.Request.PostForm))
	for key, values := range c.Request.PostForm {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	// Errors are reported through the acknowledgement body; the gateway
	// retries on a FAIL ack, not on HTTP status.
	result, _ := h.service.Process(c.Request.Context(), params)
	c.String(http.StatusOK, result.ResponseBody)
}
