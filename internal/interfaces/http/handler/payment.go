package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appbilling "github.com/mealfee/backend/internal/application/billing"
)

// PaymentHandler serves payment recording and payment link endpoints
type PaymentHandler struct {
	BaseHandler
	service *appbilling.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(service *appbilling.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// RegisterRoutes registers payment routes
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/invoices/:id/payments", h.RecordPayment)
	rg.POST("/invoices/:id/payment-link", h.CreatePaymentLink)
}

type recordPaymentRequest struct {
	Amount string `json:"amount" binding:"required"`
	Method string `json:"method" binding:"required,max=40"`
	Note   string `json:"note" binding:"max=500"`
	PaidAt string `json:"paid_at"`
}

// RecordPayment handles POST /invoices/:id/payments
func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	var req recordPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.BadRequest(c, "Invalid payment amount")
		return
	}

	appReq := appbilling.RecordPaymentRequest{
		Amount: amount,
		Method: req.Method,
		Note:   req.Note,
	}
	if req.PaidAt != "" {
		paidAt, err := time.Parse(time.RFC3339, req.PaidAt)
		if err != nil {
			h.BadRequest(c, "Invalid paid_at, expected RFC3339")
			return
		}
		appReq.PaidAt = &paidAt
	}

	resp, err := h.service.RecordManualPayment(c.Request.Context(), invoiceID, appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

type createPaymentLinkRequest struct {
	ReturnURL string `json:"return_url" binding:"omitempty,url"`
}

// CreatePaymentLink handles POST /invoices/:id/payment-link
func (h *PaymentHandler) CreatePaymentLink(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	var req createPaymentLinkRequest
	if c.Request.ContentLength > 0 {
		if !h.BindJSON(c, &req) {
			return
		}
	}

	resp, err := h.service.CreatePaymentLink(c.Request.Context(), invoiceID, appbilling.CreatePaymentLinkRequest{
		ReturnURL: req.ReturnURL,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}
