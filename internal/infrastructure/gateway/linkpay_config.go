package gateway

import (
	"fmt"
	"time"

	"github.com/mealfee/backend/internal/infrastructure/config"
)

// LinkPayConfig holds settings for the LinkPay hosted checkout gateway
type LinkPayConfig struct {
	BaseURL     string
	MerchantID  string
	SecretKey   string
	CallbackURL string
	Timeout     time.Duration
	LinkTTL     time.Duration
}

// NewLinkPayConfig builds a LinkPayConfig from application configuration
func NewLinkPayConfig(cfg config.GatewayConfig) *LinkPayConfig {
	return &LinkPayConfig{
		BaseURL:     cfg.BaseURL,
		MerchantID:  cfg.MerchantID,
		SecretKey:   cfg.SecretKey,
		CallbackURL: cfg.CallbackURL,
		Timeout:     cfg.Timeout,
		LinkTTL:     cfg.LinkTTL,
	}
}

// Validate checks that all required settings are present
func (c *LinkPayConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("linkpay: base URL is required")
	}
	if c.MerchantID == "" {
		return fmt.Errorf("linkpay: merchant ID is required")
	}
	if c.SecretKey == "" {
		return fmt.Errorf("linkpay: secret key is required")
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.LinkTTL <= 0 {
		c.LinkTTL = 24 * time.Hour
	}
	return nil
}
