package gatewayconfig

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"

	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/types"
)

var webhookTokenPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// GatewayConfig holds a tenant's credentials for one payment gateway. The
// webhook token is an unguessable 256-bit value embedded in the callback
// URL; it authenticates the URL before signature verification runs.
type GatewayConfig struct {
	ID string `db:"id" json:"id"`
	// Provider this configuration is for
	Provider types.PaymentGatewayType `db:"provider" json:"provider"`
	// APIKey and APISecret authenticate outbound calls to the gateway
	APIKey    string `db:"api_key" json:"api_key"`
	APISecret string `db:"api_secret" json:"-"`
	// WebhookSecret signs inbound webhook payloads
	WebhookSecret string `db:"webhook_secret" json:"-"`
	// WebhookToken is the 64-hex-char path segment of the webhook URL
	WebhookToken string `db:"webhook_token" json:"webhook_token"`
	// IsDefault marks the config used when a request names no gateway;
	// exactly one active config per tenant is default at a time
	IsDefault bool `db:"is_default" json:"is_default"`

	types.BaseModel
}

// Validate validates the gateway config
func (c *GatewayConfig) Validate() error {
	if err := c.Provider.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" || c.APISecret == "" {
		return ierr.NewError("invalid gateway credentials").
			WithHint("API key and secret are required").
			Mark(ierr.ErrValidation)
	}
	if c.WebhookSecret == "" {
		return ierr.NewError("invalid webhook secret").
			WithHint("Webhook secret is required").
			Mark(ierr.ErrValidation)
	}
	if !IsValidWebhookToken(c.WebhookToken) {
		return ierr.NewError("invalid webhook token").
			WithHint("Webhook token must be 64 lowercase hex characters").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsValidWebhookToken reports whether token is a well formed 64-hex-char token
func IsValidWebhookToken(token string) bool {
	return webhookTokenPattern.MatchString(token)
}

// GenerateWebhookToken returns a new unguessable 256-bit token as 64 hex chars
func GenerateWebhookToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", ierr.WithError(err).
			WithHint("Unable to generate webhook token").
			Mark(ierr.ErrSystem)
	}
	return hex.EncodeToString(buf), nil
}

// TableName returns the table name for the gateway config
func (c *GatewayConfig) TableName() string {
	return "gateway_configs"
}
