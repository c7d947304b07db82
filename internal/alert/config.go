package alert

import (
	"go.uber.org/zap"

	"github.com/jmehdipour/order-alert/internal/config"
	"github.com/jmehdipour/order-alert/internal/notify"
)

// NewFromConfig wires the production handler: Twilio over HTTPS, credentials
// re-read from the environment on every invocation.
func NewFromConfig(cfg config.Config, log *zap.Logger) *Handler {
	return NewHandler(
		notify.NewTwilioSender(cfg.Twilio.BaseURL, cfg.Twilio.TimeoutMs),
		notify.EnvCredentials{},
		WithThreshold(cfg.Alert.Threshold),
		WithCurrency(cfg.Alert.Currency),
		WithLogger(log),
	)
}
