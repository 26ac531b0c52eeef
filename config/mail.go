package config

import "time"

// MailConfig contains notification mail configuration.
// Mail is optional: without an API key, terminal notifications are logged
// and dropped.
type MailConfig struct {
	// BaseURL of the mail delivery API.
	BaseURL string `env:"BASE_URL" envDefault:"https://api.sendgrid.com/v3"`
	// APIKey authenticates against the delivery API.
	APIKey string `env:"API_KEY" envDefault:""`
	// From is the sender address on outgoing notifications.
	From string `env:"FROM" envDefault:"videogen@localhost"`
	// Timeout bounds one delivery request.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
	// RetryLimit is the number of delivery retries after the first attempt.
	RetryLimit int `env:"RETRY_LIMIT" envDefault:"2"`
}

// Enabled returns true when a delivery API key is configured.
func (m MailConfig) Enabled() bool {
	return m.APIKey != ""
}
