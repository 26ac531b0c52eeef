package config

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// BaseURL is the base URL of the application (e.g., "https://app.example.com").
	// Used for generating absolute artifact URLs in notification mails.
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	// CORSAllowOrigin is the value of the Access-Control-Allow-Origin header
	// on API responses. The alpha frontend polls from a separate origin.
	CORSAllowOrigin string `env:"HTTP_CORS_ALLOW_ORIGIN" envDefault:"*"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.Addr == "" {
		h.Addr = ":8080"
	}
}
