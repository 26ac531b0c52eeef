package config

import "time"

// LLMConfig contains language model client configuration.
// The client speaks the OpenAI chat-completions wire format, so any
// compatible endpoint works.
type LLMConfig struct {
	// BaseURL is the API endpoint, without a trailing slash.
	BaseURL string `env:"BASE_URL" envDefault:"https://api.openai.com/v1"`

	// APIKey authenticates requests. Required outside of tests.
	APIKey string `env:"API_KEY"`

	// Model is the chat model used for both planning and code generation.
	Model string `env:"MODEL" envDefault:"gpt-4o"`

	// RequestTimeout bounds a single API call. Stage timeouts still apply
	// on top of this.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"90s"`
}
