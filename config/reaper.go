package config

import "time"

// ReaperConfig contains terminal job retention configuration.
// The alpha default keeps jobs forever; enabling the reaper makes the
// retention policy explicit.
type ReaperConfig struct {
	// Enabled turns the reaper loop on.
	Enabled bool `env:"REAPER_ENABLED" envDefault:"false"`

	// Retention is how long completed/failed jobs are kept.
	Retention time.Duration `env:"REAPER_RETENTION" envDefault:"168h"`

	// Interval is how often the reaper scans for expired jobs.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"1h"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	if r.Retention < time.Hour {
		r.Retention = time.Hour
	}
	if r.Interval < time.Minute {
		r.Interval = time.Minute
	}
}
