package config

// DispatchMode selects how the scheduler runs workflow engines.
type DispatchMode string

const (
	// DispatchModeUnbounded starts one goroutine per job with no queueing
	// delay (alpha default).
	DispatchModeUnbounded DispatchMode = "unbounded"
	// DispatchModePool bounds concurrent workflow runs with a semaphore.
	DispatchModePool DispatchMode = "pool"
)

// SchedulerConfig contains job dispatch configuration.
type SchedulerConfig struct {
	// Mode selects the dispatch policy: unbounded or pool.
	Mode DispatchMode `env:"SCHEDULER_MODE" envDefault:"unbounded"`

	// PoolSize is the maximum number of concurrent workflow runs in pool mode.
	PoolSize int `env:"SCHEDULER_POOL_SIZE" envDefault:"4"`
}

// Sanitize applies guardrails to scheduler configuration values.
func (s *SchedulerConfig) Sanitize() {
	if s.Mode != DispatchModeUnbounded && s.Mode != DispatchModePool {
		s.Mode = DispatchModeUnbounded
	}
	if s.PoolSize < 1 {
		s.PoolSize = 1
	}
}
