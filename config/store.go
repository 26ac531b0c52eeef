package config

// StoreDriver selects the JobStore implementation.
type StoreDriver string

const (
	// StoreDriverMemory keeps jobs in process memory (alpha default).
	StoreDriverMemory StoreDriver = "memory"
	// StoreDriverPostgres persists jobs in PostgreSQL.
	StoreDriverPostgres StoreDriver = "postgres"
	// StoreDriverRedis keeps jobs in Redis, shared across replicas.
	StoreDriverRedis StoreDriver = "redis"
)

// Valid returns true if the StoreDriver is a known driver.
func (d StoreDriver) Valid() bool {
	return d == StoreDriverMemory || d == StoreDriverPostgres || d == StoreDriverRedis
}

// StoreConfig contains job store configuration.
type StoreConfig struct {
	// Driver selects the store backend: memory, postgres, or redis.
	Driver StoreDriver `env:"STORE_DRIVER" envDefault:"memory"`

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`
}

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"videogen"`
	Password string `env:"PASSWORD" envDefault:"videogen"`
	Name     string `env:"NAME"     envDefault:"videogen"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	Addr     string `env:"ADDR"     envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
}
