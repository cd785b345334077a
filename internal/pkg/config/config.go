package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	Port            string        `env:"PORT,             default=8080"`
	Env             string        `env:"ENV,              default=development"`
	JWTSecret       string        `env:"JWT_SECRET"`
	TokenTTL        time.Duration `env:"TOKEN_TTL,        default=24h"`
	LogLevel        string        `env:"LOG_LEVEL,        default=info"`
	StoreDriver     string        `env:"STORE_DRIVER,     default=mongo"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=15s"`

	Mongo MongoConfig
	Redis RedisConfig
	WS    WSConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=chatapp"`
}

type RedisConfig struct {
	Enabled  bool          `env:"REDIS_ENABLED,  default=true"`
	Addr     string        `env:"REDIS_ADDR,     default=localhost:6379"`
	DB       int           `env:"REDIS_DB,       default=0"`
	DedupTTL time.Duration `env:"SEND_DEDUP_TTL, default=1h"`
}

// WSConfig tunes the realtime endpoint.
type WSConfig struct {
	AllowedOrigins  []string      `env:"WS_ALLOWED_ORIGINS"`
	SendQueue       int           `env:"WS_SEND_QUEUE,        default=64"`
	MaxMessageBytes int64         `env:"WS_MAX_MESSAGE_BYTES, default=65536"`
	PingInterval    time.Duration `env:"WS_PING_INTERVAL,     default=25s"`
	PongWait        time.Duration `env:"WS_PONG_WAIT,         default=60s"`
	WriteWait       time.Duration `env:"WS_WRITE_WAIT,        default=10s"`
	EventsPerSecond float64       `env:"WS_EVENTS_PER_SECOND, default=20"`
	EventBurst      int           `env:"WS_EVENT_BURST,       default=40"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadContext(context.Background(), nil)
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadContext is Load with an injectable lookuper, used by tests.
func LoadContext(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	ec := &envconfig.Config{Target: &cfg, Lookuper: lookuper}
	if lookuper == nil {
		ec.Lookuper = envconfig.OsLookuper()
	}
	if err := envconfig.ProcessWith(ctx, ec); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch strings.ToLower(c.StoreDriver) {
	case StoreMongo, StoreMemory:
		c.StoreDriver = strings.ToLower(c.StoreDriver)
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreMongo, StoreMemory, c.StoreDriver)
	}
	if c.WS.PingInterval >= c.WS.PongWait {
		return fmt.Errorf("WS_PING_INTERVAL (%s) must be shorter than WS_PONG_WAIT (%s)", c.WS.PingInterval, c.WS.PongWait)
	}
	if c.WS.SendQueue <= 0 {
		return fmt.Errorf("WS_SEND_QUEUE must be positive, got %d", c.WS.SendQueue)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
