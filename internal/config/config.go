package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración de la consola.
type Config struct {
	BackendBaseURL      string        `env:"BACKEND_BASE_URL" envDefault:"http://localhost:8000/api/mcp"`
	HealthPlatform      string        `env:"HEALTH_PLATFORM"`
	HealthPollInterval  time.Duration `env:"HEALTH_POLL_INTERVAL" envDefault:"30s"`
	HealthTimeout       time.Duration `env:"HEALTH_TIMEOUT" envDefault:"10s"`
	ChatTimeout         time.Duration `env:"CHAT_TIMEOUT" envDefault:"60s"`
	RequireHealthy      bool          `env:"REQUIRE_HEALTHY" envDefault:"true"`
	HTTPPort            string        `env:"HTTP_PORT" envDefault:"8080"`
	StubPort            string        `env:"STUB_PORT" envDefault:"8000"`
	RedisAddr           string        `env:"REDIS_ADDR"`
	RedisPassword       string        `env:"REDIS_PASSWORD"`
	RedisDB             int           `env:"REDIS_DB" envDefault:"0"`
	EventsChannelPrefix string        `env:"EVENTS_CHANNEL_PREFIX" envDefault:"console:session:"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
