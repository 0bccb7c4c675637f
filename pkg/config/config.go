// Package config loads the service configuration from an optional YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator"
	"gopkg.in/yaml.v2"

	"github.com/jingyuanliang/echosvc/pkg/echo"
)

type Config struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port" validate:"min=0,max=65535"`
	ChunkSize       int           `yaml:"chunk_size" validate:"min=1,max=1048576"`
	ReusePort       bool          `yaml:"reuse_port"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" validate:"min=0"`
	// ShutdownTimeout is how long open connections may drain after a signal
	// before they are severed. 0 severs them immediately.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"min=0"`
	// StatusAddr is where the HTTP status endpoint listens. Empty disables it.
	StatusAddr string `yaml:"status_addr"`
	LogLevel   string `yaml:"log_level" validate:"oneof=debug info notice warning error critical"`
	// GOMAXPROCS overrides the runtime default when > 0.
	GOMAXPROCS int `yaml:"gomaxprocs" validate:"min=0"`
}

var validate = validator.New()

func Default() Config {
	return Config{
		Port:            echo.DefaultPort,
		ChunkSize:       echo.DefaultChunkSize,
		ShutdownTimeout: 5 * time.Second,
		LogLevel:        "info",
	}
}

// Load reads path over the defaults and validates the result. An empty path
// yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c Config) Echo() echo.Config {
	return echo.Config{
		Host:        c.Host,
		Port:        c.Port,
		ChunkSize:   c.ChunkSize,
		ReusePort:   c.ReusePort,
		IdleTimeout: c.IdleTimeout,
	}
}
