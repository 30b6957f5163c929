package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const envPrefix = "VCALLS"

type Config struct {
	Mode         string        `mapstructure:"mode"`
	Port         int           `mapstructure:"port"`
	StaticPath   string        `mapstructure:"static_path"`
	ReadLimit    int64         `mapstructure:"read_limit"`
	PingPeriod   time.Duration `mapstructure:"ping_period"`
	PongWait     time.Duration `mapstructure:"pong_wait"`
	SendBuffer   int           `mapstructure:"send_buffer"`
	Backpressure string        `mapstructure:"backpressure"`
	RateLimit    int           `mapstructure:"rate_limit"`
	RateWindow   time.Duration `mapstructure:"rate_window"`
	Secret       string        `mapstructure:"secret"`
	LogLevel     string        `mapstructure:"log_level"`
}

func setServerDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("send_buffer", 32)
	v.SetDefault("backpressure", "drop")
	v.SetDefault("rate_limit", 0)
	v.SetDefault("rate_window", "1s")
	v.SetDefault("secret", "v-calls-dev-secret")
	v.SetDefault("log_level", "info")
}

// Load reads config/config.<CONFIG_ENV>.yaml (or CONFIG_FILE), then applies
// VCALLS_* environment overrides. PORT wins over the file as well.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	fileName := os.Getenv("CONFIG_FILE")
	if fileName == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		fileName = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(fileName)

	setServerDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	if err := v.BindEnv("port", envPrefix+"_PORT", "PORT"); err != nil {
		return nil, fmt.Errorf("bind port env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("static", cfg.StaticPath).
		Str("backpressure", cfg.Backpressure).
		Msg("server config")
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.PingPeriod <= 0 {
		errs = append(errs, errors.New("ping_period must be positive"))
	}
	if c.PongWait <= c.PingPeriod {
		errs = append(errs, fmt.Errorf("pong_wait %s must exceed ping_period %s", c.PongWait, c.PingPeriod))
	}
	if c.ReadLimit <= 0 {
		errs = append(errs, errors.New("read_limit must be positive"))
	}
	if c.SendBuffer <= 0 {
		errs = append(errs, errors.New("send_buffer must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
