package config

import (
	"os"

	"github.com/caarlos0/env/v8"
	"github.com/creasty/defaults"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"

	"github.com/charleshuang3/invitegate/internal/gormw"
	"github.com/charleshuang3/invitegate/internal/handlers/firewall"
	"github.com/charleshuang3/invitegate/internal/handlers/middleware"
	"github.com/charleshuang3/invitegate/internal/promotion"
)

var (
	logger = log.With().Str("component", "config").Logger()
)

type Config struct {
	Port     uint                    `yaml:"port" default:"8080" env:"INVITEGATE_PORT"`
	GinMode  string                  `yaml:"gin_mode" default:"release"`
	Auth     middleware.AuthConfig   `yaml:"auth"`
	Invite   promotion.Config        `yaml:"invite"`
	DB       gormw.Config            `yaml:"db"`
	Firewall firewall.FirewallConfig `yaml:"firewall"`
}

// LoadConfig reads the yaml file at path. Struct defaults apply to missing
// values and environment variables override the file.
func LoadConfig(path string) *Config {
	cfg := load(path)
	cfg.validate()
	return cfg
}

// LoadOfflineConfig is LoadConfig for tools working on the database only.
// Sections of the HTTP server (auth, firewall) are neither needed nor
// validated.
func LoadOfflineConfig(path string) *Config {
	cfg := load(path)
	cfg.Invite.Validate()
	return cfg
}

func load(path string) *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		logger.Fatal().Err(err).Msg("failed to set config defaults")
	}

	file, err := os.Open(path)
	if err != nil {
		logger.Fatal().Err(err).Msgf("failed to open config file: %s", path)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(cfg); err != nil {
		logger.Fatal().Err(err).Msg("failed to decode config file")
	}

	if err := env.Parse(cfg); err != nil {
		logger.Fatal().Err(err).Msg("failed to parse environment variables")
	}

	return cfg
}

func (c *Config) validate() {
	if c.Port == 0 {
		logger.Fatal().Msg("Port is missing")
	}

	if c.GinMode == "" {
		logger.Fatal().Msg("GinMode is missing")
	}

	c.Auth.Validate()
	c.Invite.Validate()
	c.Firewall.Validate()
}
