// Package mockbackend is a fake contest backend for local development and
// tests. It serves the same HTTP contracts the arena client consumes.
package mockbackend

import (
	"fmt"
	"os"
	"time"

	"ojarena/internal/contest"
	"ojarena/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAddr      = "127.0.0.1:8080"
	DefaultJWTIssuer = "ojarena-mock"
	DefaultTokenTTL  = 2 * time.Hour
)

// Config holds the mock server configuration and its fixtures.
type Config struct {
	Addr      string           `yaml:"addr"`
	JWTSecret string           `yaml:"jwtSecret"`
	JWTIssuer string           `yaml:"jwtIssuer"`
	TokenTTL  time.Duration    `yaml:"tokenTTL"`
	Logger    logger.Config    `yaml:"logger"`
	Users     []UserFixture    `yaml:"users"`
	Contests  []ContestFixture `yaml:"contests"`
	Problems  []ProblemFixture `yaml:"problems"`
}

// UserFixture is a preloaded account.
type UserFixture struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ContestFixture describes a contest relative to server start so local runs
// always have an ongoing contest.
type ContestFixture struct {
	ID           string        `yaml:"id"`
	Title        string        `yaml:"title"`
	Description  string        `yaml:"description"`
	StartsIn     time.Duration `yaml:"startsIn"`
	Duration     time.Duration `yaml:"duration"`
	Problems     []string      `yaml:"problems"`
	Participants []string      `yaml:"participants"`
}

// ProblemFixture is a problem with its hidden cases.
type ProblemFixture struct {
	contest.Problem `yaml:",inline"`
	HiddenTestCases []contest.TestCase `yaml:"hiddenTestCases"`
}

// Load reads a YAML config file and applies defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file failed: %w", err)
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = DefaultJWTIssuer
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "ojarena-mock-secret"
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.Format == "" {
		cfg.Logger.Format = "console"
	}
	for i := range cfg.Contests {
		if cfg.Contests[i].Duration == 0 {
			cfg.Contests[i].Duration = 2 * time.Hour
		}
	}
}
