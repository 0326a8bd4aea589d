package config

import (
	"fmt"
	"os"
	"time"

	"ojarena/internal/language"
	"ojarena/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL         = "http://127.0.0.1:8080"
	DefaultTimeout         = 10 * time.Second
	DefaultTokenStatePath  = "configs/arena_state.json"
	DefaultTickInterval    = time.Second
	DefaultProblemCacheTTL = 5 * time.Minute
	DefaultJudgeInterval   = time.Second
	DefaultLogPath         = "logs/arena.log"
	DefaultDraftDir        = ".arena/drafts"
	DefaultDraftTTL        = 7 * 24 * time.Hour
	DefaultHistoryFile     = ".arena/history"
)

// Config holds CLI configuration.
type Config struct {
	BaseURL         string        `yaml:"baseURL"`
	Timeout         time.Duration `yaml:"timeout"`
	TokenStatePath  string        `yaml:"tokenStatePath"`
	PrettyJSON      *bool         `yaml:"prettyJSON"`
	Language        string        `yaml:"language"`
	Editor          string        `yaml:"editor"`
	TickInterval    time.Duration `yaml:"tickInterval"`
	ProblemCacheTTL time.Duration `yaml:"problemCacheTTL"`
	HistoryFile     string        `yaml:"historyFile"`
	Judge           JudgeConfig   `yaml:"judge"`
	Logger          logger.Config `yaml:"logger"`
	Drafts          DraftConfig   `yaml:"drafts"`
}

// JudgeConfig throttles run and submit calls.
type JudgeConfig struct {
	MinInterval time.Duration `yaml:"minInterval"`
}

// DraftConfig selects where editor drafts are kept.
type DraftConfig struct {
	Backend string        `yaml:"backend"` // file, redis or off
	Dir     string        `yaml:"dir"`
	TTL     time.Duration `yaml:"ttl"`
	Redis   RedisConfig   `yaml:"redis"`
}

// RedisConfig is the subset of redis options the draft store exposes.
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

// Load reads path. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config file failed: %w", err)
		}
		data = nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file failed: %w", err)
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.TokenStatePath == "" {
		cfg.TokenStatePath = DefaultTokenStatePath
	}
	if cfg.PrettyJSON == nil {
		value := true
		cfg.PrettyJSON = &value
	}
	cfg.Language = language.Canonical(cfg.Language)
	if cfg.Language == "" {
		cfg.Language = language.Default
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.ProblemCacheTTL == 0 {
		cfg.ProblemCacheTTL = DefaultProblemCacheTTL
	}
	if cfg.HistoryFile == "" {
		cfg.HistoryFile = DefaultHistoryFile
	}
	if cfg.Judge.MinInterval == 0 {
		cfg.Judge.MinInterval = DefaultJudgeInterval
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.Format == "" {
		cfg.Logger.Format = "json"
	}
	if cfg.Logger.OutputPath == "" {
		cfg.Logger.OutputPath = DefaultLogPath
	}
	if cfg.Drafts.Backend == "" {
		cfg.Drafts.Backend = "file"
	}
	if cfg.Drafts.Dir == "" {
		cfg.Drafts.Dir = DefaultDraftDir
	}
	if cfg.Drafts.TTL == 0 {
		cfg.Drafts.TTL = DefaultDraftTTL
	}
	if cfg.Drafts.Redis.DialTimeout == 0 {
		cfg.Drafts.Redis.DialTimeout = 5 * time.Second
	}
	if cfg.Drafts.Redis.ReadTimeout == 0 {
		cfg.Drafts.Redis.ReadTimeout = 3 * time.Second
	}
	if cfg.Drafts.Redis.WriteTimeout == 0 {
		cfg.Drafts.Redis.WriteTimeout = 3 * time.Second
	}
}
