package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	errBehaviorQ       = errors.New("REPEATER_BEHAVIOR_Q must be in (0, 1)")
	errThreshold       = errors.New("REPEATER_REPEAT_FREQ and REPEATER_REPEAT_COUNT must be at least 1")
	errNonPositiveTime = errors.New("duration must be positive")
	errRate            = errors.New("rate must be positive")
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`
	BotToken    string `env:"BOT_TOKEN,required"`
	BotDebug    bool   `env:"BOT_DEBUG" envDefault:"false"`
	HealthPort  int    `env:"HEALTH_PORT" envDefault:"8080"`

	// Database pool
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"10"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"2"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// Repeater
	AcceptGroups          []int64       `env:"REPEATER_ACCEPT_GROUPS" envSeparator:","`
	TimeWindow            time.Duration `env:"REPEATER_TIME_WINDOW" envDefault:"140s"`
	RepeatFreq            int           `env:"REPEATER_REPEAT_FREQ" envDefault:"3"`
	RepeatCount           int           `env:"REPEATER_REPEAT_COUNT" envDefault:"3"`
	BehaviorQ             float64       `env:"REPEATER_BEHAVIOR_Q" envDefault:"0.8624"`
	AvgDelay              time.Duration `env:"REPEATER_AVG_DELAY" envDefault:"5s"`
	FrozenTime            time.Duration `env:"REPEATER_FROZEN_TIME" envDefault:"5m"`
	BlockedKeywords       []string      `env:"REPEATER_BLOCKED_KEYWORDS" envSeparator:","`
	CaseInsensitiveWords  bool          `env:"REPEATER_CASE_INSENSITIVE_WORDS" envDefault:"false"`
	GroupsFile            string        `env:"REPEATER_GROUPS_FILE" envDefault:""`
	StoreTimeout          time.Duration `env:"REPEATER_STORE_TIMEOUT" envDefault:"10s"`
	StatsInterval         time.Duration `env:"REPEATER_STATS_INTERVAL" envDefault:"1m"`
	RandSeed              uint64        `env:"REPEATER_RAND_SEED" envDefault:"0"`
	SendRPS               float64       `env:"SEND_RPS" envDefault:"1"`
	RecorderEnabled       bool          `env:"RECORDER_ENABLED" envDefault:"true"`
	PhotographerEnabled   bool          `env:"PHOTOGRAPHER_ENABLED" envDefault:"true"`
	ImageMaxBytes         int64         `env:"IMAGE_MAX_BYTES" envDefault:"15000000"`
	ImageFetchRPS         float64       `env:"IMAGE_FETCH_RPS" envDefault:"2"`
	ImageFetchTimeout     time.Duration `env:"IMAGE_FETCH_TIMEOUT" envDefault:"30s"`
	UpdatesTimeoutSeconds int           `env:"BOT_UPDATES_TIMEOUT" envDefault:"60"`

	// Groups is loaded from GroupsFile, keyed by chat id.
	Groups map[int64]GroupRules
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	groups, err := LoadGroups(cfg.GroupsFile)
	if err != nil {
		return nil, err
	}

	cfg.Groups = groups

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks value ranges that struct tags cannot express.
func (c *Config) Validate() error {
	if c.BehaviorQ <= 0 || c.BehaviorQ >= 1 {
		return fmt.Errorf("%w: got %v", errBehaviorQ, c.BehaviorQ)
	}

	if c.RepeatFreq < 1 || c.RepeatCount < 1 {
		return errThreshold
	}

	durations := map[string]time.Duration{
		"REPEATER_TIME_WINDOW":    c.TimeWindow,
		"REPEATER_FROZEN_TIME":    c.FrozenTime,
		"REPEATER_STORE_TIMEOUT":  c.StoreTimeout,
		"REPEATER_STATS_INTERVAL": c.StatsInterval,
		"IMAGE_FETCH_TIMEOUT":     c.ImageFetchTimeout,
	}

	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s: %w", name, errNonPositiveTime)
		}
	}

	if c.AvgDelay < 0 {
		return fmt.Errorf("REPEATER_AVG_DELAY: %w", errNonPositiveTime)
	}

	if c.SendRPS <= 0 || c.ImageFetchRPS <= 0 {
		return errRate
	}

	return nil
}
