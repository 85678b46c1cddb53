package config

import "time"

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	PostgresDSN       string
	MaxConnections    int32
	MinConnections    int32
	MaxConnIdleTime   time.Duration
	MaxConnLifetime   time.Duration
	HealthCheckPeriod time.Duration
}

// TelegramBotConfig holds Telegram bot settings.
type TelegramBotConfig struct {
	Token          string
	Debug          bool
	UpdatesTimeout int
	SendRPS        float64
}

// RepeaterConfig holds the repeat detection and resend settings.
type RepeaterConfig struct {
	AcceptGroups         []int64
	TimeWindow           time.Duration
	RepeatFreq           int
	RepeatCount          int
	BehaviorQ            float64
	AvgDelay             time.Duration
	FrozenTime           time.Duration
	BlockedKeywords      []string
	CaseInsensitiveWords bool
	Groups               map[int64]GroupRules
	StoreTimeout         time.Duration
	StatsInterval        time.Duration
	RandSeed             uint64
}

// PhotographerConfig holds image download settings.
type PhotographerConfig struct {
	Enabled      bool
	MaxBytes     int64
	FetchRPS     float64
	FetchTimeout time.Duration
}

// DatabaseCfg returns the database configuration extracted from Config.
func (c *Config) DatabaseCfg() DatabaseConfig {
	return DatabaseConfig{
		PostgresDSN:       c.PostgresDSN,
		MaxConnections:    c.DBMaxConnections,
		MinConnections:    c.DBMinConnections,
		MaxConnIdleTime:   c.DBMaxConnIdleTime,
		MaxConnLifetime:   c.DBMaxConnLifetime,
		HealthCheckPeriod: c.DBHealthCheckPeriod,
	}
}

// TelegramBotCfg returns the Telegram bot configuration.
func (c *Config) TelegramBotCfg() TelegramBotConfig {
	return TelegramBotConfig{
		Token:          c.BotToken,
		Debug:          c.BotDebug,
		UpdatesTimeout: c.UpdatesTimeoutSeconds,
		SendRPS:        c.SendRPS,
	}
}

// RepeaterCfg returns the repeater configuration. Accepted groups missing from
// the groups file get empty rules.
func (c *Config) RepeaterCfg() RepeaterConfig {
	groups := make(map[int64]GroupRules, len(c.AcceptGroups))
	for _, id := range c.AcceptGroups {
		groups[id] = c.Groups[id]
	}

	return RepeaterConfig{
		AcceptGroups:         c.AcceptGroups,
		TimeWindow:           c.TimeWindow,
		RepeatFreq:           c.RepeatFreq,
		RepeatCount:          c.RepeatCount,
		BehaviorQ:            c.BehaviorQ,
		AvgDelay:             c.AvgDelay,
		FrozenTime:           c.FrozenTime,
		BlockedKeywords:      c.BlockedKeywords,
		CaseInsensitiveWords: c.CaseInsensitiveWords,
		Groups:               groups,
		StoreTimeout:         c.StoreTimeout,
		StatsInterval:        c.StatsInterval,
		RandSeed:             c.RandSeed,
	}
}

// PhotographerCfg returns the image download configuration.
func (c *Config) PhotographerCfg() PhotographerConfig {
	return PhotographerConfig{
		Enabled:      c.PhotographerEnabled,
		MaxBytes:     c.ImageMaxBytes,
		FetchRPS:     c.ImageFetchRPS,
		FetchTimeout: c.ImageFetchTimeout,
	}
}
