package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			TimeframeDays: 30,
			MaxResults:    20000,
		},
		History: HistoryConfig{
			Browser: "chrome",
			Path:    "",
		},
		Retention: RetentionConfig{
			EngagementDays: 90,
		},
		Capture: CaptureConfig{
			DenylistDomains: []string{},
			DenylistRegex:   []string{},
		},
		Storage: StorageConfig{
			Path:              "~/.config/webpersona",
			SQLiteFile:        "webpersona.db",
			SQLiteJournalMode: "wal",
		},
		Daemon: DaemonConfig{
			Host:                  "127.0.0.1",
			Port:                  8721,
			AuthToken:             "",
			MaxRequestSize:        1048576,
			MaxHistoryRequestSize: 16777216,
			AllowedOrigins:        []string{},
		},
		Insight: InsightConfig{
			Endpoint:       "https://api.openai.com/v1/chat/completions",
			Model:          "gpt-4o-mini",
			MaxTokens:      400,
			Temperature:    0.7,
			TimeoutSeconds: 30,
			EnvFile:        ".env",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
	}
}
