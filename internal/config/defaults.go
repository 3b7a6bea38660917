package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Agent: AgentConfig{
			BaseURL:        "http://localhost:8000",
			AppName:        "news_info_verification",
			TimeoutSeconds: 300,
			MaxAttempts:    3,
			BaseDelayMS:    1000,
		},
		Channels: ChannelsConfig{
			Extension: ExtensionConfig{
				Enabled: true,
			},
			WhatsApp: WhatsAppConfig{
				Enabled:       false,
				APIBase:       "https://graph.facebook.com/v21.0",
				RatePerSecond: 5,
			},
			Telegram: TelegramConfig{
				Enabled:       false,
				APIBase:       "https://api.telegram.org",
				RatePerSecond: 5,
			},
		},
		Idempotency: IdempotencyConfig{
			WindowMinutes: 60,
			SweepMinutes:  10,
		},
		Journal: JournalConfig{
			Enabled:       true,
			DBPath:        "~/.factrelay/journal.db",
			RetentionDays: 30,
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Endpoint: "/metrics",
		},
	}
}
