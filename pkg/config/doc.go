// Package config loads environment-based configuration structs.
//
// It combines a one-shot .env file load (via godotenv) with struct parsing
// driven by `env` field tags (via github.com/caarlos0/env):
//
//	type StoreConfig struct {
//		RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
//	}
//
//	var cfg StoreConfig
//	if err := config.Load(&cfg); err != nil {
//		// handle error
//	}
//
// MustLoad panics on failure and suits configuration the process cannot
// start without.
package config
