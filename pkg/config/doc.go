// Package config loads typed configuration from environment variables using
// caarlos0/env struct tags. A .env file in the working directory is read once
// on first use via godotenv.
//
// Each config type is parsed once and cached for the process lifetime. Types
// implementing Validator are validated after parsing and are not cached when
// validation fails.
//
//	type Config struct {
//		SecretKey string        `env:"STRIPE_SECRET_KEY,required"`
//		Tolerance time.Duration `env:"STRIPE_WEBHOOK_TOLERANCE" envDefault:"5m"`
//	}
//
//	var cfg Config
//	config.MustLoad(&cfg)
package config
