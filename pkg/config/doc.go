// Package config loads typed configuration from environment variables.
//
// It combines github.com/joho/godotenv, which reads an optional .env file,
// with github.com/caarlos0/env/v11, which maps variables onto struct fields
// through `env` and `envDefault` tags. Every concern declares its own struct
// and the binary composes them:
//
//	httpCfg, err := config.Load[httpserver.Config]()
//	streamCfg, err := config.Load[notificationsapi.Config]()
//
// Tests pass WithEnvironment to parse from a map instead of the process
// environment.
package config
