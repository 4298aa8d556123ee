package main

import (
	"time"

	api "github.com/dmitrymomot/notifyhub/modules/notifications"
	"github.com/dmitrymomot/notifyhub/pkg/httpserver"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/notifications/ingest"
	"github.com/dmitrymomot/notifyhub/pkg/tracing"
)

const serviceName = "notifyhub"

// Store drivers.
const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
)

type appConfig struct {
	Env         string `env:"APP_ENV" envDefault:"development"`
	StoreDriver string `env:"STORE_DRIVER" envDefault:"sqlite"`
	SQLiteDSN   string `env:"SQLITE_DSN" envDefault:"file:notifyhub.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"`

	JWTSecret string `env:"JWT_SECRET,required"`
	JWTIssuer string `env:"JWT_ISSUER"`

	BusBufferSize          int           `env:"BUS_BUFFER_SIZE" envDefault:"32"`
	BusSlowConsumerTimeout time.Duration `env:"BUS_SLOW_CONSUMER_TIMEOUT" envDefault:"1s"`

	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	ReadinessTimeout   time.Duration `env:"READINESS_TIMEOUT" envDefault:"2s"`

	Log     logger.Config
	HTTP    httpserver.Config
	Stream  api.Config
	Ingest  ingest.Config
	Tracing tracing.Config
}
