// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/big"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"realticket/internal/domain"
	"realticket/internal/settings"
)

const (
	EnvFile         = "REALTICKET_ENV_FILE"
	EnvAddr         = "REALTICKET_ADDR"
	EnvDatabaseURL  = "DATABASE_URL"
	EnvDeployer     = "REALTICKET_DEPLOYER"
	EnvBasePrice    = "REALTICKET_BASE_PRICE"
	EnvBaseFee      = "REALTICKET_BASE_FEE"
	EnvCapacity     = "REALTICKET_CAPACITY"
	EnvRefundExcess = "REALTICKET_REFUND_EXCESS"
	EnvAPIKeys      = "REALTICKET_API_KEYS"
	EnvRateLimit    = "REALTICKET_RATE_LIMIT"
	EnvLogLevel     = "REALTICKET_LOG_LEVEL"
	EnvOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

var ErrMissingDeployer = errors.New("deployer address is required")

// Config is the server configuration.
type Config struct {
	Addr         string
	DatabaseURL  string
	Deployer     domain.Address
	Settings     settings.Settings
	RefundExcess bool
	APIKeys      string
	RateLimit    float64
	LogLevel     slog.Level
	OTLPEndpoint string
}

// Load reads .env (path from REALTICKET_ENV_FILE, default ".env"), then the process
// environment, then args. Later sources win.
func Load(args []string) (Config, error) {
	path := os.Getenv(EnvFile)
	if path == "" {
		path = ".env"
	}
	dotenv, err := godotenv.Read(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	lookup := func(key, fallback string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		if v, ok := dotenv[key]; ok {
			return v
		}
		return fallback
	}

	defaults := settings.Defaults()
	flags := pflag.NewFlagSet("realticket", pflag.ContinueOnError)
	addr := flags.String("addr", lookup(EnvAddr, ":8080"), "listen address")
	dbURL := flags.String("database-url", lookup(EnvDatabaseURL, ""), "PostgreSQL journal DSN (empty keeps the journal in memory)")
	deployer := flags.String("deployer", lookup(EnvDeployer, ""), "address that receives every role at startup")
	price := flags.String("base-price", lookup(EnvBasePrice, defaults.BasePrice.String()), "primary sale price")
	fee := flags.String("base-fee", lookup(EnvBaseFee, defaults.BaseFee.String()), "fee charged on every sale")
	capacity := flags.String("capacity", lookup(EnvCapacity, strconv.FormatUint(defaults.Capacity, 10)), "maximum number of tickets ever created")
	refund := flags.String("refund-excess", lookup(EnvRefundExcess, "false"), "refund value above the required amount to the buyer")
	keys := flags.String("api-keys", lookup(EnvAPIKeys, ""), "comma separated address:secret pairs")
	limit := flags.String("rate-limit", lookup(EnvRateLimit, "10"), "requests per second per account")
	level := flags.String("log-level", lookup(EnvLogLevel, "info"), "debug, info, warn or error")
	otlp := flags.String("otlp-endpoint", lookup(EnvOTLPEndpoint, ""), "OTLP/HTTP collector base URL for traces and metrics (empty disables export)")
	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Addr:         *addr,
		DatabaseURL:  *dbURL,
		Deployer:     domain.Address(*deployer),
		APIKeys:      *keys,
		OTLPEndpoint: *otlp,
	}
	if cfg.Deployer.IsZero() {
		return Config{}, ErrMissingDeployer
	}

	cfg.Settings, err = parseSettings(*fee, *price, *capacity)
	if err != nil {
		return Config{}, err
	}
	if cfg.RefundExcess, err = strconv.ParseBool(*refund); err != nil {
		return Config{}, fmt.Errorf("invalid refund-excess %q: %w", *refund, err)
	}
	if cfg.RateLimit, err = strconv.ParseFloat(*limit, 64); err != nil || cfg.RateLimit <= 0 {
		return Config{}, fmt.Errorf("invalid rate-limit %q", *limit)
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(*level)); err != nil {
		return Config{}, fmt.Errorf("invalid log-level %q: %w", *level, err)
	}
	return cfg, nil
}

func parseSettings(fee, price, capacity string) (settings.Settings, error) {
	f, err := parseAmount("base-fee", fee)
	if err != nil {
		return settings.Settings{}, err
	}
	p, err := parseAmount("base-price", price)
	if err != nil {
		return settings.Settings{}, err
	}
	c, err := strconv.ParseUint(capacity, 10, 64)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("invalid capacity %q: %w", capacity, err)
	}
	return settings.New(f, p, c)
}

func parseAmount(name, s string) (*big.Int, error) {
	v, err := domain.ParseAmount(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}
