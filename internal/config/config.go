// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers accepted in STORE_DRIVER.
const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env         string        // application environment (e.g. "dev", "prod")
	Port        string        // HTTP port to listen on
	LogLevel    string        // slog level: debug, info, warn, error
	StoreDriver string        // "mysql" or "memory"
	DBUser      string        // database username
	DBPass      string        // database password (optional)
	DBHost      string        // database host address
	DBPort      string        // database port number
	DBName      string        // database name
	JWTSecret   string        // secret used to verify organizer JWTs
	QRSecret    string        // secret mixed into QR signatures
	QRMaxAge    time.Duration // QR payload lifetime, 0 disables expiry
	AMQPURL     string        // RabbitMQ URL, empty disables publishing
	X402        X402Config
	Redis       RedisConfig
}

// X402Config controls the payment challenge and verification.
type X402Config struct {
	Network           string        // "testnet" or "mainnet"
	Asset             string        // payment asset symbol
	MaxTimeoutSeconds int           // maxTimeoutSeconds advertised in challenges
	FacilitatorURL    string        // reported back in settlements
	Strict            bool          // reject when the chain status cannot be read
	VerifyTimeout     time.Duration // bound on a single chain status query
	ChainAPIURL       string        // Stacks API base URL
}

// DefaultFacilitatorURL is reported when X402_FACILITATOR_URL is unset.
const DefaultFacilitatorURL = "https://x402-backend-7eby.onrender.com"

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Database variables
// are only required for the mysql driver.
func Load() Config {
	cfg := Config{
		Env:         must("APP_ENV"),
		Port:        must("APP_PORT"),
		LogLevel:    envStr("LOG_LEVEL", "info"),
		StoreDriver: strings.ToLower(envStr("STORE_DRIVER", StoreMySQL)),
		JWTSecret:   must("JWT_SECRET"),
		QRSecret:    must("QR_SECRET"),
		QRMaxAge:    envDur("QR_MAX_AGE", 24*time.Hour),
		AMQPURL:     envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		X402:        loadX402(),
		Redis:       loadRedis(),
	}
	switch cfg.StoreDriver {
	case StoreMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case StoreMemory:
	default:
		log.Fatalf("invalid STORE_DRIVER: %q", cfg.StoreDriver)
	}
	return cfg
}

func loadX402() X402Config {
	network := strings.ToLower(envStr("X402_NETWORK", "testnet"))
	if network != "mainnet" && network != "testnet" {
		log.Fatalf("invalid X402_NETWORK: %q", network)
	}
	api := "https://api.testnet.hiro.so"
	if network == "mainnet" {
		api = "https://api.hiro.so"
	}
	return X402Config{
		Network:           network,
		Asset:             envStr("X402_ASSET", "STX"),
		MaxTimeoutSeconds: envInt("X402_MAX_TIMEOUT_SECONDS", 300),
		FacilitatorURL:    envStr("X402_FACILITATOR_URL", DefaultFacilitatorURL),
		Strict:            envBool("X402_STRICT_VERIFICATION", false),
		VerifyTimeout:     envDur("X402_VERIFY_TIMEOUT", 10*time.Second),
		ChainAPIURL:       envStr("CHAIN_API_URL", api),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch strings.ToLower(os.Getenv(k)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	if dur, err := time.ParseDuration(os.Getenv(k)); err == nil {
		return dur
	}
	return d
}
