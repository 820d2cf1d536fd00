package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port            string
	UpstreamTimeout time.Duration

	// Upstream cart backend base URL. Required.
	BackendURL string

	// Storefront origin used when building share URLs.
	ShareBaseURL string

	ShareTTL           time.Duration
	ShareSweepInterval time.Duration

	BulkChunkSize int

	// Optional RabbitMQ URL; empty disables the broker bridge.
	AMQPURL string

	// CORS
	CORSAllowOrigins []string
}

// ErrBackendURLRequired: the cart backend connection is unconfigured.
// Callers fail fast; nothing retries this.
var ErrBackendURLRequired = errors.New("BACKEND_URL is required")

func Load() (Config, error) {
	cfg := Config{
		Port:            getenv("PORT", "8080"),
		UpstreamTimeout: parseDuration(getenv("UPSTREAM_TIMEOUT", "10s"), 10*time.Second),

		BackendURL:   strings.TrimSpace(os.Getenv("BACKEND_URL")),
		ShareBaseURL: getenv("SHARE_BASE_URL", "http://localhost:3000"),

		ShareTTL:           parseDuration(getenv("SHARE_TTL", "24h"), 24*time.Hour),
		ShareSweepInterval: parseDuration(getenv("SHARE_SWEEP_INTERVAL", "1h"), time.Hour),

		BulkChunkSize: parseInt(getenv("BULK_CHUNK_SIZE", "10"), 10),

		AMQPURL: strings.TrimSpace(os.Getenv("AMQP_URL")),

		CORSAllowOrigins: splitCSV(getenv("CORS_ALLOW_ORIGINS", "*")),
	}

	if cfg.BackendURL == "" {
		return Config{}, ErrBackendURLRequired
	}

	return cfg, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func parseDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func parseInt(v string, def int) int {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
