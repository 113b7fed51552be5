package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries every tunable of the sync daemon. Values come from the
// process environment with the defaults the backend expects.
type Config struct {
	// APIBaseURL is the backend REST base, e.g. http://localhost:4000.
	APIBaseURL string
	// BrokerURL is the STOMP-over-WebSocket endpoint. Derived from
	// APIBaseURL when unset.
	BrokerURL string
	// DBPath is the SQLite replica location.
	DBPath string
	// ListenAddr is the loopback API bind address.
	ListenAddr string

	HeartbeatInterval time.Duration
	ReconnectDelay    time.Duration
	HandshakeTimeout  time.Duration
	RequestTimeout    time.Duration

	// OptimisticWrites inserts outgoing messages locally before the
	// server echo arrives.
	OptimisticWrites bool
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		APIBaseURL:        getEnv("FLYTE_API_BASE_URL", "http://localhost:4000"),
		BrokerURL:         getEnv("FLYTE_BROKER_URL", ""),
		DBPath:            getEnv("FLYTE_DB_PATH", "flyte.db"),
		ListenAddr:        "127.0.0.1:" + getEnv("PORT", "8090"),
		HeartbeatInterval: getEnvDuration("FLYTE_HEARTBEAT_MS", 4000),
		ReconnectDelay:    getEnvDuration("FLYTE_RECONNECT_MS", 5000),
		HandshakeTimeout:  getEnvDuration("FLYTE_HANDSHAKE_TIMEOUT_MS", 10000),
		RequestTimeout:    getEnvDuration("FLYTE_REQUEST_TIMEOUT_MS", 15000),
		OptimisticWrites:  getEnvBool("FLYTE_OPTIMISTIC_WRITES", false),
	}

	if cfg.BrokerURL == "" {
		cfg.BrokerURL = WebSocketURL(cfg.APIBaseURL)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api base url cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db path cannot be empty")
	}
	if c.HeartbeatInterval <= 0 || c.ReconnectDelay <= 0 {
		return fmt.Errorf("heartbeat and reconnect intervals must be positive")
	}
	return nil
}

// WebSocketURL converts an HTTP base URL to the broker's websocket
// endpoint, e.g. http://host:4000 -> ws://host:4000/ws/websocket.
func WebSocketURL(apiBaseURL string) string {
	wsBase := apiBaseURL
	switch {
	case strings.HasPrefix(wsBase, "https://"):
		wsBase = "wss://" + strings.TrimPrefix(wsBase, "https://")
	case strings.HasPrefix(wsBase, "http://"):
		wsBase = "ws://" + strings.TrimPrefix(wsBase, "http://")
	}
	return strings.TrimRight(wsBase, "/") + "/ws/websocket"
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvDuration(key string, fallbackMillis int64) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if ms, err := strconv.ParseInt(val, 10, 64); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return time.Duration(fallbackMillis) * time.Millisecond
}

func getEnvBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}
