package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvEndpoint       = "CHAT_ENDPOINT"
	EnvRequestTimeout = "CHAT_REQUEST_TIMEOUT"
	EnvLogFile        = "CHAT_LOG_FILE"
	EnvLogLevel       = "CHAT_LOG_LEVEL"
	EnvListenAddr     = "CHAT_LISTEN_ADDR"
	EnvTrace          = "CHAT_TRACE"

	DefaultLogFile    = "log/chatwidget.log"
	DefaultLogLevel   = "info"
	DefaultListenAddr = ":8080"
)

// Config holds the chat widget client settings.
type Config struct {
	Endpoint       string        // reply service URL
	RequestTimeout time.Duration // zero means requests never time out
	LogFile        string
	LogLevel       string
	ListenAddr     string // used by the browser widget server
	Trace          bool   // export request spans to the log directory
}

// Load reads the optional dotenv files into the process environment (existing
// variables win) and then builds a Config from it.
func Load(envFiles ...string) (Config, error) {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", file, err)
		}
	}
	return FromLookup(os.Getenv)
}

// FromLookup builds a Config from key lookups, applying defaults for unset
// keys. It does not require an endpoint; call Validate once flags are applied.
func FromLookup(getenv func(string) string) (Config, error) {
	cfg := Config{
		Endpoint:   strings.TrimSpace(getenv(EnvEndpoint)),
		LogFile:    valueOr(getenv(EnvLogFile), DefaultLogFile),
		LogLevel:   valueOr(getenv(EnvLogLevel), DefaultLogLevel),
		ListenAddr: listenAddr(getenv(EnvListenAddr)),
	}

	if raw := strings.TrimSpace(getenv(EnvRequestTimeout)); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("config: invalid %s value %q: %w", EnvRequestTimeout, raw, err)
		}
		cfg.RequestTimeout = d
	}

	if raw := strings.TrimSpace(getenv(EnvTrace)); raw != "" {
		on, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("config: invalid %s value %q: %w", EnvTrace, raw, err)
		}
		cfg.Trace = on
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("config: reply endpoint is required (set %s or --endpoint)", EnvEndpoint)
	}
	if c.RequestTimeout < 0 {
		return errors.New("config: request timeout must not be negative")
	}
	if strings.TrimSpace(c.LogFile) == "" {
		return errors.New("config: log file must not be empty")
	}
	return nil
}

func valueOr(v, def string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}

// listenAddr accepts either a bare port ("8080") or a host:port.
func listenAddr(v string) string {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return DefaultListenAddr
	case strings.Contains(v, ":"):
		return v
	default:
		return ":" + v
	}
}
