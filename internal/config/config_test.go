package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func lookup(vals map[string]string) func(string) string {
	return func(key string) string { return vals[key] }
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := FromLookup(lookup(nil))
	require.NoError(t, err)
	require.Equal(t, Config{
		LogFile:    DefaultLogFile,
		LogLevel:   DefaultLogLevel,
		ListenAddr: DefaultListenAddr,
	}, cfg)
	require.Zero(t, cfg.RequestTimeout)
}

func TestFromLookup_AllValues(t *testing.T) {
	cfg, err := FromLookup(lookup(map[string]string{
		EnvEndpoint:       " https://abc.lambda-url.us-west-2.on.aws/ ",
		EnvRequestTimeout: "15s",
		EnvLogFile:        "/tmp/chat.log",
		EnvLogLevel:       "debug",
		EnvListenAddr:     "9090",
		EnvTrace:          "true",
	}))
	require.NoError(t, err)
	require.Equal(t, "https://abc.lambda-url.us-west-2.on.aws/", cfg.Endpoint)
	require.Equal(t, 15*time.Second, cfg.RequestTimeout)
	require.Equal(t, "/tmp/chat.log", cfg.LogFile)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, ":9090", cfg.ListenAddr)
	require.True(t, cfg.Trace)
	require.NoError(t, cfg.Validate())
}

func TestFromLookup_InvalidValues(t *testing.T) {
	_, err := FromLookup(lookup(map[string]string{EnvRequestTimeout: "soon"}))
	require.Error(t, err)

	_, err = FromLookup(lookup(map[string]string{EnvTrace: "maybe"}))
	require.Error(t, err)
}

func TestListenAddr(t *testing.T) {
	require.Equal(t, ":8080", listenAddr(""))
	require.Equal(t, ":3000", listenAddr("3000"))
	require.Equal(t, "127.0.0.1:3000", listenAddr("127.0.0.1:3000"))
}

func TestValidate(t *testing.T) {
	cfg, err := FromLookup(lookup(nil))
	require.NoError(t, err)
	require.Error(t, cfg.Validate())

	cfg.Endpoint = "http://localhost:9000"
	require.NoError(t, cfg.Validate())

	cfg.RequestTimeout = -time.Second
	require.Error(t, cfg.Validate())
}

func TestLoad_ReadsDotenvWithoutOverriding(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("CHAT_ENDPOINT=http://from-dotenv\nCHAT_LOG_LEVEL=warn\n"), 0o600))

	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvEndpoint, "")
	require.NoError(t, os.Unsetenv(EnvEndpoint))

	cfg, err := Load(file, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	require.Equal(t, "http://from-dotenv", cfg.Endpoint)
	require.Equal(t, "error", cfg.LogLevel)
}
