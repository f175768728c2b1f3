package main

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"chat-widget/internal/config"
)

func TestApplyFlags_OnlyChangedFlagsOverride(t *testing.T) {
	t.Cleanup(func() { flags = flagValues{} })

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&flags.endpoint, "endpoint", "", "")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", config.DefaultLogLevel, "")
	cmd.Flags().StringVar(&flags.listen, "listen", config.DefaultListenAddr, "")

	require.NoError(t, cmd.Flags().Set("timeout", "3s"))
	require.NoError(t, cmd.Flags().Set("listen", "127.0.0.1:9000"))

	cfg := config.Config{
		Endpoint:   "https://env.example/reply",
		LogFile:    "env.log",
		LogLevel:   "warn",
		ListenAddr: ":8080",
	}
	applyFlags(cmd, &cfg)

	require.Equal(t, "https://env.example/reply", cfg.Endpoint)
	require.Equal(t, "env.log", cfg.LogFile)
	require.Equal(t, "warn", cfg.LogLevel)
	require.Equal(t, 3*time.Second, cfg.RequestTimeout)
	require.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
}
