package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"chat-widget/internal/config"
	"chat-widget/internal/console"
	"chat-widget/internal/replyclient"
	"chat-widget/internal/telemetry"
	"chat-widget/internal/tui"
	"chat-widget/internal/widget"
)

var version = "dev"

type flagValues struct {
	envFile  string
	endpoint string
	timeout  time.Duration
	logFile  string
	logLevel string
	trace    bool
	listen   string
}

var flags flagValues

// app bundles what every subcommand needs once config is resolved.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	client   *replyclient.Client
	closers  []func(context.Context) error
	logClose io.Closer
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, fn := range a.closers {
		if err := fn(ctx); err != nil {
			a.logger.Error("shutdown", "err", err)
		}
	}
	if a.logClose != nil {
		_ = a.logClose.Close()
	}
}

func (a *app) widgetOptions() []widget.Option {
	return []widget.Option{
		widget.WithLogger(a.logger),
		widget.WithRequestTimeout(a.cfg.RequestTimeout),
	}
}

var rootCmd = &cobra.Command{
	Use:           "chatwidget",
	Short:         "Chat with the reply service from the terminal",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup(cmd, nil)
		if err != nil {
			return err
		}
		defer a.close()

		if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			return tui.Run(cmd.Context(), a.client, a.widgetOptions()...)
		}
		return console.Run(cmd.Context(), os.Stdin, os.Stdout, a.client, a.widgetOptions()...)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	pf.StringVar(&flags.endpoint, "endpoint", "", "reply service URL (overrides "+config.EnvEndpoint+")")
	pf.DurationVar(&flags.timeout, "timeout", 0, "per-request timeout, 0 for none (overrides "+config.EnvRequestTimeout+")")
	pf.StringVar(&flags.logFile, "log-file", config.DefaultLogFile, "diagnostic log file (overrides "+config.EnvLogFile+")")
	pf.StringVar(&flags.logLevel, "log-level", config.DefaultLogLevel, "debug, info, warn or error (overrides "+config.EnvLogLevel+")")
	pf.BoolVar(&flags.trace, "trace", false, "export request spans next to the log file (overrides "+config.EnvTrace+")")

	serveCmd.Flags().StringVar(&flags.listen, "listen", config.DefaultListenAddr, "address to serve the browser widget on (overrides "+config.EnvListenAddr+")")
	rootCmd.AddCommand(serveCmd)
}

// setup resolves config (dotenv, environment, then flags that were set) and
// builds the logger, tracing and reply client.
func setup(cmd *cobra.Command, stderr io.Writer) (*app, error) {
	cfg, err := config.Load(flags.envFile)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, logClose, err := telemetry.NewLogger(telemetry.LogConfig{
		File:    cfg.LogFile,
		Level:   cfg.LogLevel,
		Console: stderr,
	})
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, logClose: logClose}

	if cfg.Trace {
		traceFile := telemetry.TraceFile(cfg.LogFile)
		shutdown, err := telemetry.InitTracing(cmd.Context(), traceFile, version)
		if err != nil {
			_ = traceFile.Close()
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, shutdown, func(context.Context) error { return traceFile.Close() })
	}

	client, err := replyclient.New(cfg.Endpoint)
	if err != nil {
		a.close()
		return nil, err
	}
	a.client = client

	logger.Info("chat widget starting",
		"endpoint", cfg.Endpoint,
		"timeout", cfg.RequestTimeout.String(),
		"version", version,
	)
	return a, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("endpoint") {
		cfg.Endpoint = flags.endpoint
	}
	if fs.Changed("timeout") {
		cfg.RequestTimeout = flags.timeout
	}
	if fs.Changed("log-file") {
		cfg.LogFile = flags.logFile
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if fs.Changed("trace") {
		cfg.Trace = flags.trace
	}
	if fs.Changed("listen") {
		cfg.ListenAddr = flags.listen
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "chatwidget:", err)
		stop()
		os.Exit(1)
	}
}
