package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/twitstream/internal/adapters/metrics"
	"github.com/bft-labs/twitstream/internal/adapters/sink"
	"github.com/bft-labs/twitstream/internal/cliconfig"
	"github.com/bft-labs/twitstream/pkg/log"
	"github.com/bft-labs/twitstream/pkg/twitstream"
	"github.com/bft-labs/twitstream/plugins/rulesync"
)

const longHelp = `Stream tweets from the v2 streaming API as newline delimited records.

The client keeps the stream open: dropped connections, stalled streams and
rate limited requests are retried with backoff until --max-reconnects is
reached. Tweets are written to --output; heartbeats and stream errors are
logged.

Configuration is read from $HOME/.twitstream/config.toml, then TWITSTREAM_*
environment variables, then flags, each overriding the previous.`

var exampleUsage = strings.TrimSpace(`
  twitstream --token $BEARER --endpoint sample --param tweet.fields=lang
  twitstream --endpoint search --rules-file rules.toml --output tweets.ndjson
  twitstream rules add "cat has:images" --tag cats
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return twitstream.Version
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var (
		cfgPath string
		params  []string
	)

	logger := log.NewZerologAdapter(zerolog.InfoLevel)

	prepare := func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd, &cfg, cfgPath, params); err != nil {
			return err
		}
		level, _ := zerolog.ParseLevel(cfg.LogLevel)
		logger = log.NewZerologAdapter(level)
		return nil
	}

	root := &cobra.Command{
		Use:           "twitstream",
		Short:         "Resilient client for the tweet stream",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE:       prepare,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStream(cfg, logger)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.twitstream/config.toml)")
	f.StringVar(&cfg.Token, "token", cfg.Token, "bearer token")
	f.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, fmt.Sprintf("API base URL (defaults to %s; override only for testing)", twitstream.DefaultBaseURL))
	if err := f.MarkHidden("base-url"); err != nil {
		logger.Info("failed to hide base-url flag", log.Err(err))
	}
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "connect timeout")
	f.DurationVar(&cfg.RulesTimeout, "rules-timeout", cfg.RulesTimeout, "timeout for rules requests")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	root.Flags().StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "stream endpoint (sample or search)")
	root.Flags().StringArrayVar(&params, "param", nil, "query parameter key=value (repeatable)")
	root.Flags().IntVar(&cfg.MaxReconnects, "max-reconnects", cfg.MaxReconnects, "reconnects before giving up (-1 for unlimited)")
	root.Flags().DurationVar(&cfg.DataTimeout, "data-timeout", cfg.DataTimeout, "reconnect when no data arrives for this long")
	root.Flags().IntVar(&cfg.MaxBufferBytes, "max-buffer-bytes", cfg.MaxBufferBytes, "maximum bytes buffered for one line")
	root.Flags().BoolVar(&cfg.FlushPartial, "flush-partial", cfg.FlushPartial, "parse a trailing unterminated line when the stream closes")
	root.Flags().BoolVar(&cfg.ReconnectOnClose, "reconnect-on-close", cfg.ReconnectOnClose, "reconnect when the server closes the stream")
	root.Flags().BoolVar(&cfg.RetryReadErrors, "retry-read-errors", cfg.RetryReadErrors, "reconnect after a read failure on an open stream")
	root.Flags().StringVar(&cfg.Backoff, "backoff", cfg.Backoff, "backoff shape while rate limited (linear or logarithmic)")
	root.Flags().StringVar(&cfg.Output, "output", cfg.Output, "file to write tweets to (- for stdout)")
	root.Flags().StringVar(&cfg.OutputFormat, "output-format", cfg.OutputFormat, "tweet output format (json or msgpack)")
	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address")
	root.Flags().StringVar(&cfg.RulesFile, "rules-file", cfg.RulesFile, "TOML rules file kept in sync while streaming")

	root.AddCommand(newRulesCommand(&cfg, prepare, func() twitstream.Logger { return logger }))

	if err := root.Execute(); err != nil {
		logger.Error("twitstream", log.Err(err))
		os.Exit(1)
	}
}

// loadConfig layers the config file and environment under the flags that
// were set explicitly, then validates the result.
func loadConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string, params []string) error {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if changed["param"] {
		p, err := cliconfig.ParseParams(params)
		if err != nil {
			return err
		}
		cfg.Params = p
	}

	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}
	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}

	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}

	return cfg.Validate()
}

func runStream(cfg cliconfig.Config, logger *log.ZerologAdapter) error {
	logCfg := cfg
	logCfg.Token = twitstream.MaskToken(cfg.Token)
	zl := logger.Logger()
	zl.Info().Interface("config", logCfg).Msg("configuration")

	out, closeOut, err := openOutput(cfg.Output)
	if err != nil {
		return err
	}
	defer closeOut()

	format, _ := sink.ParseFormat(cfg.OutputFormat)
	writer := sink.NewWriter(out, format, logger)

	opts := []twitstream.Option{
		twitstream.WithLogger(logger),
		twitstream.WithEventHandler(writer),
		twitstream.WithEventHandler(logHandler{logger: logger}),
	}

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		collector, err := metrics.NewCollector(reg)
		if err != nil {
			return fmt.Errorf("create metrics: %w", err)
		}
		opts = append(opts, twitstream.WithEventHandler(collector))

		srv := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
	}

	if cfg.RulesFile != "" {
		opts = append(opts, rulesync.WithRuleSync(rulesync.DefaultConfig(cfg.RulesFile)))
	}

	client, err := twitstream.New(cfg.StreamConfig(), opts...)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if err := client.Start(ctx, twitstream.ConnectOptions{
		Params:        cfg.Params,
		MaxReconnects: cfg.MaxReconnects,
	}); err != nil {
		return fmt.Errorf("start client: %w", err)
	}

	doneCh := make(chan error, 1)
	go func() { doneCh <- client.Wait() }()

	var streamErr error
	select {
	case sig := <-sigCh:
		logger.Info("received signal, stopping...", log.String("signal", sig.String()))
	case streamErr = <-doneCh:
	}

	if err := client.Stop(); err != nil && !errors.Is(err, twitstream.ErrNotRunning) {
		return fmt.Errorf("stop client: %w", err)
	}
	if err := writer.Err(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return streamErr
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open output: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger twitstream.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving metrics", log.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", log.Err(err))
		}
	}()
	return srv
}
