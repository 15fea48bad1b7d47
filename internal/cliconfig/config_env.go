package cliconfig

import (
	"fmt"
	"net/url"
	"os"
)

// ApplyEnvConfig applies configuration from environment variables (TWITSTREAM_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("token", os.Getenv("TWITSTREAM_TOKEN"), &cfg.Token)
	s.setString("base-url", os.Getenv("TWITSTREAM_BASE_URL"), &cfg.BaseURL)
	s.setString("endpoint", os.Getenv("TWITSTREAM_ENDPOINT"), &cfg.Endpoint)
	s.setString("backoff", os.Getenv("TWITSTREAM_BACKOFF"), &cfg.Backoff)
	s.setString("output", os.Getenv("TWITSTREAM_OUTPUT"), &cfg.Output)
	s.setString("output-format", os.Getenv("TWITSTREAM_OUTPUT_FORMAT"), &cfg.OutputFormat)
	s.setString("metrics-addr", os.Getenv("TWITSTREAM_METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("rules-file", os.Getenv("TWITSTREAM_RULES_FILE"), &cfg.RulesFile)
	s.setString("log-level", os.Getenv("TWITSTREAM_LOG_LEVEL"), &cfg.LogLevel)

	if v := os.Getenv("TWITSTREAM_PARAMS"); v != "" {
		params, err := url.ParseQuery(v)
		if err != nil {
			return fmt.Errorf("parse param: %w", err)
		}
		s.setParams("param", params, &cfg.Params)
	}

	if err := s.setDuration("timeout", os.Getenv("TWITSTREAM_TIMEOUT"), &cfg.Timeout); err != nil {
		return err
	}
	if err := s.setDuration("data-timeout", os.Getenv("TWITSTREAM_DATA_TIMEOUT"), &cfg.DataTimeout); err != nil {
		return err
	}
	if err := s.setDuration("rules-timeout", os.Getenv("TWITSTREAM_RULES_TIMEOUT"), &cfg.RulesTimeout); err != nil {
		return err
	}

	if err := s.setSignedIntFromString("max-reconnects", os.Getenv("TWITSTREAM_MAX_RECONNECTS"), &cfg.MaxReconnects); err != nil {
		return err
	}
	if err := s.setIntFromString("max-buffer-bytes", os.Getenv("TWITSTREAM_MAX_BUFFER_BYTES"), &cfg.MaxBufferBytes); err != nil {
		return err
	}

	s.setBoolFromString("flush-partial", os.Getenv("TWITSTREAM_FLUSH_PARTIAL"), &cfg.FlushPartial)
	s.setBoolFromString("reconnect-on-close", os.Getenv("TWITSTREAM_RECONNECT_ON_CLOSE"), &cfg.ReconnectOnClose)
	s.setBoolFromString("retry-read-errors", os.Getenv("TWITSTREAM_RETRY_READ_ERRORS"), &cfg.RetryReadErrors)

	return nil
}
