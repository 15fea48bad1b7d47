package cliconfig

import (
	"net/url"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Token            string            `toml:"token"`
	BaseURL          string            `toml:"base_url"`
	Endpoint         string            `toml:"endpoint"`
	Params           map[string]string `toml:"params"`
	MaxReconnects    *int              `toml:"max_reconnects"`
	Timeout          string            `toml:"timeout"`
	DataTimeout      string            `toml:"data_timeout"`
	RulesTimeout     string            `toml:"rules_timeout"`
	MaxBufferBytes   int               `toml:"max_buffer_bytes"`
	FlushPartial     *bool             `toml:"flush_partial"`
	ReconnectOnClose *bool             `toml:"reconnect_on_close"`
	RetryReadErrors  *bool             `toml:"retry_read_errors"`
	Backoff          string            `toml:"backoff"`
	Output           string            `toml:"output"`
	OutputFormat     string            `toml:"output_format"`
	MetricsAddr      string            `toml:"metrics_addr"`
	RulesFile        string            `toml:"rules_file"`
	LogLevel         string            `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.twitstream/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".twitstream", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("token", fc.Token, &cfg.Token)
	s.setString("base-url", fc.BaseURL, &cfg.BaseURL)
	s.setString("endpoint", fc.Endpoint, &cfg.Endpoint)
	s.setString("backoff", fc.Backoff, &cfg.Backoff)
	s.setString("output", fc.Output, &cfg.Output)
	s.setString("output-format", fc.OutputFormat, &cfg.OutputFormat)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setString("rules-file", fc.RulesFile, &cfg.RulesFile)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if len(fc.Params) > 0 {
		params := url.Values{}
		for k, v := range fc.Params {
			params.Set(k, v)
		}
		s.setParams("param", params, &cfg.Params)
	}

	if err := s.setDuration("timeout", fc.Timeout, &cfg.Timeout); err != nil {
		return err
	}
	if err := s.setDuration("data-timeout", fc.DataTimeout, &cfg.DataTimeout); err != nil {
		return err
	}
	if err := s.setDuration("rules-timeout", fc.RulesTimeout, &cfg.RulesTimeout); err != nil {
		return err
	}

	s.setIntPtr("max-reconnects", fc.MaxReconnects, &cfg.MaxReconnects)
	s.setInt("max-buffer-bytes", fc.MaxBufferBytes, &cfg.MaxBufferBytes)

	s.setBool("flush-partial", fc.FlushPartial, &cfg.FlushPartial)
	s.setBool("reconnect-on-close", fc.ReconnectOnClose, &cfg.ReconnectOnClose)
	s.setBool("retry-read-errors", fc.RetryReadErrors, &cfg.RetryReadErrors)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
