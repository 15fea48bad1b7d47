package cliconfig

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/twitstream/internal/adapters/sink"
	"github.com/bft-labs/twitstream/pkg/twitstream"
)

// Config holds CLI configuration for twitstream.
type Config struct {
	Token    string
	BaseURL  string
	Endpoint string
	Params   url.Values

	MaxReconnects int

	Timeout      time.Duration
	DataTimeout  time.Duration
	RulesTimeout time.Duration

	MaxBufferBytes   int
	FlushPartial     bool
	ReconnectOnClose bool
	RetryReadErrors  bool
	Backoff          string

	Output       string
	OutputFormat string
	MetricsAddr  string
	RulesFile    string
	LogLevel     string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	d := twitstream.DefaultConfig()
	return Config{
		BaseURL:        d.BaseURL,
		Endpoint:       d.Endpoint,
		Params:         url.Values{},
		MaxReconnects:  twitstream.Unlimited,
		Timeout:        d.Timeout,
		DataTimeout:    d.DataTimeout,
		RulesTimeout:   d.RulesTimeout,
		MaxBufferBytes: d.MaxBufferBytes,
		Backoff:        d.Backoff,
		Output:         "-",
		OutputFormat:   string(sink.FormatJSON),
		LogLevel:       "info",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("token is required (--token or TWITSTREAM_TOKEN)")
	}
	if err := c.StreamConfig().Validate(); err != nil {
		return err
	}
	if _, err := sink.ParseFormat(c.OutputFormat); err != nil {
		return err
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return nil
}

// StreamConfig converts the CLI configuration into a client configuration.
func (c *Config) StreamConfig() twitstream.Config {
	return twitstream.Config{
		BaseURL:                 strings.TrimRight(c.BaseURL, "/"),
		Token:                   c.Token,
		Endpoint:                c.Endpoint,
		Timeout:                 c.Timeout,
		DataTimeout:             c.DataTimeout,
		RulesTimeout:            c.RulesTimeout,
		MaxBufferBytes:          c.MaxBufferBytes,
		FlushPartialLineOnClose: c.FlushPartial,
		ReconnectOnClose:        c.ReconnectOnClose,
		RetryReadErrors:         c.RetryReadErrors,
		Backoff:                 c.Backoff,
		UserAgent:               twitstream.DefaultUserAgent,
	}
}

// ParseParams parses "key=value" pairs into query parameters.
func ParseParams(pairs []string) (url.Values, error) {
	params := url.Values{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid param %q (want key=value)", p)
		}
		params.Add(k, v)
	}
	return params, nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setIntPtr sets an int value, zero and negatives included, if present and flag not changed.
func (s *configSetter) setIntPtr(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setParams replaces the query parameters if any are given and flag not changed.
func (s *configSetter) setParams(flag string, value url.Values, dst *url.Values) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setSignedIntFromString is setIntFromString for values where zero and
// negatives are meaningful.
func (s *configSetter) setSignedIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
