package twitstream

import (
	"fmt"
	"net/url"
	"time"

	"github.com/bft-labs/twitstream/internal/app"
	"github.com/bft-labs/twitstream/internal/domain"
	"github.com/bft-labs/twitstream/internal/framer"
	httpAdapter "github.com/bft-labs/twitstream/internal/adapters/http"
)

// Default configuration values.
const (
	DefaultBaseURL      = "https://api.twitter.com/2"
	DefaultEndpoint     = "sample"
	DefaultTimeout      = 30 * time.Second
	DefaultDataTimeout  = app.DefaultDataTimeout
	DefaultRulesTimeout = httpAdapter.DefaultRulesTimeout
	DefaultBackoff      = "logarithmic"
	DefaultUserAgent    = "twitstream/" + Version
)

// Config holds the configuration for a Client.
type Config struct {
	// BaseURL is the API root the stream and rules paths are appended to.
	BaseURL string

	// Token is the bearer token. Required.
	Token string

	// Endpoint selects the stream: "sample" or "search".
	Endpoint string

	// Timeout bounds dialing and the wait for response headers.
	Timeout time.Duration

	// DataTimeout closes a session that receives no bytes for this long.
	// Heartbeats count as data.
	DataTimeout time.Duration

	// RulesTimeout bounds each rules request.
	RulesTimeout time.Duration

	// MaxBufferBytes bounds a partial line. Exceeding it ends Connect with
	// ErrBufferOverflow.
	MaxBufferBytes int

	// FlushPartialLineOnClose classifies an unterminated trailing line when
	// the stream closes instead of dropping it.
	FlushPartialLineOnClose bool

	// ReconnectOnClose reconnects after a clean end of stream.
	ReconnectOnClose bool

	// RetryReadErrors reconnects after a read failure on an open stream
	// instead of returning it from Connect.
	RetryReadErrors bool

	// Backoff selects the delay shape between attempts: "logarithmic" or "linear".
	Backoff string

	UserAgent string
}

// DefaultConfig returns a Config with default values. Token must still be set.
func DefaultConfig() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		Endpoint:       DefaultEndpoint,
		Timeout:        DefaultTimeout,
		DataTimeout:    DefaultDataTimeout,
		RulesTimeout:   DefaultRulesTimeout,
		MaxBufferBytes: framer.DefaultMaxBufferBytes,
		Backoff:        DefaultBackoff,
		UserAgent:      DefaultUserAgent,
	}
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.Endpoint == "" {
		c.Endpoint = d.Endpoint
	}
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	if c.DataTimeout == 0 {
		c.DataTimeout = d.DataTimeout
	}
	if c.RulesTimeout == 0 {
		c.RulesTimeout = d.RulesTimeout
	}
	if c.MaxBufferBytes == 0 {
		c.MaxBufferBytes = d.MaxBufferBytes
	}
	if c.Backoff == "" {
		c.Backoff = d.Backoff
	}
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
}

// Validate checks the configuration. Errors match ErrInvalidConfig.
func (c Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("%w: token is required", domain.ErrInvalidConfig)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: invalid base url %q", domain.ErrInvalidConfig, c.BaseURL)
	}
	if _, err := domain.ParseEndpoint(c.Endpoint); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	if _, ok := app.ShapeByName(c.Backoff); !ok {
		return fmt.Errorf("%w: unknown backoff %q (want logarithmic or linear)", domain.ErrInvalidConfig, c.Backoff)
	}
	if c.Timeout < 0 || c.DataTimeout < 0 || c.RulesTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", domain.ErrInvalidConfig)
	}
	if c.MaxBufferBytes < 0 {
		return fmt.Errorf("%w: max buffer bytes must not be negative", domain.ErrInvalidConfig)
	}
	return nil
}

// MaskedToken returns the token with all but its first four characters hidden.
func (c Config) MaskedToken() string {
	return MaskToken(c.Token)
}

// MaskToken hides all but the first four characters of a credential.
func MaskToken(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return token[:4] + "****"
}
