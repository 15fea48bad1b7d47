package twitstream

import (
	"github.com/bft-labs/twitstream/internal/app"
	"github.com/bft-labs/twitstream/internal/domain"
	"github.com/bft-labs/twitstream/internal/ports"
	"github.com/bft-labs/twitstream/pkg/log"
)

// HTTPClient is the interface for making HTTP requests.
// *http.Client satisfies this interface.
type HTTPClient = ports.HTTPClient

// Logger is the interface for structured logging.
type Logger = log.Logger

// StreamTransport opens streaming requests. Replace it with WithTransport.
type StreamTransport = ports.StreamTransport

// StreamRequest and StreamResponse are the StreamTransport payloads.
type (
	StreamRequest  = domain.StreamRequest
	StreamResponse = domain.StreamResponse
)

// RulesService manages filtered stream rules.
type RulesService = ports.RulesService

// Rule is a filtered stream rule.
type Rule = domain.Rule

// RulesResponse is the body returned by the rules endpoint.
type RulesResponse = domain.RulesResponse

// AddRulesOptions tunes RulesService.AddRules.
type AddRulesOptions = ports.AddRulesOptions

// BackoffPolicy computes the delay before the next connection attempt.
type BackoffPolicy = app.BackoffPolicy

// BackoffFunc adapts a function to BackoffPolicy.
type BackoffFunc = app.BackoffFunc

// ResponseMeta is the status and headers of a failed response.
type ResponseMeta = domain.ResponseMeta

// Option configures optional behavior of a Client.
type Option func(*options)

type options struct {
	httpClient ports.HTTPClient
	logger     ports.Logger
	handlers   []EventHandler
	plugins    []Plugin
	backoff    app.BackoffPolicy
	transport  ports.StreamTransport
	rules      ports.RulesService
}

// WithHTTPClient sets the HTTP client used for the stream and rules requests.
// If not provided, a keep-alive client bounded by Config.Timeout is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler adds a handler for client events. It may be given more
// than once; handlers are called in registration order.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		if handler != nil {
			o.handlers = append(o.handlers, handler)
		}
	}
}

// WithBackoffPolicy replaces the reconnect delay policy selected by
// Config.Backoff.
func WithBackoffPolicy(policy BackoffPolicy) Option {
	return func(o *options) {
		o.backoff = policy
	}
}

// WithPlugin registers a plugin to be initialized by Start.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithTransport replaces the HTTP stream transport.
func WithTransport(transport StreamTransport) Option {
	return func(o *options) {
		o.transport = transport
	}
}

// WithRulesService replaces the HTTP rules client.
func WithRulesService(rules RulesService) Option {
	return func(o *options) {
		o.rules = rules
	}
}
