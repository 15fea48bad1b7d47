package twitstream

import (
	"context"
	"errors"
	"net/url"
	"sync"

	httpAdapter "github.com/bft-labs/twitstream/internal/adapters/http"
	"github.com/bft-labs/twitstream/internal/app"
	"github.com/bft-labs/twitstream/internal/domain"
	"github.com/bft-labs/twitstream/internal/ports"
	"github.com/bft-labs/twitstream/pkg/log"
)

// Unlimited retries a connect loop forever.
const Unlimited = app.Unlimited

// ConnectOptions are the per call arguments of Connect and Start.
type ConnectOptions struct {
	// Params are sent as the query string of the stream request.
	Params url.Values

	// MaxReconnects bounds attempts after the first one. Unlimited (or any
	// negative value) retries forever; zero makes a single attempt.
	MaxReconnects int
}

// DefaultConnectOptions returns options that retry forever.
func DefaultConnectOptions() ConnectOptions {
	return ConnectOptions{MaxReconnects: Unlimited}
}

// Client is a reconnecting stream client. Use New to create one.
// A Client runs at most one connect loop at a time.
type Client struct {
	config     Config
	logger     ports.Logger
	supervisor *app.Supervisor
	rules      ports.RulesService
	plugins    []Plugin

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
	started bool
}

// New creates a Client with the given configuration.
// Returns an error matching ErrInvalidConfig if configuration is invalid.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = httpAdapter.NewHTTPClient(cfg.Timeout)
	}

	policy := o.backoff
	if policy == nil {
		shape, _ := app.ShapeByName(cfg.Backoff)
		policy = app.NewRateLimitPolicy(shape)
	}

	transport := o.transport
	if transport == nil {
		transport = httpAdapter.NewStreamTransport(httpClient, logger, cfg.Timeout)
	}

	rules := o.rules
	if rules == nil {
		rules = httpAdapter.NewRulesClient(httpAdapter.RulesClientConfig{
			BaseURL:   cfg.BaseURL,
			AuthToken: cfg.Token,
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.RulesTimeout,
		}, httpClient, logger)
	}

	endpoint, _ := domain.ParseEndpoint(cfg.Endpoint)
	supervisor := app.NewSupervisor(app.SupervisorConfig{
		BaseURL:          cfg.BaseURL,
		Endpoint:         endpoint,
		AuthToken:        cfg.Token,
		UserAgent:        cfg.UserAgent,
		DataTimeout:      cfg.DataTimeout,
		MaxBufferBytes:   cfg.MaxBufferBytes,
		FlushPartialLine: cfg.FlushPartialLineOnClose,
		ReconnectOnClose: cfg.ReconnectOnClose,
		RetryReadErrors:  cfg.RetryReadErrors,
	}, transport, policy, logger, &eventEmitterWrapper{handlers: o.handlers})

	return &Client{
		config:     cfg,
		logger:     logger,
		supervisor: supervisor,
		rules:      rules,
		plugins:    o.plugins,
	}, nil
}

// Connect runs the connect loop on the calling goroutine until the stream
// closes cleanly, Disconnect is called, ctx ends, a fatal error occurs or
// reconnects are exhausted. It returns nil for a clean close or Disconnect.
func (c *Client) Connect(ctx context.Context, opts ConnectOptions) error {
	return c.supervisor.Connect(ctx, app.ConnectParams{
		Params:        opts.Params,
		MaxReconnects: opts.MaxReconnects,
	})
}

// Disconnect cancels the running connect loop and reports whether a request
// was in flight. It is safe to call at any time and more than once.
func (c *Client) Disconnect() bool {
	return c.supervisor.Disconnect()
}

// Start initializes plugins and runs the connect loop in the background.
// Use Wait for its result and Stop to end it.
func (c *Client) Start(ctx context.Context, opts ConnectOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return domain.ErrAlreadyConnected
	}

	runCtx, cancel := context.WithCancel(ctx)

	pluginCfg := PluginConfig{
		BaseURL:  c.config.BaseURL,
		Endpoint: c.config.Endpoint,
		Rules:    c.rules,
		Logger:   c.logger,
	}
	for i, p := range c.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			c.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			cancel()
			c.shutdownPlugins(c.plugins[:i])
			return err
		}
		c.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	c.started = true
	c.cancel = cancel
	c.done = make(chan struct{})
	c.err = nil

	lifecycle := c.supervisor.Lifecycle()
	lifecycle.AddWorker()
	go func(done chan struct{}) {
		defer close(done)
		defer lifecycle.WorkerDone()

		err := c.Connect(runCtx, opts)
		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error("stream ended", ports.Err(err))
		}

		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
	}(c.done)

	return nil
}

// Wait blocks until the background connect loop started by Start returns
// and reports its result.
func (c *Client) Wait() error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done == nil {
		return domain.ErrNotRunning
	}
	<-done

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Stop disconnects the background connect loop, waits up to 30 seconds for
// it to return and shuts plugins down in reverse order.
// Returns nil on graceful shutdown, ErrShutdownTimeout if forced.
func (c *Client) Stop() error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return domain.ErrNotRunning
	}
	c.started = false
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	c.supervisor.Disconnect()
	err := c.supervisor.Lifecycle().WaitWithTimeout(app.ShutdownTimeout)
	cancel()

	c.shutdownPlugins(c.plugins)
	return err
}

// Status returns the current session state.
// Safe to call concurrently from any goroutine.
func (c *Client) Status() State {
	return convertState(c.supervisor.State())
}

// Rules returns the rules service for the filtered stream.
func (c *Client) Rules() RulesService {
	return c.rules
}

func (c *Client) shutdownPlugins(plugins []Plugin) {
	ctx := context.Background()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			c.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
		} else {
			c.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}
}
