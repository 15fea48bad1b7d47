package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bft-labs/twitstream/internal/domain"
	"github.com/bft-labs/twitstream/internal/ports"
)

const rulesEndpoint = "/tweets/search/stream/rules"

// Rules client defaults. The rules endpoint allows 450 requests per 15
// minutes, one every 2s.
const (
	DefaultRulesTimeout = 5 * time.Second
	DefaultRulesEvery   = 2 * time.Second
	DefaultRulesBurst   = 5
)

// RulesClientConfig configures a RulesClient.
type RulesClientConfig struct {
	BaseURL   string
	AuthToken string
	UserAgent string
	Timeout   time.Duration

	// Limiter paces requests. Nil uses DefaultRulesEvery and DefaultRulesBurst.
	Limiter *rate.Limiter
}

// RulesClient implements ports.RulesService using HTTP.
type RulesClient struct {
	cfg     RulesClientConfig
	client  ports.HTTPClient
	logger  ports.Logger
	limiter *rate.Limiter
}

// NewRulesClient creates a new HTTP rules client.
func NewRulesClient(cfg RulesClientConfig, client ports.HTTPClient, logger ports.Logger) *RulesClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRulesTimeout
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(DefaultRulesEvery), DefaultRulesBurst)
	}
	return &RulesClient{
		cfg:     cfg,
		client:  client,
		logger:  logger,
		limiter: limiter,
	}
}

type addRulesRequest struct {
	Add []domain.Rule `json:"add"`
}

type deleteRulesRequest struct {
	Delete struct {
		IDs []string `json:"ids"`
	} `json:"delete"`
}

// AddRules creates rules on the server.
func (c *RulesClient) AddRules(ctx context.Context, rules []domain.Rule, opts ports.AddRulesOptions) (domain.RulesResponse, error) {
	add := make([]domain.Rule, len(rules))
	for i, r := range rules {
		add[i] = domain.Rule{Value: r.Value, Tag: r.Tag}
	}
	q := url.Values{}
	if opts.DryRun {
		q.Set("dry_run", "true")
	}
	return c.do(ctx, http.MethodPost, q, addRulesRequest{Add: add})
}

// ListRules returns the server side rules, optionally restricted to ids.
func (c *RulesClient) ListRules(ctx context.Context, ids ...string) (domain.RulesResponse, error) {
	q := url.Values{}
	if len(ids) > 0 {
		q.Set("ids", strings.Join(ids, ","))
	}
	return c.do(ctx, http.MethodGet, q, nil)
}

// DeleteRules removes rules by id.
func (c *RulesClient) DeleteRules(ctx context.Context, ids []string) (domain.RulesResponse, error) {
	var body deleteRulesRequest
	body.Delete.IDs = ids
	return c.do(ctx, http.MethodPost, nil, body)
}

// ClearRules deletes every rule currently on the server.
func (c *RulesClient) ClearRules(ctx context.Context) (domain.RulesResponse, error) {
	current, err := c.ListRules(ctx)
	if err != nil {
		return domain.RulesResponse{}, fmt.Errorf("list rules: %w", err)
	}
	if len(current.Data) == 0 {
		return domain.RulesResponse{}, nil
	}

	ids := make([]string, 0, len(current.Data))
	for _, r := range current.Data {
		if r.ID == "" {
			return domain.RulesResponse{}, fmt.Errorf("rule %q has no id", r.Value)
		}
		ids = append(ids, r.ID)
	}
	return c.DeleteRules(ctx, ids)
}

func (c *RulesClient) do(ctx context.Context, method string, q url.Values, payload any) (domain.RulesResponse, error) {
	var out domain.RulesResponse

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return out, fmt.Errorf("rate limit wait: %w", err)
	}

	u := strings.TrimRight(c.cfg.BaseURL, "/") + rulesEndpoint
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return out, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return out, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AuthToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return out, &domain.TransportTimeoutError{Err: err}
		}
		return out, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return out, &domain.HTTPStatusError{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode response: %w", err)
	}

	c.logger.Debug("rules request",
		ports.String("method", method),
		ports.Int("status", resp.StatusCode),
		ports.Int("result_count", out.Meta.ResultCount),
	)
	return out, nil
}
