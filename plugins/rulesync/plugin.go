// Package rulesync keeps the filtered stream rules in sync with a TOML file.
// On start it reconciles the server side rules with the file, then watches
// the file and reconciles again whenever it changes.
package rulesync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/twitstream/internal/app"
	"github.com/bft-labs/twitstream/pkg/log"
	"github.com/bft-labs/twitstream/pkg/twitstream"
)

// Plugin implements rules file synchronization.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	path          string
	retryInterval time.Duration
	debounceDelay time.Duration

	// Runtime state
	rules  twitstream.RulesService
	logger twitstream.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config holds configuration options for the rules sync plugin.
type Config struct {
	// Path is the TOML rules file.
	Path string

	// RetryInterval is the delay between retries on failure.
	// Default: 5 seconds
	RetryInterval time.Duration

	// DebounceDelay is the delay to wait after a file change before syncing.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(path string) Config {
	return Config{
		Path:          path,
		RetryInterval: 5 * time.Second,
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new rules sync plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 5 * time.Second
	}
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		path:          cfg.Path,
		retryInterval: cfg.RetryInterval,
		debounceDelay: cfg.DebounceDelay,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "rulesync"
}

// Initialize validates the rules file, reconciles once and starts watching.
// A reconcile that fails on the network is retried in the background; an
// unreadable or invalid file fails Initialize.
func (p *Plugin) Initialize(ctx context.Context, cfg twitstream.PluginConfig) error {
	p.mu.Lock()
	p.rules = cfg.Rules
	p.logger = cfg.Logger
	p.mu.Unlock()

	if p.path == "" {
		return errors.New("rulesync: rules file path is required")
	}
	if _, err := LoadRules(p.path); err != nil {
		return err
	}
	if cfg.Endpoint != "" && cfg.Endpoint != "search" {
		p.logger.Warn("rules only apply to the search endpoint",
			log.String("endpoint", cfg.Endpoint))
	}

	syncErr := p.reconcile(ctx)
	if syncErr != nil {
		p.logger.Error("rules sync failed, retrying", log.Err(syncErr))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("rulesync: create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("rulesync: watch %s: %w", filepath.Dir(p.path), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher, syncErr != nil)

	p.logger.Info("rules sync plugin initialized", log.String("file", p.path))
	return nil
}

// Shutdown stops the watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

// watchLoop debounces file changes into reconciles.
func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, pending bool) {
	defer p.wg.Done()
	defer watcher.Close()

	if pending {
		p.reconcileWithRetry(ctx)
	}

	name := filepath.Base(p.path)
	debounce := time.NewTimer(p.debounceDelay)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(p.debounceDelay)

		case <-debounce.C:
			p.reconcileWithRetry(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("rules watcher error", log.Err(err))
		}
	}
}

// reconcileWithRetry retries until success or context cancellation.
func (p *Plugin) reconcileWithRetry(ctx context.Context) {
	retryCount := 0
	for {
		err := p.reconcile(ctx)
		if err == nil {
			if retryCount > 0 {
				p.logger.Info("rules synced after retries", log.Int("retries", retryCount))
			}
			return
		}

		retryCount++
		p.logger.Error("rules sync failed", log.Err(err), log.Int("retries", retryCount))

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.retryInterval):
		}
	}
}

// reconcile makes the server side rules match the file.
func (p *Plugin) reconcile(ctx context.Context) error {
	desired, err := LoadRules(p.path)
	if err != nil {
		return err
	}

	current, err := p.rules.ListRules(ctx)
	if err != nil {
		return fmt.Errorf("list rules: %w", err)
	}

	add, del := app.DiffRules(desired, current.Data)
	if len(del) > 0 {
		if _, err := p.rules.DeleteRules(ctx, del); err != nil {
			return fmt.Errorf("delete rules: %w", err)
		}
	}
	if len(add) > 0 {
		resp, err := p.rules.AddRules(ctx, add, twitstream.AddRulesOptions{})
		if err != nil {
			return fmt.Errorf("add rules: %w", err)
		}
		if len(resp.Errors) > 0 {
			return fmt.Errorf("add rules: server rejected %d rule(s): %s", len(resp.Errors), resp.Errors[0])
		}
	}

	p.logger.Info("rules synced",
		log.Int("added", len(add)),
		log.Int("deleted", len(del)),
		log.Int("total", len(desired)),
	)
	return nil
}

type rulesFile struct {
	Rule []twitstream.Rule `toml:"rule"`
}

// LoadRules reads a rules file of the form
//
//	[[rule]]
//	value = "cat has:images"
//	tag = "cats"
func LoadRules(path string) ([]twitstream.Rule, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rulesync: read rules: %w", err)
	}
	var f rulesFile
	if err := toml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("rulesync: parse %s: %w", path, err)
	}
	for i, r := range f.Rule {
		if r.Value == "" {
			return nil, fmt.Errorf("rulesync: rule %d has no value", i+1)
		}
	}
	return f.Rule, nil
}

// Ensure Plugin implements twitstream.Plugin.
var _ twitstream.Plugin = (*Plugin)(nil)
