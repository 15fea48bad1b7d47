package rulesync

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/twitstream/pkg/log"
	"github.com/bft-labs/twitstream/pkg/twitstream"
)

// memoryRules is an in-memory rules service.
type memoryRules struct {
	mu       sync.Mutex
	rules    []twitstream.Rule
	nextID   int
	failList int
	adds     int
	deletes  int
}

func (m *memoryRules) AddRules(ctx context.Context, rules []twitstream.Rule, opts twitstream.AddRulesOptions) (twitstream.RulesResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adds++
	var resp twitstream.RulesResponse
	for _, r := range rules {
		m.nextID++
		r.ID = strconv.Itoa(m.nextID)
		m.rules = append(m.rules, r)
		resp.Data = append(resp.Data, r)
	}
	return resp, nil
}

func (m *memoryRules) ListRules(ctx context.Context, ids ...string) (twitstream.RulesResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList > 0 {
		m.failList--
		return twitstream.RulesResponse{}, errors.New("service unavailable")
	}
	return twitstream.RulesResponse{Data: append([]twitstream.Rule(nil), m.rules...)}, nil
}

func (m *memoryRules) DeleteRules(ctx context.Context, ids []string) (twitstream.RulesResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	drop := map[string]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	kept := m.rules[:0]
	for _, r := range m.rules {
		if !drop[r.ID] {
			kept = append(kept, r)
		}
	}
	m.rules = kept
	return twitstream.RulesResponse{}, nil
}

func (m *memoryRules) ClearRules(ctx context.Context) (twitstream.RulesResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = nil
	return twitstream.RulesResponse{}, nil
}

func (m *memoryRules) values() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.rules))
	for i, r := range m.rules {
		out[i] = r.Value + "/" + r.Tag
	}
	sort.Strings(out)
	return out
}

func writeRules(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func pluginConfig(rules twitstream.RulesService) twitstream.PluginConfig {
	return twitstream.PluginConfig{
		Endpoint: "search",
		Rules:    rules,
		Logger:   log.NewNoopLogger(),
	}
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.toml")
	writeRules(t, path, `
[[rule]]
value = "cat has:images"
tag = "cats"

[[rule]]
value = "dog"
`)

	rules, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, []twitstream.Rule{
		{Value: "cat has:images", Tag: "cats"},
		{Value: "dog"},
	}, rules)
}

func TestLoadRules_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := map[string]string{
		"missing value": "[[rule]]\ntag = \"x\"\n",
		"bad toml":      "[[rule]\nvalue = 1",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".toml")
			writeRules(t, path, content)
			_, err := LoadRules(path)
			assert.Error(t, err)
		})
	}

	_, err := LoadRules(filepath.Join(dir, "absent.toml"))
	assert.Error(t, err)
}

func TestPlugin_InitialReconcile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.toml")
	writeRules(t, path, "[[rule]]\nvalue = \"cat\"\ntag = \"cats\"\n\n[[rule]]\nvalue = \"dog\"\n")

	svc := &memoryRules{rules: []twitstream.Rule{{ID: "99", Value: "stale"}, {ID: "98", Value: "dog"}}}
	p := New(Config{Path: path})

	require.NoError(t, p.Initialize(context.Background(), pluginConfig(svc)))
	defer p.Shutdown(context.Background())

	assert.Equal(t, []string{"cat/cats", "dog/"}, svc.values())
	assert.Equal(t, 1, svc.adds)
	assert.Equal(t, 1, svc.deletes)
}

func TestPlugin_ReconcilesOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.toml")
	writeRules(t, path, "[[rule]]\nvalue = \"cat\"\n")

	svc := &memoryRules{}
	p := New(Config{Path: path, DebounceDelay: 10 * time.Millisecond, RetryInterval: 10 * time.Millisecond})

	require.NoError(t, p.Initialize(context.Background(), pluginConfig(svc)))
	defer p.Shutdown(context.Background())
	assert.Equal(t, []string{"cat/"}, svc.values())

	writeRules(t, path, "[[rule]]\nvalue = \"bird\"\ntag = \"birds\"\n")

	assert.Eventually(t, func() bool {
		v := svc.values()
		return len(v) == 1 && v[0] == "bird/birds"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPlugin_RetriesFailedSync(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.toml")
	writeRules(t, path, "[[rule]]\nvalue = \"cat\"\n")

	svc := &memoryRules{failList: 3}
	p := New(Config{Path: path, RetryInterval: 10 * time.Millisecond})

	require.NoError(t, p.Initialize(context.Background(), pluginConfig(svc)))
	defer p.Shutdown(context.Background())

	assert.Eventually(t, func() bool {
		return len(svc.values()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPlugin_InvalidFileFailsInitialize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.toml")
	writeRules(t, path, "[[rule]]\ntag = \"no value\"\n")

	p := New(Config{Path: path})
	err := p.Initialize(context.Background(), pluginConfig(&memoryRules{}))
	assert.Error(t, err)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestPlugin_RequiresPath(t *testing.T) {
	p := New(Config{})
	assert.Error(t, p.Initialize(context.Background(), pluginConfig(&memoryRules{})))
}

func TestPlugin_ShutdownStopsRetries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.toml")
	writeRules(t, path, "[[rule]]\nvalue = \"cat\"\n")

	svc := &memoryRules{failList: 1 << 30}
	p := New(Config{Path: path, RetryInterval: time.Hour})
	require.NoError(t, p.Initialize(context.Background(), pluginConfig(svc)))

	done := make(chan struct{})
	go func() {
		p.Shutdown(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not return")
	}
}

func TestPlugin_Name(t *testing.T) {
	assert.Equal(t, "rulesync", New(DefaultConfig("x.toml")).Name())
}
