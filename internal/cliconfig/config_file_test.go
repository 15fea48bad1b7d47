package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	trueVal := true
	zero := 0

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				Token:         "file-token",
				Endpoint:      "search",
				DataTimeout:   "1m",
				MaxReconnects: &zero,
				FlushPartial:  &trueVal,
			},
			changed: map[string]bool{},
			initial: Config{MaxReconnects: -1},
			expected: Config{
				Token:         "file-token",
				Endpoint:      "search",
				DataTimeout:   time.Minute,
				MaxReconnects: 0,
				FlushPartial:  true,
			},
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				Token:    "file-token",
				Endpoint: "search",
			},
			changed: map[string]bool{"endpoint": true},
			initial: Config{Endpoint: "sample"},
			expected: Config{
				Token:    "file-token",
				Endpoint: "sample",
			},
		},
		{
			name: "returns error for invalid duration",
			fileConfig: FileConfig{
				Timeout: "eventually",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:       "absent max reconnects keeps default",
			fileConfig: FileConfig{},
			changed:    map[string]bool{},
			initial:    Config{MaxReconnects: -1},
			expected:   Config{MaxReconnects: -1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)

			if tt.wantErr {
				if err == nil {
					t.Error("ApplyFileConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyFileConfig() unexpected error: %v", err)
			}

			if cfg.Token != tt.expected.Token {
				t.Errorf("Token = %v, want %v", cfg.Token, tt.expected.Token)
			}
			if cfg.Endpoint != tt.expected.Endpoint {
				t.Errorf("Endpoint = %v, want %v", cfg.Endpoint, tt.expected.Endpoint)
			}
			if cfg.DataTimeout != tt.expected.DataTimeout {
				t.Errorf("DataTimeout = %v, want %v", cfg.DataTimeout, tt.expected.DataTimeout)
			}
			if cfg.MaxReconnects != tt.expected.MaxReconnects {
				t.Errorf("MaxReconnects = %v, want %v", cfg.MaxReconnects, tt.expected.MaxReconnects)
			}
			if cfg.FlushPartial != tt.expected.FlushPartial {
				t.Errorf("FlushPartial = %v, want %v", cfg.FlushPartial, tt.expected.FlushPartial)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, fc FileConfig)
		wantErr bool
	}{
		{
			name: "valid toml",
			content: `
token = "file-token"
endpoint = "search"
data_timeout = "45s"
max_reconnects = 5
reconnect_on_close = true
output_format = "msgpack"

[params]
"tweet.fields" = "created_at,lang"
expansions = "author_id"
`,
			check: func(t *testing.T, fc FileConfig) {
				if fc.Token != "file-token" {
					t.Errorf("Token = %v", fc.Token)
				}
				if fc.Endpoint != "search" {
					t.Errorf("Endpoint = %v", fc.Endpoint)
				}
				if fc.DataTimeout != "45s" {
					t.Errorf("DataTimeout = %v", fc.DataTimeout)
				}
				if fc.MaxReconnects == nil || *fc.MaxReconnects != 5 {
					t.Errorf("MaxReconnects = %v", fc.MaxReconnects)
				}
				if fc.ReconnectOnClose == nil || !*fc.ReconnectOnClose {
					t.Errorf("ReconnectOnClose = %v", fc.ReconnectOnClose)
				}
				if fc.Params["tweet.fields"] != "created_at,lang" {
					t.Errorf("Params = %v", fc.Params)
				}
			},
		},
		{
			name:    "invalid toml",
			content: "token = [unterminated",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}

			fc, err := LoadFileConfig(path)
			if tt.wantErr {
				if err == nil {
					t.Error("LoadFileConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadFileConfig() error = %v", err)
			}
			tt.check(t, fc)
		})
	}
}

func TestLoadFileConfig_MissingFile(t *testing.T) {
	_, err := LoadFileConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if !os.IsNotExist(err) {
		t.Errorf("err = %v, want not exist", err)
	}
}

func TestApplyFileConfig_Params(t *testing.T) {
	cfg := DefaultConfig()
	fc := FileConfig{Params: map[string]string{"tweet.fields": "lang"}}

	if err := ApplyFileConfig(&cfg, fc, map[string]bool{"param": true}); err != nil {
		t.Fatal(err)
	}
	if len(cfg.Params) != 0 {
		t.Errorf("params applied despite --param: %v", cfg.Params)
	}

	if err := ApplyFileConfig(&cfg, fc, map[string]bool{}); err != nil {
		t.Fatal(err)
	}
	if cfg.Params.Get("tweet.fields") != "lang" {
		t.Errorf("Params = %v", cfg.Params)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	p := DefaultConfigPath()
	if p != "" && !strings.HasSuffix(p, filepath.Join(".twitstream", "config.toml")) {
		t.Errorf("DefaultConfigPath() = %v", p)
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "present")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if !FileExists(path) {
		t.Error("FileExists() = false for existing file")
	}
	if FileExists(filepath.Join(dir, "absent")) {
		t.Error("FileExists() = true for missing file")
	}
}
