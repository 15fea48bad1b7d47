package rulesync

import "github.com/bft-labs/twitstream/pkg/twitstream"

// WithRuleSync returns a twitstream Option that keeps the server side rules
// in sync with a TOML file while the client runs.
//
// Usage:
//
//	client, err := twitstream.New(cfg,
//	    rulesync.WithRuleSync(rulesync.DefaultConfig("rules.toml")),
//	)
func WithRuleSync(cfg Config) twitstream.Option {
	return twitstream.WithPlugin(New(cfg))
}
