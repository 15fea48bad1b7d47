package twitstream

import "context"

// PluginConfig is passed to plugins when the client starts.
type PluginConfig struct {
	BaseURL  string
	Endpoint string
	Rules    RulesService
	Logger   Logger
}

// Plugin extends a Client started with Start. Plugins are initialized in
// registration order before the stream connects and shut down in reverse
// order by Stop.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, cfg PluginConfig) error
	Shutdown(ctx context.Context) error
}
