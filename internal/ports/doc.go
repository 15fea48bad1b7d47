// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// # Port Interfaces
//
//   - [StreamTransport]: Opens a streaming GET and yields its byte stream
//   - [RulesService]: Manages filtered stream rules
//   - [Logger]: Structured logging abstraction
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with net/http,
// zerolog and prometheus.
package ports
