// Package twitstream provides a reconnecting client for long-lived HTTP
// streams of newline-delimited JSON records.
//
// The client opens a streaming GET, splits the body on "\r\n" into records,
// classifies each one and keeps the connection alive across failures. Empty
// lines are heartbeats. A session that receives no bytes for
// [Config.DataTimeout] is closed and retried.
//
// # Basic Usage
//
//	cfg := twitstream.DefaultConfig()
//	cfg.Token = os.Getenv("TWITSTREAM_TOKEN")
//
//	client, err := twitstream.New(cfg, twitstream.WithEventHandler(handler))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = client.Connect(ctx, twitstream.DefaultConnectOptions())
//
// Connect blocks until the stream closes cleanly, [Client.Disconnect] is
// called, ctx ends or the client gives up. Use [Client.Start], [Client.Wait]
// and [Client.Stop] to run the loop in the background with plugins.
//
// # Reconnects
//
// Timeouts and the statuses 420, 429, 500, 502, 503 and 504 are retried.
// Other statuses, read failures on an open stream and a line that outgrows
// [Config.MaxBufferBytes] end Connect with an error. Set
// [Config.RetryReadErrors] to reconnect after read failures instead. The delay between
// attempts honors exhausted rate limit headers and otherwise grows the
// sooner the previous attempt failed; see [Config.Backoff] and
// [WithBackoffPolicy].
//
// # Event Handling
//
// Implement [EventHandler], usually by embedding [BaseEventHandler], and pass
// it via [WithEventHandler]. Events are called synchronously from the
// connect loop. A line that is not valid JSON is reported through
// OnStreamError and the stream continues.
//
// # Rules
//
// The filtered stream ("search" endpoint) is driven by server side rules,
// managed through [Client.Rules].
package twitstream
