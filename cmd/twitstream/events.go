package main

import (
	"github.com/bft-labs/twitstream/pkg/log"
	"github.com/bft-labs/twitstream/pkg/twitstream"
)

// logHandler reports session activity that is not written to the output.
type logHandler struct {
	twitstream.BaseEventHandler
	logger twitstream.Logger
}

func (h logHandler) OnConnected(ev twitstream.ConnectedEvent) {
	h.logger.Info("stream connected",
		log.Session(ev.SessionID),
		log.Attempt(ev.Attempt))
}

func (h logHandler) OnReconnecting(ev twitstream.ReconnectingEvent) {
	h.logger.Warn("reconnecting",
		log.Err(ev.Err),
		log.Duration("delay", ev.Delay),
		log.Attempt(ev.Attempt))
}

func (h logHandler) OnClose(ev twitstream.CloseEvent) {
	if ev.Err != nil {
		h.logger.Info("stream closed", log.Session(ev.SessionID), log.Err(ev.Err))
		return
	}
	h.logger.Info("stream closed", log.Session(ev.SessionID))
}

func (h logHandler) OnHeartbeat() {
	h.logger.Debug("heartbeat")
}

func (h logHandler) OnAPIErrors(rec twitstream.Record) {
	h.logger.Warn("stream reported errors", log.String("errors", string(rec.Errors)))
}

func (h logHandler) OnOther(rec twitstream.Record) {
	h.logger.Debug("unrecognized record", log.String("payload", string(rec.Payload)))
}

func (h logHandler) OnStreamError(err error) {
	h.logger.Warn("stream error", log.Err(err))
}
