package signal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/rtcbridge/internal/metrics"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, s *session) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(s.sid)).Msg("readPump closing")
		s.conn.Close()
		s.release(ctl)
		ctl.Orch.CloseSession(s.sid)
		metrics.ActiveSignalConnections.Dec()
	}()

	pongWait := ctl.opts.PingPeriod * 10 / 9
	_ = s.conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.conn.SetPongHandler(func(string) error {
		return s.conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(s.sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := s.conn.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Error().Err(err).Str("module", "signal").Str("sid", string(s.sid)).Msg("readPump read error")
				}
				return
			}
			_ = s.conn.conn.SetReadDeadline(time.Now().Add(pongWait))
			ctl.handleSignal(s, data)
		}
	}
}

type handlerFunc func(ctl *SignalWSController, s *session, req request)

var methods = map[string]handlerFunc{
	"createPeerConnection":   (*SignalWSController).handleCreatePeerConnection,
	"peerConnectionClose":    (*SignalWSController).handleClose,
	"createOffer":            (*SignalWSController).handleCreateOffer,
	"createAnswer":           (*SignalWSController).handleCreateAnswer,
	"setLocalDescription":    (*SignalWSController).handleSetLocalDescription,
	"setRemoteDescription":   (*SignalWSController).handleSetRemoteDescription,
	"addCandidate":           (*SignalWSController).handleCandidate,
	"getPeerConnectionState": (*SignalWSController).handleState,
	"createDataChannel":      (*SignalWSController).handleCreateDataChannel,
	"dataChannelSend":        (*SignalWSController).handleDataChannelSend,
	"dataChannelClose":       (*SignalWSController).handleDataChannelClose,
	"listen":                 (*SignalWSController).handleListen,
	"cancel":                 (*SignalWSController).handleCancel,
	"ping":                   (*SignalWSController).handlePing,
}

func (ctl *SignalWSController) handleSignal(s *session, data []byte) {
	var req request
	if err := json.Unmarshal(data, &req); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.replyError(s, nil, codeBadRequest, err)
		return
	}

	h, ok := methods[req.Method]
	if !ok {
		log.Warn().Str("module", "signal").Str("method", req.Method).Msg("unknown method")
		ctl.replyError(s, req.ID, codeUnknownMethod, fmt.Errorf("unknown method %q", req.Method))
		return
	}
	h(ctl, s, req)
}

// decodeParams unmarshals the request params into p, replying badRequest on failure.
func (ctl *SignalWSController) decodeParams(s *session, req request, p any) bool {
	if len(req.Params) == 0 {
		return true
	}
	if err := json.Unmarshal(req.Params, p); err != nil {
		ctl.replyError(s, req.ID, codeBadRequest, err)
		return false
	}
	return true
}

func (ctl *SignalWSController) reply(s *session, id json.RawMessage, result any) {
	if err := ctl.sendJSON(s.conn, response{ID: id, Result: result}); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(s.sid)).Msg("reply dropped")
	}
}

// replyErr sends err with its classified code.
func (ctl *SignalWSController) replyErr(s *session, id json.RawMessage, err error) {
	if err := ctl.sendJSON(s.conn, response{ID: id, Error: errorFrom(err)}); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(s.sid)).Msg("reply dropped")
	}
}

func (ctl *SignalWSController) replyError(s *session, id json.RawMessage, code string, err error) {
	if err := ctl.sendJSON(s.conn, response{ID: id, Error: &wireError{Code: code, Message: err.Error()}}); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(s.sid)).Msg("reply dropped")
	}
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return err
	}
	return c.TrySend(b)
}

func isBackpressure(err error) bool {
	return errors.Is(err, ErrBackpressure)
}
