package signal

import (
	"sync"
	"sync/atomic"

	"github.com/dkeye/rtcbridge/internal/app"
	"github.com/dkeye/rtcbridge/internal/app/events"
	"github.com/dkeye/rtcbridge/internal/core"
	"github.com/rs/zerolog/log"
)

// session is the state of one WebSocket: which event channels it listens to.
type session struct {
	sid    core.SessionID
	client core.SessionID
	conn   *WsSignalConn

	mu        sync.Mutex
	listening map[string]*wsListener
}

func newSession(sid, client core.SessionID, conn *WsSignalConn) *session {
	return &session{
		sid:       sid,
		client:    client,
		conn:      conn,
		listening: make(map[string]*wsListener),
	}
}

// wsListener forwards one channel's events to the socket.
type wsListener struct {
	ctl  *SignalWSController
	sess *session

	gen     atomic.Uint64
	dropped atomic.Int64
}

func (l *wsListener) Deliver(channel string, ev events.Event) error {
	err := l.ctl.sendJSON(l.sess.conn, eventFrame{Type: "event", Channel: channel, Event: ev})
	if err == nil {
		l.dropped.Store(0)
		return nil
	}
	if !isBackpressure(err) || l.ctl.Orch.Policy == nil {
		return err
	}

	dropped := int(l.dropped.Add(1))
	switch l.ctl.Orch.Policy.OnBackPressure(channel, dropped) {
	case app.DetachListener:
		// Deliver runs under the subscription lock.
		go l.ctl.Orch.Release(channel, l.gen.Load())
	case app.DisconnectClient:
		log.Warn().Str("module", "signal").Str("sid", string(l.sess.sid)).Str("channel", channel).Int("dropped", dropped).Msg("client too slow, disconnecting")
		l.sess.conn.Close()
	case app.DropEvent, app.NoAction:
	}
	return err
}

func (s *session) track(channel string, l *wsListener) {
	s.mu.Lock()
	s.listening[channel] = l
	s.mu.Unlock()
}

func (s *session) untrack(channel string) {
	s.mu.Lock()
	delete(s.listening, channel)
	s.mu.Unlock()
}

// release detaches every listener this socket still owns.
func (s *session) release(ctl *SignalWSController) {
	s.mu.Lock()
	listening := s.listening
	s.listening = make(map[string]*wsListener)
	s.mu.Unlock()

	for channel, l := range listening {
		ctl.Orch.Release(channel, l.gen.Load())
	}
}
