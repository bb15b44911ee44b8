// Package orch exposes the boundary operations of the bridge and remembers which
// signalling client created which connection.
package orch

import (
	"fmt"
	"sync"

	"github.com/dkeye/rtcbridge/internal/app"
	"github.com/dkeye/rtcbridge/internal/app/events"
	"github.com/dkeye/rtcbridge/internal/core"
	"github.com/dkeye/rtcbridge/internal/domain"
	"github.com/rs/zerolog/log"
)

type Orchestrator struct {
	Registry   *app.Registry
	Negotiator *app.Negotiator
	Policy     app.Policy

	mu     sync.Mutex
	owners map[core.SessionID]map[domain.ConnectionID]struct{}
}

func New(reg *app.Registry, policy app.Policy) *Orchestrator {
	return &Orchestrator{
		Registry:   reg,
		Negotiator: app.NewNegotiator(reg),
		Policy:     policy,
		owners:     make(map[core.SessionID]map[domain.ConnectionID]struct{}),
	}
}

// CreatePeerConnection creates a connection owned by sid.
func (o *Orchestrator) CreatePeerConnection(sid core.SessionID, config, constraints map[string]any) (domain.ConnectionID, error) {
	id, err := o.Registry.Create(config, constraints)
	if err != nil {
		return "", err
	}
	o.mu.Lock()
	owned, ok := o.owners[sid]
	if !ok {
		owned = make(map[domain.ConnectionID]struct{})
		o.owners[sid] = owned
	}
	owned[id] = struct{}{}
	o.mu.Unlock()
	return id, nil
}

func (o *Orchestrator) ClosePeerConnection(id domain.ConnectionID) error {
	if err := o.Registry.Close(id); err != nil {
		return err
	}
	o.mu.Lock()
	for sid, owned := range o.owners {
		if _, ok := owned[id]; ok {
			delete(owned, id)
			if len(owned) == 0 {
				delete(o.owners, sid)
			}
			break
		}
	}
	o.mu.Unlock()
	return nil
}

// CloseSession closes every connection sid created. Called when its transport goes away.
func (o *Orchestrator) CloseSession(sid core.SessionID) int {
	o.mu.Lock()
	owned := o.owners[sid]
	delete(o.owners, sid)
	o.mu.Unlock()

	closed := 0
	for id := range owned {
		if err := o.Registry.Close(id); err != nil {
			log.Debug().Err(err).Str("module", "orch").Str("sid", string(sid)).Str("pc", string(id)).Msg("close session: already closed")
			continue
		}
		closed++
	}
	if closed > 0 {
		log.Info().Str("module", "orch").Str("sid", string(sid)).Int("closed", closed).Msg("closed session connections")
	}
	return closed
}

// Shutdown closes everything and waits for in-flight negotiation to settle.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	o.owners = make(map[core.SessionID]map[domain.ConnectionID]struct{})
	o.mu.Unlock()
	o.Registry.CloseAll()
	o.Negotiator.Close()
}

func (o *Orchestrator) CreateOffer(id domain.ConnectionID, constraints map[string]any, done *app.Completion[domain.SessionDescription]) {
	o.Negotiator.CreateOffer(id, constraints, done)
}

func (o *Orchestrator) CreateAnswer(id domain.ConnectionID, constraints map[string]any, done *app.Completion[domain.SessionDescription]) {
	o.Negotiator.CreateAnswer(id, constraints, done)
}

// SetLocalDescription validates the description before handing it to the engine.
func (o *Orchestrator) SetLocalDescription(id domain.ConnectionID, sdp, typ string, done *app.Completion[struct{}]) {
	d, err := domain.NewSessionDescription(domain.SDPType(typ), sdp)
	if err != nil {
		done.Fail(err)
		return
	}
	o.Negotiator.SetLocalDescription(id, d, done)
}

func (o *Orchestrator) SetRemoteDescription(id domain.ConnectionID, sdp, typ string, done *app.Completion[struct{}]) {
	d, err := domain.NewSessionDescription(domain.SDPType(typ), sdp)
	if err != nil {
		done.Fail(err)
		return
	}
	o.Negotiator.SetRemoteDescription(id, d, done)
}

func (o *Orchestrator) AddICECandidate(id domain.ConnectionID, sdpMid string, sdpMLineIndex uint16, candidate string) error {
	return o.Negotiator.AddICECandidate(id, domain.ICECandidate{
		SDPMid:        sdpMid,
		SDPMLineIndex: sdpMLineIndex,
		Candidate:     candidate,
	})
}

func (o *Orchestrator) PeerConnectionState(id domain.ConnectionID) (app.ConnectionInfo, error) {
	conn, err := o.Registry.Lookup(id)
	if err != nil {
		return app.ConnectionInfo{}, err
	}
	return conn.Info(), nil
}

func (o *Orchestrator) CreateDataChannel(id domain.ConnectionID, label string, init map[string]any) (*app.DataChannel, error) {
	return o.Registry.CreateDataChannel(id, label, init)
}

// DataChannelSend sends data as a text or binary message depending on kind.
func (o *Orchestrator) DataChannelSend(id domain.ConnectionID, channel domain.DataChannelID, kind string, data []byte) error {
	switch kind {
	case "text", "":
		return o.Registry.SendData(id, channel, data, false)
	case "binary":
		return o.Registry.SendData(id, channel, data, true)
	default:
		return fmt.Errorf("%w: unknown message type %q", domain.ErrConfig, kind)
	}
}

func (o *Orchestrator) DataChannelClose(id domain.ConnectionID, channel domain.DataChannelID) error {
	return o.Registry.CloseDataChannel(id, channel)
}

func (o *Orchestrator) Listen(channel string, l events.Listener) (uint64, error) {
	return o.Registry.Listen(channel, l)
}

func (o *Orchestrator) Cancel(channel string) error {
	return o.Registry.Cancel(channel)
}

func (o *Orchestrator) Release(channel string, gen uint64) bool {
	return o.Registry.Release(channel, gen)
}
