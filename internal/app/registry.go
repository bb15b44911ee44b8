package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/dkeye/rtcbridge/internal/app/events"
	"github.com/dkeye/rtcbridge/internal/core"
	"github.com/dkeye/rtcbridge/internal/domain"
	"github.com/dkeye/rtcbridge/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Connection is a registered peer connection. Its id and configuration never change;
// state getters read through to the engine.
type Connection struct {
	id     domain.ConnectionID
	config domain.Configuration
	pc     core.PeerConnection
	sub    *events.Subscription
	obs    *connectionObserver

	ctx    context.Context
	cancel context.CancelFunc

	// guarded by Registry.mu
	channels    map[domain.DataChannelID]*DataChannel
	nextChannel domain.DataChannelID
}

func (c *Connection) ID() domain.ConnectionID              { return c.id }
func (c *Connection) Configuration() domain.Configuration  { return c.config }
func (c *Connection) EventChannel() string                 { return c.sub.Name() }
func (c *Connection) SignalingState() domain.SignalingState { return c.pc.SignalingState() }
func (c *Connection) ICEConnectionState() domain.ICEConnectionState {
	return c.pc.ICEConnectionState()
}
func (c *Connection) ICEGatheringState() domain.ICEGatheringState { return c.pc.ICEGatheringState() }
func (c *Connection) ConnectionState() domain.PeerConnectionState { return c.pc.ConnectionState() }

// RemoteStreams returns a snapshot of the remote streams seen so far.
func (c *Connection) RemoteStreams() []domain.MediaStream { return c.obs.streamsSnapshot() }

// ConnectionInfo is a point-in-time view of a connection.
type ConnectionInfo struct {
	ID                  domain.ConnectionID `json:"peerConnectionId"`
	SignalingState      string              `json:"signalingState"`
	ICEConnectionState  string              `json:"iceConnectionState"`
	ICEGatheringState   string              `json:"iceGatheringState"`
	PeerConnectionState string              `json:"connectionState"`
	DataChannels        int                 `json:"dataChannels"`
}

// Registry owns every live connection, its data channels and the event
// subscriptions of both. One lock guards all three tables.
type Registry struct {
	engine         core.Engine
	defaultServers []domain.ICEServer
	queueSize      int

	mu    sync.RWMutex
	conns map[domain.ConnectionID]*Connection
	subs  map[string]*events.Subscription
}

type RegistryOption func(*Registry)

// WithDefaultICEServers sets the servers used when a configuration has no iceServers key.
func WithDefaultICEServers(servers []domain.ICEServer) RegistryOption {
	return func(r *Registry) { r.defaultServers = servers }
}

// WithEventQueueSize bounds the pending events of every subscription.
func WithEventQueueSize(n int) RegistryOption {
	return func(r *Registry) { r.queueSize = n }
}

func NewRegistry(engine core.Engine, opts ...RegistryOption) *Registry {
	r := &Registry{
		engine:    engine,
		queueSize: events.DefaultQueueSize,
		conns:     make(map[domain.ConnectionID]*Connection),
		subs:      make(map[string]*events.Subscription),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create parses the raw configuration and constraints, creates the engine connection with
// its observer attached and registers it. On error nothing stays registered.
func (r *Registry) Create(rawConfig, rawConstraints map[string]any) (domain.ConnectionID, error) {
	cfg, err := domain.ParseConfiguration(rawConfig, r.defaultServers)
	if err != nil {
		return "", err
	}
	constraints, err := domain.ParseConstraints(rawConstraints)
	if err != nil {
		return "", err
	}

	id := r.mintID()
	sub := events.NewSubscription(id.EventChannel(), r.queueSize)
	ctx, cancel := context.WithCancel(context.Background())
	conn := &Connection{
		id:       id,
		config:   cfg,
		sub:      sub,
		ctx:      ctx,
		cancel:   cancel,
		channels: make(map[domain.DataChannelID]*DataChannel),
	}
	conn.obs = newConnectionObserver(r, conn)

	pc, err := r.createEngineConnection(cfg, constraints, conn.obs)
	if err != nil {
		cancel()
		sub.Close()
		log.Error().Err(err).Str("module", "app.registry").Str("pc", string(id)).Msg("engine create failed")
		return "", err
	}
	conn.pc = pc

	r.mu.Lock()
	if _, taken := r.conns[id]; taken {
		r.mu.Unlock()
		cancel()
		sub.Close()
		_ = pc.Close()
		return "", fmt.Errorf("%w: connection id %s already registered", domain.ErrEngineFault, id)
	}
	r.conns[id] = conn
	r.subs[sub.Name()] = sub
	r.mu.Unlock()

	metrics.ActivePeerConnections.Inc()
	metrics.PeerConnectionsCreatedTotal.Inc()
	log.Info().
		Str("module", "app.registry").
		Str("pc", string(id)).
		Int("ice_servers", len(cfg.ICEServers)).
		Str("ice_transport_policy", string(cfg.ICETransportPolicy)).
		Msg("created peer connection")
	return id, nil
}

func (r *Registry) createEngineConnection(
	cfg domain.Configuration,
	constraints domain.Constraints,
	obs core.PeerObserver,
) (pc core.PeerConnection, err error) {
	defer func() {
		if p := recover(); p != nil {
			pc = nil
			err = fmt.Errorf("%w: create connection: %v", domain.ErrEngineFault, p)
		}
	}()
	pc, err = r.engine.NewPeerConnection(cfg, constraints, obs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEngineFault, err)
	}
	return pc, nil
}

func (r *Registry) mintID() domain.ConnectionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for {
		id := domain.NewConnectionID()
		if _, taken := r.conns[id]; !taken {
			return id
		}
	}
}

// Lookup returns the live connection registered under id.
func (r *Registry) Lookup(id domain.ConnectionID) (*Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[id]
	if !ok {
		return nil, fmt.Errorf("%w: peer connection %s", domain.ErrNotFound, id)
	}
	return conn, nil
}

// alive reports whether conn is still the connection registered under its id.
func (r *Registry) alive(conn *Connection) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[conn.id] == conn
}

// Close unregisters the connection, detaches every subscription it owns and closes
// the engine connection. A second Close for the same id returns ErrNotFound.
func (r *Registry) Close(id domain.ConnectionID) error {
	r.mu.Lock()
	conn, ok := r.conns[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: peer connection %s", domain.ErrNotFound, id)
	}
	delete(r.conns, id)
	delete(r.subs, conn.sub.Name())
	channels := make([]*DataChannel, 0, len(conn.channels))
	for _, dc := range conn.channels {
		delete(r.subs, dc.sub.Name())
		channels = append(channels, dc)
	}
	r.mu.Unlock()

	r.teardown(conn, channels)
	log.Info().Str("module", "app.registry").Str("pc", string(id)).Int("data_channels", len(channels)).Msg("closed peer connection")
	return nil
}

func (r *Registry) teardown(conn *Connection, channels []*DataChannel) {
	// Subscriptions go first so nothing raised by the engine close reaches a listener.
	conn.sub.Close()
	for _, dc := range channels {
		dc.sub.Close()
	}
	conn.cancel()
	if err := conn.pc.Close(); err != nil {
		log.Warn().Err(err).Str("module", "app.registry").Str("pc", string(conn.id)).Msg("engine close error")
	}
	metrics.ActivePeerConnections.Dec()
	metrics.ActiveDataChannels.Sub(float64(len(channels)))
}

// CloseAll closes every registered connection.
func (r *Registry) CloseAll() {
	for _, info := range r.List() {
		if err := r.Close(info.ID); err != nil {
			log.Debug().Err(err).Str("module", "app.registry").Str("pc", string(info.ID)).Msg("close all: already gone")
		}
	}
}

// List snapshots the registered connections.
func (r *Registry) List() []ConnectionInfo {
	r.mu.RLock()
	conns := make([]*Connection, 0, len(r.conns))
	counts := make([]int, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
		counts = append(counts, len(c.channels))
	}
	r.mu.RUnlock()

	out := make([]ConnectionInfo, 0, len(conns))
	for i, c := range conns {
		info := c.Info()
		info.DataChannels = counts[i]
		out = append(out, info)
	}
	return out
}

// Info reads the connection's current states from the engine.
func (c *Connection) Info() ConnectionInfo {
	return ConnectionInfo{
		ID:                  c.id,
		SignalingState:      c.SignalingState().String(),
		ICEConnectionState:  c.ICEConnectionState().String(),
		ICEGatheringState:   c.ICEGatheringState().String(),
		PeerConnectionState: c.ConnectionState().String(),
	}
}

// Listen attaches l to the named connection or data channel subscription,
// replacing the previous listener. The generation identifies the attachment for Release.
func (r *Registry) Listen(channel string, l events.Listener) (uint64, error) {
	sub, err := r.subscription(channel)
	if err != nil {
		return 0, err
	}
	gen, err := sub.Listen(l)
	if err != nil {
		// Closed between lookup and attach: the row is gone.
		return 0, fmt.Errorf("%w: event channel %s", domain.ErrNotFound, channel)
	}
	return gen, nil
}

// Cancel detaches whatever listener the named subscription has.
func (r *Registry) Cancel(channel string) error {
	sub, err := r.subscription(channel)
	if err != nil {
		return err
	}
	sub.Cancel()
	return nil
}

// Release detaches the listener attached under gen, leaving newer listeners alone.
func (r *Registry) Release(channel string, gen uint64) bool {
	sub, err := r.subscription(channel)
	if err != nil {
		return false
	}
	return sub.Release(gen)
}

func (r *Registry) subscription(channel string) (*events.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.subs[channel]
	if !ok {
		return nil, fmt.Errorf("%w: event channel %s", domain.ErrNotFound, channel)
	}
	return sub, nil
}
