package app

import (
	"fmt"
	"sync"

	"github.com/dkeye/rtcbridge/internal/app/events"
	"github.com/dkeye/rtcbridge/internal/core"
	"github.com/dkeye/rtcbridge/internal/domain"
	"github.com/dkeye/rtcbridge/internal/metrics"
	"github.com/rs/zerolog/log"
)

// DataChannel is a data channel tracked for a live connection. Rows outlive the
// engine channel: a closed channel stays queryable and reports closed until its
// parent connection is closed.
type DataChannel struct {
	id     domain.DataChannelID
	pcID   domain.ConnectionID
	label  string
	remote bool
	sub    *events.Subscription

	mu    sync.Mutex
	dc    core.DataChannel
	state domain.DataChannelState
}

func (d *DataChannel) ID() domain.DataChannelID { return d.id }
func (d *DataChannel) Label() string            { return d.label }
func (d *DataChannel) Remote() bool             { return d.remote }
func (d *DataChannel) EventChannel() string     { return d.sub.Name() }

func (d *DataChannel) State() domain.DataChannelState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// OnStateChange implements core.DataChannelObserver.
func (d *DataChannel) OnStateChange(s domain.DataChannelState) {
	d.mu.Lock()
	if d.state == s {
		d.mu.Unlock()
		return
	}
	d.state = s
	d.mu.Unlock()
	d.sub.Publish(events.DataChannelStateEvent(d.id, s))
}

// OnMessage implements core.DataChannelObserver.
func (d *DataChannel) OnMessage(data []byte, binary bool) {
	d.sub.Publish(events.DataChannelMessageEvent(d.id, data, binary))
}

var _ core.DataChannelObserver = (*DataChannel)(nil)

func (r *Registry) newDataChannel(conn *Connection, label string, remote bool) *DataChannel {
	r.mu.Lock()
	id := conn.nextChannel
	conn.nextChannel++
	r.mu.Unlock()

	return &DataChannel{
		id:     id,
		pcID:   conn.id,
		label:  label,
		remote: remote,
		state:  domain.DataChannelStateConnecting,
		sub:    events.NewSubscription(domain.DataChannelEventChannel(conn.id, id), r.queueSize),
	}
}

// register makes dc visible. It fails if conn was closed in the meantime.
func (r *Registry) register(conn *Connection, dc *DataChannel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conns[conn.id] != conn {
		return fmt.Errorf("%w: peer connection %s closed", domain.ErrNotFound, conn.id)
	}
	conn.channels[dc.id] = dc
	r.subs[dc.sub.Name()] = dc.sub
	metrics.ActiveDataChannels.Inc()
	return nil
}

// CreateDataChannel opens a local data channel on the connection.
func (r *Registry) CreateDataChannel(pcID domain.ConnectionID, label string, rawInit map[string]any) (*DataChannel, error) {
	init, err := domain.ParseDataChannelInit(rawInit)
	if err != nil {
		return nil, err
	}
	conn, err := r.Lookup(pcID)
	if err != nil {
		return nil, err
	}

	dc := r.newDataChannel(conn, label, false)
	engineDC, err := conn.pc.CreateDataChannel(label, init, dc)
	if err != nil {
		dc.sub.Close()
		return nil, fmt.Errorf("%w: create data channel: %v", domain.ErrEngineFault, err)
	}
	dc.mu.Lock()
	dc.dc = engineDC
	dc.mu.Unlock()

	if err := r.register(conn, dc); err != nil {
		dc.sub.Close()
		_ = engineDC.Close()
		return nil, err
	}
	log.Info().Str("module", "app.datachannel").Str("pc", string(pcID)).Int("dc", int(dc.id)).Str("label", label).Msg("created data channel")
	return dc, nil
}

func (r *Registry) adoptRemoteChannel(conn *Connection, rdc core.RemoteDataChannel) (*DataChannel, error) {
	dc := r.newDataChannel(conn, rdc.Label(), true)
	dc.dc = rdc
	if err := r.register(conn, dc); err != nil {
		dc.sub.Close()
		return nil, err
	}
	rdc.Observe(dc)
	dc.OnStateChange(rdc.ReadyState())
	log.Info().Str("module", "app.datachannel").Str("pc", string(conn.id)).Int("dc", int(dc.id)).Str("label", dc.label).Msg("remote data channel opened")
	return dc, nil
}

// LookupDataChannel returns the channel row, closed or not.
func (r *Registry) LookupDataChannel(pcID domain.ConnectionID, id domain.DataChannelID) (*DataChannel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[pcID]
	if !ok {
		return nil, fmt.Errorf("%w: peer connection %s", domain.ErrNotFound, pcID)
	}
	dc, ok := conn.channels[id]
	if !ok {
		return nil, fmt.Errorf("%w: data channel %d on %s", domain.ErrNotFound, id, pcID)
	}
	return dc, nil
}

// SendData writes one message to an open data channel.
func (r *Registry) SendData(pcID domain.ConnectionID, id domain.DataChannelID, data []byte, binary bool) error {
	dc, err := r.LookupDataChannel(pcID, id)
	if err != nil {
		return err
	}
	dc.mu.Lock()
	engineDC, state := dc.dc, dc.state
	dc.mu.Unlock()
	if state != domain.DataChannelStateOpen {
		return fmt.Errorf("%w: data channel %d is %s", domain.ErrInvalidState, id, state)
	}
	if err := engineDC.Send(data, binary); err != nil {
		return fmt.Errorf("%w: send on data channel %d: %v", domain.ErrEngineFault, id, err)
	}
	return nil
}

// CloseDataChannel closes the engine channel. The row stays and reports closed.
func (r *Registry) CloseDataChannel(pcID domain.ConnectionID, id domain.DataChannelID) error {
	dc, err := r.LookupDataChannel(pcID, id)
	if err != nil {
		return err
	}
	dc.mu.Lock()
	engineDC, state := dc.dc, dc.state
	dc.mu.Unlock()
	if state == domain.DataChannelStateClosed {
		return nil
	}
	dc.OnStateChange(domain.DataChannelStateClosing)
	if err := engineDC.Close(); err != nil {
		log.Warn().Err(err).Str("module", "app.datachannel").Str("pc", string(pcID)).Int("dc", int(id)).Msg("engine close error")
	}
	dc.OnStateChange(domain.DataChannelStateClosed)
	return nil
}
