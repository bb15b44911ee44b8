package rtc

import (
	"sync"

	"github.com/dkeye/rtcbridge/internal/core"
	"github.com/dkeye/rtcbridge/internal/domain"
	"github.com/pion/webrtc/v4"
)

// dataChannel wraps a pion data channel. Callbacks raised before an observer is
// bound are dropped; Observe callers read ReadyState to catch up.
type dataChannel struct {
	dc *webrtc.DataChannel

	mu  sync.RWMutex
	obs core.DataChannelObserver
}

var _ core.RemoteDataChannel = (*dataChannel)(nil)

func newDataChannel(dc *webrtc.DataChannel) *dataChannel {
	w := &dataChannel{dc: dc}
	dc.OnOpen(func() { w.state(domain.DataChannelStateOpen) })
	dc.OnClose(func() { w.state(domain.DataChannelStateClosed) })
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if obs := w.observer(); obs != nil {
			obs.OnMessage(msg.Data, !msg.IsString)
		}
	})
	return w
}

func (w *dataChannel) observer() core.DataChannelObserver {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.obs
}

func (w *dataChannel) state(s domain.DataChannelState) {
	if obs := w.observer(); obs != nil {
		obs.OnStateChange(s)
	}
}

func (w *dataChannel) Observe(obs core.DataChannelObserver) {
	w.mu.Lock()
	w.obs = obs
	w.mu.Unlock()
}

func (w *dataChannel) Label() string { return w.dc.Label() }

func (w *dataChannel) ReadyState() domain.DataChannelState {
	return dataChannelStates[w.dc.ReadyState()]
}

func (w *dataChannel) Send(data []byte, binary bool) error {
	if binary {
		return w.dc.Send(data)
	}
	return w.dc.SendText(string(data))
}

func (w *dataChannel) Close() error { return w.dc.Close() }
