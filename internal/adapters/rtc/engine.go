// Package rtc binds the engine interfaces of core to pion/webrtc.
package rtc

import (
	"fmt"

	"github.com/dkeye/rtcbridge/internal/core"
	"github.com/dkeye/rtcbridge/internal/domain"
	"github.com/pion/interceptor"
	"github.com/pion/logging"
	"github.com/pion/webrtc/v4"
)

// Engine creates pion peer connections sharing one API instance.
type Engine struct {
	api *webrtc.API
}

var _ core.Engine = (*Engine)(nil)

// NewEngine builds a pion API with the default codecs and interceptors. A nil
// loggerFactory keeps pion's own default logger.
func NewEngine(loggerFactory logging.LoggerFactory) (*Engine, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}
	ir := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, ir); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}

	se := webrtc.SettingEngine{}
	if loggerFactory != nil {
		se.LoggerFactory = loggerFactory
	}

	return &Engine{
		api: webrtc.NewAPI(
			webrtc.WithMediaEngine(m),
			webrtc.WithInterceptorRegistry(ir),
			webrtc.WithSettingEngine(se),
		),
	}, nil
}

func (e *Engine) NewPeerConnection(cfg domain.Configuration, constraints domain.Constraints, obs core.PeerObserver) (core.PeerConnection, error) {
	pc, err := e.api.NewPeerConnection(toWebRTCConfig(cfg))
	if err != nil {
		return nil, err
	}
	return newWebRTCConnection(pc, obs), nil
}
