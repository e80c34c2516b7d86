package rtc

import (
	"context"

	"github.com/dkeye/Duet/internal/core"
	"github.com/pion/webrtc/v4"
)

// Factory builds publisher and subscriber connections on the shared API.
type Factory struct {
	api *webrtc.API
	cfg webrtc.Configuration
}

func NewFactory(ctx context.Context, iceServers []string) (*Factory, error) {
	a, err := Init(ctx)
	if err != nil {
		return nil, err
	}
	return &Factory{api: a, cfg: DefaultWebRTCConfig(iceServers)}, nil
}

func (f *Factory) NewPublisher(local core.LocalMedia) (core.MediaConnection, error) {
	c, err := NewWebRTCConnection(f.api, f.cfg, "publisher")
	if err != nil {
		return nil, err
	}
	if err := c.AddSendTracks(local.Tracks()); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (f *Factory) NewSubscriber() (core.MediaConnection, error) {
	c, err := NewWebRTCConnection(f.api, f.cfg, "subscriber")
	if err != nil {
		return nil, err
	}
	return c, nil
}
