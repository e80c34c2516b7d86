package rtc

import (
	"context"
	"sync"

	"github.com/pion/interceptor"
	"github.com/pion/interceptor/pkg/intervalpli"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var (
	apiOnce  sync.Once
	apiReady = make(chan struct{})
	api      *webrtc.API
	apiErr   error
)

// Init returns the process-wide WebRTC API. The first caller starts the
// build; everyone waits for the same result or for their own ctx.
func Init(ctx context.Context) (*webrtc.API, error) {
	apiOnce.Do(func() {
		go func() {
			api, apiErr = newAPI()
			if apiErr != nil {
				log.Error().Err(apiErr).Str("module", "webrtc").Msg("api init failed")
			} else {
				log.Info().Str("module", "webrtc").Msg("api ready")
			}
			close(apiReady)
		}()
	})
	select {
	case <-apiReady:
		return api, apiErr
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func newAPI() (*webrtc.API, error) {
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}

	interceptorRegistry := &interceptor.Registry{}
	pli, err := intervalpli.NewReceiverInterceptor()
	if err != nil {
		return nil, err
	}
	interceptorRegistry.Add(pli)

	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, interceptorRegistry); err != nil {
		return nil, err
	}

	return webrtc.NewAPI(
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithInterceptorRegistry(interceptorRegistry),
	), nil
}
