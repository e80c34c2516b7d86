// Package media captures the local camera and microphone.
package media

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/Duet/internal/core"
	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/opus"
	"github.com/pion/mediadevices/pkg/codec/vpx"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	// Import drivers - these register themselves on init
	_ "github.com/pion/mediadevices/pkg/driver/camera"
	_ "github.com/pion/mediadevices/pkg/driver/microphone"
)

type Options struct {
	Width        int
	Height       int
	VideoBitrate int
	AudioBitrate int
}

// DeviceCapturer opens camera + microphone with VP8 and Opus encoders.
type DeviceCapturer struct {
	opts Options
}

func NewDeviceCapturer(opts Options) *DeviceCapturer {
	return &DeviceCapturer{opts: opts}
}

func (d *DeviceCapturer) Capture(ctx context.Context) (core.LocalMedia, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	selector, err := d.codecSelector()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrCaptureDenied, err)
	}

	stream, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Video: func(c *mediadevices.MediaTrackConstraints) {
			c.FrameFormat = prop.FrameFormat(frame.FormatI420)
			c.Width = prop.Int(d.opts.Width)
			c.Height = prop.Int(d.opts.Height)
		},
		Audio: func(c *mediadevices.MediaTrackConstraints) {},
		Codec: selector,
	})
	if err != nil {
		log.Warn().Err(err).Str("module", "media").Msg("get user media failed")
		return nil, fmt.Errorf("%w: %v", core.ErrCaptureDenied, err)
	}

	tracks := stream.GetTracks()
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: no tracks", core.ErrCaptureDenied)
	}
	log.Info().
		Str("module", "media").
		Int("tracks", len(tracks)).
		Int("width", d.opts.Width).
		Int("height", d.opts.Height).
		Msg("capture started")
	return newDeviceMedia(tracks), nil
}

func (d *DeviceCapturer) codecSelector() (*mediadevices.CodecSelector, error) {
	vpxParams, err := vpx.NewVP8Params()
	if err != nil {
		return nil, err
	}
	if d.opts.VideoBitrate > 0 {
		vpxParams.BitRate = d.opts.VideoBitrate
	}
	opusParams, err := opus.NewParams()
	if err != nil {
		return nil, err
	}
	if d.opts.AudioBitrate > 0 {
		opusParams.BitRate = d.opts.AudioBitrate
	}
	return mediadevices.NewCodecSelector(
		mediadevices.WithVideoEncoders(&vpxParams),
		mediadevices.WithAudioEncoders(&opusParams),
	), nil
}

type deviceMedia struct {
	tracks    []mediadevices.Track
	closeOnce sync.Once
	closeErr  error
}

func newDeviceMedia(tracks []mediadevices.Track) *deviceMedia {
	return &deviceMedia{tracks: tracks}
}

func (m *deviceMedia) StreamID() string {
	return m.tracks[0].StreamID()
}

func (m *deviceMedia) Tracks() []webrtc.TrackLocal {
	out := make([]webrtc.TrackLocal, 0, len(m.tracks))
	for _, t := range m.tracks {
		out = append(out, t)
	}
	return out
}

// Close stops every device track.
func (m *deviceMedia) Close() error {
	m.closeOnce.Do(func() {
		var errs []error
		for _, t := range m.tracks {
			if err := t.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		m.closeErr = errors.Join(errs...)
		log.Info().Str("module", "media").Msg("capture stopped")
	})
	return m.closeErr
}
