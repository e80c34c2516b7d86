package relay

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media/ivfwriter"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
	"github.com/rs/zerolog/log"
)

var errSinkClosed = errors.New("relay: sink closed")

// mediaWriter is what the pion container writers share.
type mediaWriter interface {
	WriteRTP(*rtp.Packet) error
	Close() error
}

// fileSink serializes a container writer so the relay loop and the
// recorder may both close it.
type fileSink struct {
	path string

	mu     sync.Mutex
	w      mediaWriter
	closed bool
}

func (f *fileSink) WriteRTP(p *rtp.Packet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errSinkClosed
	}
	return f.w.WriteRTP(p)
}

func (f *fileSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.w.Close()
}

// Recorder writes relayed tracks into dir: VP8, VP9 and AV1 as IVF, Opus
// as Ogg. Other codecs are skipped.
type Recorder struct {
	dir string

	mu     sync.Mutex
	files  []*fileSink
	closed bool
}

func NewRecorder(dir string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("recording dir: %w", err)
	}
	return &Recorder{dir: dir}, nil
}

func (rc *Recorder) Dir() string { return rc.dir }

// Sink is a SinkFactory opening one file per track.
func (rc *Recorder) Sink(info TrackInfo) Sink {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.closed {
		return nil
	}
	logger := log.With().Str("module", "relay").Uint64("feed", info.Feed).Str("track", info.TrackID).Logger()

	w, path, err := openWriter(info, func(ext string) string {
		return filepath.Join(rc.dir, fmt.Sprintf("feed-%d-%s-%d.%s", info.Feed, sanitize(info.TrackID), len(rc.files), ext))
	})
	if err != nil {
		logger.Warn().Err(err).Str("mime", info.MimeType).Msg("track not recorded")
		return nil
	}
	f := &fileSink{path: path, w: w}
	rc.files = append(rc.files, f)
	logger.Info().Str("file", f.path).Msg("recording track")
	return f
}

// Files lists every file opened so far.
func (rc *Recorder) Files() []string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out := make([]string, len(rc.files))
	for i, f := range rc.files {
		out[i] = f.path
	}
	slices.Sort(out)
	return out
}

// Close finalizes every file; later Sink calls return nil.
func (rc *Recorder) Close() error {
	rc.mu.Lock()
	rc.closed = true
	files := slices.Clone(rc.files)
	rc.mu.Unlock()

	var errs []error
	for _, f := range files {
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.path, err))
		}
	}
	return errors.Join(errs...)
}

// openWriter returns the writer for info and the path it writes to.
func openWriter(info TrackInfo, path func(ext string) string) (mediaWriter, string, error) {
	mime := info.MimeType
	switch {
	case strings.EqualFold(mime, webrtc.MimeTypeOpus):
		p := path("ogg")
		w, err := oggwriter.New(p, 48000, 2)
		return w, p, err
	case strings.EqualFold(mime, webrtc.MimeTypeVP8),
		strings.EqualFold(mime, webrtc.MimeTypeVP9),
		strings.EqualFold(mime, webrtc.MimeTypeAV1):
		p := path("ivf")
		w, err := ivfwriter.New(p, ivfwriter.WithCodec(canonicalVideo(mime)))
		return w, p, err
	}
	return nil, "", fmt.Errorf("unsupported codec %q", mime)
}

func canonicalVideo(mime string) string {
	for _, m := range []string{webrtc.MimeTypeVP8, webrtc.MimeTypeVP9, webrtc.MimeTypeAV1} {
		if strings.EqualFold(m, mime) {
			return m
		}
	}
	return mime
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
