// Package source implements the stream source adapter: it opens a network
// camera feed over HTTP and exposes a pull interface yielding decoded
// frames. Two feed shapes are supported: MJPEG streams
// (multipart/x-mixed-replace, one JPEG per part) and still-image cameras
// polled at a fixed interval.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/camkiosk/camkiosk/internal/domain"
)

const userAgent = "camkiosk/1.0"

// Options configures an HTTPSource.
type Options struct {
	// URL is the camera feed URL.
	URL string
	// Mode forces the feed shape: "auto", "mjpeg" or "snapshot".
	Mode string
	// SnapshotInterval is the poll interval for still-image cameras.
	SnapshotInterval time.Duration
	// StallTimeout aborts a blocked read when no frame arrives within it.
	StallTimeout time.Duration
}

// HTTPSource pulls frames from an HTTP camera feed. It owns its
// ConnectionState: DISCONNECTED -> CONNECTING -> STREAMING -> FAILED ->
// CONNECTING. FAILED is never terminal; only Close is.
type HTTPSource struct {
	logger *zap.Logger
	client *http.Client
	opts   Options

	state atomic.Int32
	seq   atomic.Uint64

	mu        sync.Mutex
	resp      *http.Response
	parts     *multipart.Reader // non-nil while an MJPEG stream is open
	pending   *domain.Frame     // first snapshot decoded during Open
	lastFetch time.Time
	closed    bool
}

// New creates a source for the given feed.
func New(opts Options, logger *zap.Logger) *HTTPSource {
	return &HTTPSource{
		logger: logger,
		opts:   opts,
		// No global client timeout: an MJPEG response body stays open
		// for the process lifetime. Stalls are handled per read.
		client: &http.Client{},
	}
}

// State returns the current connection state.
func (s *HTTPSource) State() domain.ConnectionState {
	return domain.ConnectionState(s.state.Load())
}

func (s *HTTPSource) setState(st domain.ConnectionState) {
	old := domain.ConnectionState(s.state.Swap(int32(st)))
	if old != st {
		s.logger.Debug("Connection state changed",
			zap.Stringer("from", old),
			zap.Stringer("to", st))
	}
}

// Open connects to the feed and sniffs its shape. It fails with an error
// wrapping ErrConnection when the URL is unreachable or the content type
// is unsupported.
func (s *HTTPSource) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("%w: source is closed", domain.ErrConnection)
	}
	s.releaseLocked()
	s.setState(domain.StateConnecting)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.opts.URL, nil)
	if err != nil {
		s.setState(domain.StateFailed)
		return fmt.Errorf("%w: building request: %v", domain.ErrConnection, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		s.setState(domain.StateFailed)
		return fmt.Errorf("%w: %v", domain.ErrConnection, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		s.setState(domain.StateFailed)
		return fmt.Errorf("%w: unexpected status code: %d", domain.ErrConnection, resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		resp.Body.Close()
		s.setState(domain.StateFailed)
		return fmt.Errorf("%w: unreadable content type: %v", domain.ErrConnection, err)
	}

	switch {
	case strings.HasPrefix(mediaType, "multipart/x-mixed-replace"):
		if s.opts.Mode == "snapshot" {
			resp.Body.Close()
			s.setState(domain.StateFailed)
			return fmt.Errorf("%w: feed is an MJPEG stream but snapshot mode is forced", domain.ErrConnection)
		}
		boundary := params["boundary"]
		if boundary == "" {
			resp.Body.Close()
			s.setState(domain.StateFailed)
			return fmt.Errorf("%w: MJPEG stream without boundary", domain.ErrConnection)
		}
		s.resp = resp
		s.parts = multipart.NewReader(resp.Body, boundary)
		s.logger.Info("MJPEG stream opened", zap.String("url", s.opts.URL))
		return nil

	case strings.HasPrefix(mediaType, "image/"):
		if s.opts.Mode == "mjpeg" {
			resp.Body.Close()
			s.setState(domain.StateFailed)
			return fmt.Errorf("%w: feed is a still image but mjpeg mode is forced", domain.ErrConnection)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameSize))
		resp.Body.Close()
		if err != nil {
			s.setState(domain.StateFailed)
			return fmt.Errorf("%w: reading snapshot: %v", domain.ErrConnection, err)
		}
		img, err := decodeFrame(data)
		if err != nil {
			s.setState(domain.StateFailed)
			return fmt.Errorf("%w: first snapshot undecodable: %v", domain.ErrConnection, err)
		}
		s.pending = &domain.Frame{
			Seq:       s.seq.Add(1),
			Timestamp: time.Now(),
			Image:     img,
		}
		s.lastFetch = time.Now()
		s.logger.Info("Snapshot feed opened",
			zap.String("url", s.opts.URL),
			zap.Duration("interval", s.opts.SnapshotInterval))
		return nil

	default:
		resp.Body.Close()
		s.setState(domain.StateFailed)
		return fmt.Errorf("%w: unsupported stream format %q", domain.ErrConnection, mediaType)
	}
}

// NextFrame blocks until the next decoded frame is available. On a
// disconnected or failed handle it attempts one reconnect before failing.
func (s *HTTPSource) NextFrame(ctx context.Context) (*domain.Frame, error) {
	switch s.State() {
	case domain.StateDisconnected, domain.StateFailed:
		if err := s.Open(ctx); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	parts := s.parts
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	if parts != nil {
		return s.nextPart(ctx, parts)
	}
	if pending != nil {
		s.setState(domain.StateStreaming)
		return pending, nil
	}
	return s.nextSnapshot(ctx)
}

// nextPart reads one JPEG part from the open MJPEG stream.
func (s *HTTPSource) nextPart(ctx context.Context, parts *multipart.Reader) (*domain.Frame, error) {
	// A stalled camera keeps the socket open without sending parts.
	// Closing the body unblocks the read; the loop reconnects.
	stall := time.AfterFunc(s.opts.StallTimeout, func() {
		s.logger.Warn("Stream stalled, aborting read",
			zap.Duration("timeout", s.opts.StallTimeout))
		s.closeBody()
	})
	defer stall.Stop()
	unwatch := context.AfterFunc(ctx, s.closeBody)
	defer unwatch()

	part, err := parts.NextPart()
	if err != nil {
		s.setState(domain.StateFailed)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: remote closed the stream", domain.ErrStreamEnded)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStreamEnded, err)
	}

	data, err := readPartData(part)
	part.Close()
	if err != nil {
		s.setState(domain.StateFailed)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: reading part: %v", domain.ErrStreamEnded, err)
	}

	img, err := decodeFrame(data)
	if err != nil {
		// Connection stays up: a corrupt frame is skipped, not fatal.
		return nil, err
	}

	s.setState(domain.StateStreaming)
	return &domain.Frame{
		Seq:       s.seq.Add(1),
		Timestamp: time.Now(),
		Image:     img,
	}, nil
}

// nextSnapshot polls the still-image camera, pacing requests to the
// configured interval.
func (s *HTTPSource) nextSnapshot(ctx context.Context) (*domain.Frame, error) {
	s.mu.Lock()
	wait := s.opts.SnapshotInterval - time.Since(s.lastFetch)
	s.mu.Unlock()

	if wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.opts.StallTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, s.opts.URL, nil)
	if err != nil {
		s.setState(domain.StateFailed)
		return nil, fmt.Errorf("%w: building request: %v", domain.ErrConnection, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		s.setState(domain.StateFailed)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.setState(domain.StateFailed)
		return nil, fmt.Errorf("%w: unexpected status code: %d", domain.ErrConnection, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameSize))
	if err != nil {
		s.setState(domain.StateFailed)
		return nil, fmt.Errorf("%w: reading snapshot: %v", domain.ErrStreamEnded, err)
	}

	s.mu.Lock()
	s.lastFetch = time.Now()
	s.mu.Unlock()

	img, err := decodeFrame(data)
	if err != nil {
		return nil, err
	}

	s.setState(domain.StateStreaming)
	return &domain.Frame{
		Seq:       s.seq.Add(1),
		Timestamp: time.Now(),
		Image:     img,
	}, nil
}

// readPartData returns one part's payload. MJPEG cameras send a
// Content-Length per part; reading exactly that many bytes delivers the
// frame as soon as it is on the wire. Without the header the read has to
// run up to the next boundary, so a camera that pauses after a complete
// frame would hold the frame hostage until the next one starts.
func readPartData(part *multipart.Part) ([]byte, error) {
	cl := part.Header.Get("Content-Length")
	if cl == "" {
		return io.ReadAll(io.LimitReader(part, maxFrameSize))
	}
	n, err := strconv.ParseInt(cl, 10, 64)
	if err != nil || n <= 0 || n > maxFrameSize {
		return nil, fmt.Errorf("bad part length %q", cl)
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(part, data); err != nil {
		return nil, err
	}
	return data, nil
}

// closeBody aborts any in-flight body read.
func (s *HTTPSource) closeBody() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resp != nil {
		s.resp.Body.Close()
	}
}

// releaseLocked drops the open response, if any. Caller holds s.mu.
func (s *HTTPSource) releaseLocked() {
	if s.resp != nil {
		s.resp.Body.Close()
		s.resp = nil
	}
	s.parts = nil
	s.pending = nil
}

// Close releases the network resource. Terminal and idempotent.
func (s *HTTPSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.releaseLocked()
	s.setState(domain.StateDisconnected)
	s.logger.Info("Stream source closed")
	return nil
}
