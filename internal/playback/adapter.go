package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/bytebufferpool"

	"github.com/voyagen/popcornview/internal/logger"
	"github.com/voyagen/popcornview/internal/metrics"
)

// chunkSize is the relay copy buffer.
const chunkSize = 64 << 10

// Adapter relays one upstream stream. It is safe for concurrent use; Close
// may be called from any goroutine and at any time.
type Adapter struct {
	ID        string
	SessionID string
	Title     string

	url    string
	caps   Caps
	client *http.Client

	state      atomic.Int32
	lastActive atomic.Int64
	streaming  atomic.Bool
	finished   atomic.Bool

	mu     sync.Mutex
	mode   Mode
	err    error
	resp   *http.Response
	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

// NewAdapter returns an idle adapter for streamURL. The URL carries
// credentials and is never exposed by the adapter.
func NewAdapter(sessionID, streamURL string, caps Caps, client *http.Client) *Adapter {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Adapter{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		url:       streamURL,
		caps:      caps,
		client:    client,
		ctx:       ctx,
		cancel:    cancel,
	}
	a.touch()
	return a
}

func (a *Adapter) State() State { return State(a.state.Load()) }

// Mode is set once Open has selected it.
func (a *Adapter) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// Err returns the failure of an adapter in StateError.
func (a *Adapter) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Message is the user-facing text of the failure, empty when healthy.
func (a *Adapter) Message() string {
	err := a.Err()
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupported):
		return MsgUnsupported
	}
	return MsgLoadFailed
}

// LastActive is the last time the adapter opened or relayed data.
func (a *Adapter) LastActive() time.Time {
	return time.Unix(0, a.lastActive.Load())
}

// Finished reports whether the upstream body was fully relayed.
func (a *Adapter) Finished() bool { return a.finished.Load() }

// Streaming reports whether a Stream call is in progress.
func (a *Adapter) Streaming() bool { return a.streaming.Load() }

// Open selects the mode and connects to the upstream. It is valid only
// from StateIdle. ctx bounds the connection attempt; the established stream
// lives until Close.
func (a *Adapter) Open(ctx context.Context) error {
	if !a.state.CompareAndSwap(int32(StateIdle), int32(StateLoading)) {
		return fmt.Errorf("%w: open in state %s", ErrState, a.State())
	}

	mode, err := SelectMode(a.url, a.caps)
	if err != nil {
		metrics.Playbacks.WithLabelValues("none", "unsupported").Inc()
		return a.fail(err)
	}
	a.mu.Lock()
	a.mode = mode
	a.mu.Unlock()

	// The request outlives ctx, so it runs on the adapter context; ctx only
	// bounds the wait for response headers.
	req, err := http.NewRequestWithContext(a.ctx, http.MethodGet, a.url, nil)
	if err != nil {
		metrics.Playbacks.WithLabelValues(string(mode), "error").Inc()
		return a.fail(fmt.Errorf("%w: %v", ErrLoadFailed, err))
	}
	stop := context.AfterFunc(ctx, a.cancel)
	resp, err := a.client.Do(req)
	stop()
	if err != nil {
		metrics.Playbacks.WithLabelValues(string(mode), "error").Inc()
		logger.Warnf("playback %s: connect %s: %v", a.ID, a.url, err)
		return a.fail(fmt.Errorf("%w: %v", ErrLoadFailed, err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		metrics.Playbacks.WithLabelValues(string(mode), "error").Inc()
		logger.Warnf("playback %s: HTTP %d from %s", a.ID, resp.StatusCode, a.url)
		return a.fail(fmt.Errorf("%w: HTTP %d", ErrLoadFailed, resp.StatusCode))
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		resp.Body.Close()
		return fmt.Errorf("%w: closed while loading", ErrState)
	}
	a.resp = resp
	a.mu.Unlock()

	a.state.Store(int32(StatePlaying))
	a.touch()
	metrics.Playbacks.WithLabelValues(string(mode), "started").Inc()
	metrics.ActivePlaybacks.Inc()
	return nil
}

// ContentType is the upstream content type, or the mode default.
func (a *Adapter) ContentType() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.resp != nil {
		if ct := a.resp.Header.Get("Content-Type"); ct != "" && a.mode == ModeNative {
			return ct
		}
	}
	return a.mode.ContentType()
}

// ContentLength is the upstream length, -1 when unknown or rewritten.
func (a *Adapter) ContentLength() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.resp == nil || a.mode == ModeHLS {
		return -1
	}
	return a.resp.ContentLength
}

// Stream copies the upstream body to w until EOF, ctx is done, Close is
// called or either side fails. HLS playlists are rewritten so their URIs
// resolve against the upstream.
func (a *Adapter) Stream(ctx context.Context, w io.Writer) (int64, error) {
	if a.State() != StatePlaying {
		return 0, fmt.Errorf("%w: stream in state %s", ErrState, a.State())
	}
	if !a.streaming.CompareAndSwap(false, true) {
		return 0, fmt.Errorf("%w: already streaming", ErrState)
	}
	defer a.streaming.Store(false)

	a.mu.Lock()
	if a.resp == nil {
		a.mu.Unlock()
		return 0, fmt.Errorf("%w: closed", ErrState)
	}
	body := a.resp.Body
	mode := a.mode
	base := a.resp.Request.URL
	a.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { body.Close() })
	defer stop()

	var (
		n   int64
		err error
	)
	if mode == ModeHLS {
		n, err = relayPlaylist(w, body, base)
	} else {
		n, err = a.relay(w, body)
	}
	switch {
	case err == nil:
		a.finished.Store(true)
		return n, nil
	case ctx.Err() != nil:
		// The viewer went away; not an upstream failure.
		return n, ctx.Err()
	case a.isClosed():
		return n, fmt.Errorf("%w: closed", ErrState)
	case errors.Is(err, errWrite):
		return n, err
	}
	metrics.Playbacks.WithLabelValues(string(mode), "error").Inc()
	logger.Warnf("playback %s: relay: %v", a.ID, err)
	return n, a.fail(fmt.Errorf("%w: %v", ErrLoadFailed, err))
}

var errWrite = errors.New("playback: client write failed")

func (a *Adapter) relay(w io.Writer, body io.Reader) (int64, error) {
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)
	if cap(bb.B) < chunkSize {
		bb.B = make([]byte, chunkSize)
	}
	buf := bb.B[:chunkSize]

	flusher, _ := w.(http.Flusher)
	var total int64
	for {
		nr, rerr := body.Read(buf)
		if nr > 0 {
			nw, werr := w.Write(buf[:nr])
			total += int64(nw)
			if werr != nil {
				return total, fmt.Errorf("%w: %v", errWrite, werr)
			}
			if flusher != nil {
				flusher.Flush()
			}
			a.touch()
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, rerr
		}
	}
}

// Close releases the upstream connection. It is idempotent and valid in
// every state.
func (a *Adapter) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	resp := a.resp
	a.resp = nil
	a.mu.Unlock()

	a.cancel()
	if resp != nil {
		resp.Body.Close()
		metrics.ActivePlaybacks.Dec()
	}
}

func (a *Adapter) isClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

func (a *Adapter) fail(err error) error {
	a.mu.Lock()
	a.err = err
	a.mu.Unlock()
	a.state.Store(int32(StateError))
	return err
}

func (a *Adapter) touch() {
	a.lastActive.Store(time.Now().UnixNano())
}
