package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/voyagen/popcornview/internal/logger"
	"github.com/voyagen/popcornview/internal/models"
	"github.com/voyagen/popcornview/internal/playback"
)

// handlePlay relays one stream through a playback adapter. The adapter is
// registered for the duration of the request so it can be listed, stopped
// or reaped.
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	kind, err := models.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid kind", err)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeErr(w, http.StatusBadRequest, "stream id is required", nil)
		return
	}
	sess := sessionFrom(r.Context())
	q := r.URL.Query()

	streamURL := s.client(sess).StreamURL(kind, id, q.Get("ext"))
	a := playback.NewAdapter(sess.ID, streamURL, playback.Caps{MSE: queryBool(r, "mse")}, s.streams)
	a.Title = q.Get("title")
	s.playback.Add(a)
	defer s.playback.Remove(a.ID)

	if err := a.Open(r.Context()); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, playback.ErrUnsupported) {
			status = http.StatusUnsupportedMediaType
		}
		writeErr(w, status, a.Message(), err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", a.ContentType())
	if n := a.ContentLength(); n >= 0 {
		h.Set("Content-Length", strconv.FormatInt(n, 10))
	}
	h.Set("Cache-Control", "no-store")
	h.Set("X-Playback-ID", a.ID)
	// Live relays outlast the server write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		logger.Debugf("playback %s: clear write deadline: %v", a.ID, err)
	}
	w.WriteHeader(http.StatusOK)

	n, err := a.Stream(r.Context(), w)
	if err != nil && r.Context().Err() == nil && !errors.Is(err, playback.ErrState) {
		logger.Warnf("playback %s: stopped after %d bytes: %v", a.ID, n, err)
	}
}

type playbackView struct {
	ID         string        `json:"id"`
	Title      string        `json:"title,omitempty"`
	Mode       playback.Mode `json:"mode,omitempty"`
	State      string        `json:"state"`
	Streaming  bool          `json:"streaming"`
	Message    string        `json:"message,omitempty"`
	LastActive time.Time     `json:"last_active"`
}

func (s *Server) handleListPlaybacks(w http.ResponseWriter, r *http.Request) {
	adapters := s.playback.ForSession(sessionFrom(r.Context()).ID)
	out := make([]playbackView, 0, len(adapters))
	for _, a := range adapters {
		out = append(out, playbackView{
			ID:         a.ID,
			Title:      a.Title,
			Mode:       a.Mode(),
			State:      a.State().String(),
			Streaming:  a.Streaming(),
			Message:    a.Message(),
			LastActive: a.LastActive(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStopPlayback(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, ok := s.playback.Get(id)
	if !ok || a.SessionID != sessionFrom(r.Context()).ID {
		writeErr(w, http.StatusNotFound, "playback not found", nil)
		return
	}
	s.playback.Remove(id)
	writeNoContent(w)
}
