package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/voyagen/popcornview/internal/models"
	"github.com/voyagen/popcornview/internal/playback"
	"github.com/voyagen/popcornview/internal/service"
	"github.com/voyagen/popcornview/internal/session"
	"github.com/voyagen/popcornview/internal/store"
	"github.com/voyagen/popcornview/internal/xtream"
)

type categoriesResponse struct {
	Kind       models.MediaKind  `json:"kind"`
	Categories []models.Category `json:"categories"`
	Available  bool              `json:"available"`
}

func scopeOf(sess session.Session, kind models.MediaKind) store.Scope {
	return store.Scope{AccountKey: sess.AccountKey(), Kind: kind}
}

// categories fetches the upstream categories of kind. An unavailable
// upstream yields an empty list and ok=false; other errors are returned.
func (s *Server) categories(r *http.Request, sess session.Session, kind models.MediaKind) (cats []models.Category, ok bool, err error) {
	cats, err = s.source(sess).Categories(r.Context(), kind)
	if errors.Is(err, xtream.ErrUnavailable) {
		return []models.Category{}, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if cats == nil {
		cats = []models.Category{}
	}
	return cats, true, nil
}

func (s *Server) handleCategories(kind models.MediaKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r.Context())
		cats, ok, err := s.categories(r, sess, kind)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, "failed to load categories", err)
			return
		}
		hidden, err := s.hidden.Hidden(r.Context(), scopeOf(sess, kind))
		if err != nil {
			writeErr(w, http.StatusInternalServerError, "failed to load hidden categories", err)
			return
		}
		writeJSON(w, http.StatusOK, categoriesResponse{
			Kind:       kind,
			Categories: store.Filter(cats, hidden),
			Available:  ok,
		})
	}
}

type itemsResponse struct {
	service.Listing
	Search string `json:"search,omitempty"`
}

// handleItems serves a listing screen. Without category_id every visible
// category's items are listed; search narrows that listing by name.
func (s *Server) handleItems(kind models.MediaKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r.Context())
		q := r.URL.Query()
		lister := s.listers.For(sess, kind)

		listing, err := lister.Ensure(r.Context(), models.NormalizeID(q.Get("category_id")))
		if err != nil {
			if r.Context().Err() != nil {
				return
			}
			writeErr(w, http.StatusInternalServerError, "failed to load listing", err)
			return
		}
		resp := itemsResponse{Listing: listing, Search: strings.TrimSpace(q.Get("search"))}
		if resp.Search != "" {
			resp.Items = lister.SearchIn(listing, resp.Search)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleSeriesDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeErr(w, http.StatusBadRequest, "series id is required", nil)
		return
	}
	detail, err := service.LoadSeriesDetail(r.Context(), s.client(sessionFrom(r.Context())), id)
	if err != nil {
		writeUpstreamErr(w, "failed to load series", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

type epgResponse struct {
	*service.Guide
	Available bool `json:"available"`
}

func (s *Server) handleEPG(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeErr(w, http.StatusBadRequest, "stream id is required", nil)
		return
	}
	limit := queryInt(r, "limit", xtream.DefaultEPGLimit)
	guide, err := service.ChannelGuide(r.Context(), s.client(sessionFrom(r.Context())), id, limit, time.Now())
	switch {
	case errors.Is(err, xtream.ErrUnavailable):
		writeJSON(w, http.StatusOK, epgResponse{
			Guide: &service.Guide{StreamID: id, Programmes: []models.Programme{}},
		})
	case err != nil:
		writeErr(w, http.StatusInternalServerError, "failed to load epg", err)
	default:
		writeJSON(w, http.StatusOK, epgResponse{Guide: guide, Available: true})
	}
}

func (s *Server) handleXMLTV(w http.ResponseWriter, r *http.Request) {
	data, err := s.client(sessionFrom(r.Context())).FullEPG(r.Context())
	if err != nil {
		writeUpstreamErr(w, "failed to load xmltv guide", err)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type streamURLResponse struct {
	URL      string        `json:"url"`
	Mode     playback.Mode `json:"mode,omitempty"`
	Playable bool          `json:"playable"`
	Message  string        `json:"message,omitempty"`
}

// handleStreamURL returns the direct upstream URL of a stream together with
// the playback mode a client with the given capabilities would use.
func (s *Server) handleStreamURL(kind models.MediaKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			writeErr(w, http.StatusBadRequest, "stream id is required", nil)
			return
		}
		url := s.client(sessionFrom(r.Context())).StreamURL(kind, id, r.URL.Query().Get("ext"))
		resp := streamURLResponse{URL: url}
		mode, err := playback.SelectMode(url, playback.Caps{MSE: queryBool(r, "mse")})
		if err != nil {
			resp.Message = playback.MsgUnsupported
		} else {
			resp.Mode = mode
			resp.Playable = true
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
