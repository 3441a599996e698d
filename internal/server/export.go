package server

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/voyagen/popcornview/internal/logger"
	"github.com/voyagen/popcornview/internal/models"
	"github.com/voyagen/popcornview/internal/playlist"
	"github.com/voyagen/popcornview/internal/session"
	"github.com/voyagen/popcornview/internal/store"
	"github.com/voyagen/popcornview/internal/xtream"
)

// handleExport downloads the visible live channels of the account as an
// M3U playlist.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	entries, err := s.exportEntries(r, sess)
	if err != nil {
		writeUpstreamErr(w, "failed to build playlist", err)
		return
	}
	w.Header().Set("Content-Type", "audio/x-mpegurl")
	w.Header().Set("Content-Disposition", `attachment; filename="`+playlist.FileName(sess.Account.PlaylistName)+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := playlist.Export(w, entries); err != nil {
		logger.Warnf("export playlist: %v", err)
	}
}

// exportEntries builds the playlist from the live listing. When the listing
// is unavailable the panel's own m3u_plus playlist is used instead, with
// hidden categories matched by group name.
func (s *Server) exportEntries(r *http.Request, sess session.Session) ([]playlist.Entry, error) {
	ctx := r.Context()
	client := s.client(sess)
	src := s.source(sess)

	hidden, err := s.hidden.Hidden(ctx, scopeOf(sess, models.KindLive))
	if err != nil {
		return nil, err
	}
	cats, catsErr := src.Categories(ctx, models.KindLive)
	groups := make(map[models.ID]string, len(cats))
	for _, c := range cats {
		groups[c.ID] = c.Name
	}

	items, err := src.Items(ctx, models.KindLive, "")
	if err == nil {
		items = store.FilterItems(items, hidden)
		return playlist.FromItems(items, groups, func(it models.Item) string {
			return client.LiveStreamURL(it.ID, "ts")
		}), nil
	}
	if !errors.Is(err, xtream.ErrUnavailable) {
		return nil, err
	}

	logger.Warnf("export for %s: live listing unavailable, using m3u playlist", sess.AccountKey())
	raw, err := client.Playlist(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := playlist.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	live := make([]playlist.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Kind == models.KindLive {
			live = append(live, e)
		}
	}
	hiddenGroups := make(map[string]struct{})
	if catsErr == nil {
		set := store.HiddenSet(hidden)
		for _, c := range cats {
			if _, ok := set[models.NormalizeID(c.ID.String())]; ok {
				hiddenGroups[c.Name] = struct{}{}
			}
		}
	}
	return playlist.FilterGroups(live, hiddenGroups), nil
}
