package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagen/popcornview/internal/config"
	"github.com/voyagen/popcornview/internal/models"
	"github.com/voyagen/popcornview/internal/playback"
	"github.com/voyagen/popcornview/internal/session"
	"github.com/voyagen/popcornview/internal/store"
)

const tsPayload = "\x47mpeg-ts-payload"

// panel is a minimal Xtream panel for user alice/secret.
func panel(t *testing.T) *httptest.Server {
	t.Helper()
	api := map[string]string{
		"":                               `{"user_info":{"username":"alice","status":"Active","auth":1},"server_info":{"url":"panel","port":"80"}}`,
		"get_live_categories":            `[{"category_id":"1","category_name":"News"},{"category_id":"2","category_name":"Sport"}]`,
		"get_live_streams":               `[{"num":1,"name":"CNN","stream_id":101,"category_id":"1"},{"num":2,"name":"ESPN","stream_id":102,"category_id":"2"}]`,
		"get_live_streams&category_id=2": `[{"num":2,"name":"ESPN","stream_id":102,"category_id":"2"}]`,
		"get_series_categories":          `[{"category_id":"5","category_name":"Drama"}]`,
		"get_series":                     `[{"num":1,"name":"Lost","series_id":7,"category_id":"5"}]`,
		"get_short_epg":                  `{"epg_listings":[{"title":"TmV3cw==","start_timestamp":"1700000000","stop_timestamp":"1700003600"}]}`,
		"get_series_info":                `{"info":{"name":"Lost"},"seasons":[],"episodes":{"2":[{"id":"9002","episode_num":1,"title":"S2E1"}],"1":[{"id":"9001","episode_num":1,"title":"Pilot"}]}}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch r.URL.Path {
		case "/player_api.php":
			if q.Get("username") != "alice" || q.Get("password") != "secret" {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			key := q.Get("action")
			if cat := q.Get("category_id"); cat != "" {
				key += "&category_id=" + cat
			}
			body, ok := api[key]
			if !ok {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		case "/live/alice/secret/101.ts":
			w.Header().Set("Content-Type", "video/mp2t")
			_, _ = w.Write([]byte(tsPayload))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, upstream *httptest.Server) *Server {
	t.Helper()
	mem, err := store.NewMemory()
	require.NoError(t, err)
	hidden := store.New(mem)
	t.Cleanup(func() { _ = hidden.Close() })

	cfg := config.Defaults()
	cfg.SessionSecret = "test-secret"
	return New(cfg, hidden, nil, upstream.Client())
}

func do(t *testing.T, s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func login(t *testing.T, s *Server, host string) string {
	t.Helper()
	return loginAs(t, s, host, "alice", "secret")
}

func loginAs(t *testing.T, s *Server, host, username, password string) string {
	t.Helper()
	body := `{"playlist_name":"Home TV","host":"` + host + `","username":"` + username + `","password":"` + password + `"}`
	rec := do(t, s, http.MethodPost, "/api/login", "", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[loginResponse](t, rec).Token
}

type listingBody struct {
	Categories []struct {
		ID   string `json:"category_id"`
		Name string `json:"category_name"`
	} `json:"categories"`
	Items []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"items"`
	Available bool `json:"available"`
}

func itemNames(b listingBody) []string {
	out := make([]string, 0, len(b.Items))
	for _, it := range b.Items {
		out = append(out, it.Name)
	}
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, panel(t))
	rec := do(t, s, http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	h := decode[healthResponse](t, rec)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "memory", h.Store)
	assert.Equal(t, "disabled", h.Redis)
}

func TestRoutesRequireSession(t *testing.T) {
	s := newTestServer(t, panel(t))

	rec := do(t, s, http.MethodGet, "/api/live/categories", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/live/categories", "not-a-token", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginValidation(t *testing.T) {
	s := newTestServer(t, panel(t))

	rec := do(t, s, http.MethodPost, "/api/login", "", `{"host":"panel.tv","username":"a","password":"b"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/login", "", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginCookieAndAccount(t *testing.T) {
	up := panel(t)
	s := newTestServer(t, up)

	rec := do(t, s, http.MethodPost, "/api/login", "", `{"playlist_name":"Home TV","host":"`+up.URL+`","username":"alice","password":"secret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, session.CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.NotContains(t, rec.Body.String(), "secret")

	req := httptest.NewRequest(http.MethodGet, "/api/account", nil)
	req.AddCookie(cookies[0])
	acc := httptest.NewRecorder()
	s.ServeHTTP(acc, req)
	require.Equal(t, http.StatusOK, acc.Code)

	body := decode[struct {
		Account struct {
			PlaylistName string `json:"playlist_name"`
		} `json:"account"`
		Info struct {
			UserInfo struct {
				Status string `json:"status"`
			} `json:"user_info"`
		} `json:"info"`
		Available bool `json:"available"`
	}](t, acc)
	assert.Equal(t, "Home TV", body.Account.PlaylistName)
	assert.Equal(t, "Active", body.Info.UserInfo.Status)
	assert.True(t, body.Available)
}

func TestHiddenCategoriesFilterListings(t *testing.T) {
	up := panel(t)
	s := newTestServer(t, up)
	token := login(t, s, up.URL)

	rec := do(t, s, http.MethodGet, "/api/tv/items", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"CNN", "ESPN"}, itemNames(decode[listingBody](t, rec)))

	rec = do(t, s, http.MethodPut, "/api/profile/categories/live/2", token, `{"visible":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/live/categories", token, "")
	cats := decode[listingBody](t, rec)
	require.Len(t, cats.Categories, 1)
	assert.Equal(t, "News", cats.Categories[0].Name)

	// The cached listing is filtered again on reuse.
	rec = do(t, s, http.MethodGet, "/api/live/items", token, "")
	listing := decode[listingBody](t, rec)
	assert.True(t, listing.Available)
	assert.Equal(t, []string{"CNN"}, itemNames(listing))

	// An explicit selection is not filtered.
	rec = do(t, s, http.MethodGet, "/api/live/items?category_id=2", token, "")
	assert.Equal(t, []string{"ESPN"}, itemNames(decode[listingBody](t, rec)))

	rec = do(t, s, http.MethodGet, "/api/profile/categories/tv", token, "")
	profile := decode[profileCategoriesResponse](t, rec)
	require.Len(t, profile.Categories, 2)
	assert.True(t, profile.Categories[0].Visible)
	assert.False(t, profile.Categories[1].Visible)

	rec = do(t, s, http.MethodPut, "/api/profile/categories/live/2", token, `{"visible":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, s, http.MethodGet, "/api/live/categories", token, "")
	assert.Len(t, decode[listingBody](t, rec).Categories, 2)
}

func TestWrongPasswordCannotTouchHiddenCategories(t *testing.T) {
	up := panel(t)
	s := newTestServer(t, up)
	owner := login(t, s, up.URL)
	intruder := loginAs(t, s, up.URL, "alice", "WRONG")

	rec := do(t, s, http.MethodPut, "/api/profile/categories/live/2", owner, `{"visible":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, s, http.MethodPut, "/api/profile/categories/live/1", intruder, `{"visible":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/live/categories", owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	cats := decode[listingBody](t, rec)
	require.Len(t, cats.Categories, 1)
	assert.Equal(t, "News", cats.Categories[0].Name)

	sess, err := s.sessionFromRequest(bearer(intruder))
	require.NoError(t, err)
	got, err := s.hidden.Hidden(context.Background(), scopeOf(sess, models.KindLive))
	require.NoError(t, err)
	assert.Equal(t, []models.ID{"1"}, got)
}

func TestVisibilityRequiresFlag(t *testing.T) {
	up := panel(t)
	s := newTestServer(t, up)
	token := login(t, s, up.URL)

	rec := do(t, s, http.MethodPut, "/api/profile/categories/live/2", token, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPut, "/api/profile/categories/radio/2", token, `{"visible":false}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch(t *testing.T) {
	up := panel(t)
	s := newTestServer(t, up)
	token := login(t, s, up.URL)

	rec := do(t, s, http.MethodGet, "/api/live/items?search=esp", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"ESPN"}, itemNames(decode[listingBody](t, rec)))
}

func TestUnavailableUpstream(t *testing.T) {
	up := panel(t)
	s := newTestServer(t, up)
	token := login(t, s, "http://127.0.0.1:1")

	rec := do(t, s, http.MethodGet, "/api/movies/categories", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	cats := decode[listingBody](t, rec)
	assert.False(t, cats.Available)
	assert.NotNil(t, cats.Categories)
	assert.Empty(t, cats.Categories)

	rec = do(t, s, http.MethodGet, "/api/movie/items", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode[listingBody](t, rec)
	assert.False(t, items.Available)
	assert.Empty(t, items.Items)

	rec = do(t, s, http.MethodGet, "/api/live/101/epg", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available":false`)

	rec = do(t, s, http.MethodGet, "/api/series/7", token, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")

	rec = do(t, s, http.MethodGet, "/api/playlist.m3u", token, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSeriesRoutes(t *testing.T) {
	up := panel(t)
	s := newTestServer(t, up)
	token := login(t, s, up.URL)

	rec := do(t, s, http.MethodGet, "/api/series/categories", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Drama", decode[listingBody](t, rec).Categories[0].Name)

	rec = do(t, s, http.MethodGet, "/api/series/7", token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	detail := decode[struct {
		Seasons []struct {
			Label string `json:"label"`
		} `json:"seasons"`
	}](t, rec)
	require.Len(t, detail.Seasons, 2)
	assert.Equal(t, "1", detail.Seasons[0].Label)
	assert.Equal(t, "2", detail.Seasons[1].Label)
}

func TestEPG(t *testing.T) {
	up := panel(t)
	s := newTestServer(t, up)
	token := login(t, s, up.URL)

	rec := do(t, s, http.MethodGet, "/api/live/101/epg?limit=2", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	guide := decode[struct {
		Programmes []struct {
			Title string `json:"title"`
		} `json:"programmes"`
		Available bool `json:"available"`
	}](t, rec)
	assert.True(t, guide.Available)
	require.Len(t, guide.Programmes, 1)
	assert.Equal(t, "News", guide.Programmes[0].Title)
}

func TestStreamURL(t *testing.T) {
	up := panel(t)
	s := newTestServer(t, up)
	token := login(t, s, up.URL)

	rec := do(t, s, http.MethodGet, "/api/live/101/url", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[streamURLResponse](t, rec)
	assert.Equal(t, up.URL+"/live/alice/secret/101.ts", resp.URL)
	assert.False(t, resp.Playable)
	assert.Equal(t, playback.MsgUnsupported, resp.Message)

	rec = do(t, s, http.MethodGet, "/api/live/101/url?ext=m3u8", token, "")
	resp = decode[streamURLResponse](t, rec)
	assert.True(t, resp.Playable)
	assert.Equal(t, playback.ModeHLS, resp.Mode)
}

func TestPlayRelaysStream(t *testing.T) {
	up := panel(t)
	s := newTestServer(t, up)
	token := login(t, s, up.URL)

	rec := do(t, s, http.MethodGet, "/api/play/live/101?mse=1", token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, tsPayload, rec.Body.String())
	assert.Equal(t, "video/mp2t", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Playback-ID"))
	assert.Equal(t, 0, s.playback.Len())
}

func TestPlayFailures(t *testing.T) {
	up := panel(t)
	s := newTestServer(t, up)
	token := login(t, s, up.URL)

	rec := do(t, s, http.MethodGet, "/api/play/live/101", token, "")
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Equal(t, playback.MsgUnsupported, decode[APIError](t, rec).Error)

	rec = do(t, s, http.MethodGet, "/api/play/movie/404?ext=mp4", token, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, playback.MsgLoadFailed, decode[APIError](t, rec).Error)

	rec = do(t, s, http.MethodGet, "/api/play/radio/1", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, s.playback.Len())
}

func TestPlaybacksBelongToSession(t *testing.T) {
	up := panel(t)
	s := newTestServer(t, up)
	alice := login(t, s, up.URL)
	other := login(t, s, up.URL)

	aliceSess, err := s.sessionFromRequest(bearer(alice))
	require.NoError(t, err)
	a := playback.NewAdapter(aliceSess.ID, up.URL+"/live/alice/secret/101.ts", playback.Caps{MSE: true}, s.streams)
	s.playback.Add(a)

	rec := do(t, s, http.MethodGet, "/api/playbacks", alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	views := decode[[]playbackView](t, rec)
	require.Len(t, views, 1)
	assert.Equal(t, "idle", views[0].State)

	rec = do(t, s, http.MethodDelete, "/api/playbacks/"+a.ID, other, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/playbacks/"+a.ID, alice, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, s.playback.Len())
}

func TestLogoutEndsSession(t *testing.T) {
	up := panel(t)
	s := newTestServer(t, up)
	token := login(t, s, up.URL)

	sess, err := s.sessionFromRequest(bearer(token))
	require.NoError(t, err)
	s.playback.Add(playback.NewAdapter(sess.ID, up.URL+"/live/alice/secret/101.ts", playback.Caps{}, s.streams))

	rec := do(t, s, http.MethodPost, "/api/logout", token, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, s.playback.Len())

	rec = do(t, s, http.MethodGet, "/api/account", token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExportPlaylist(t *testing.T) {
	up := panel(t)
	s := newTestServer(t, up)
	token := login(t, s, up.URL)

	rec := do(t, s, http.MethodPut, "/api/profile/categories/live/2", token, `{"visible":false}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/playlist.m3u", token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `attachment; filename="home-tv.m3u"`, rec.Header().Get("Content-Disposition"))
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "#EXTM3U\n"))
	assert.Contains(t, body, `group-title="News",CNN`)
	assert.Contains(t, body, up.URL+"/live/alice/secret/101.ts")
	assert.NotContains(t, body, "ESPN")
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, panel(t))
	rec := do(t, s, http.MethodOptions, "/api/live/categories", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func bearer(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
