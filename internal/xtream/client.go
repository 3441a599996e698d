package xtream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/voyagen/popcornview/internal/logger"
	"github.com/voyagen/popcornview/internal/metrics"
	"github.com/voyagen/popcornview/internal/models"
)

// ErrUnavailable wraps every failed upstream call: transport error, non-2xx
// status or undecodable body. Callers treat it as "no data".
var ErrUnavailable = errors.New("xtream: upstream unavailable")

// maxBody caps a single API response. Full VOD catalogues of large panels run
// to tens of megabytes.
const maxBody = 256 << 20

// Player API actions.
const (
	ActionLiveCategories   = "get_live_categories"
	ActionLiveStreams      = "get_live_streams"
	ActionVODCategories    = "get_vod_categories"
	ActionVODStreams       = "get_vod_streams"
	ActionSeriesCategories = "get_series_categories"
	ActionSeries           = "get_series"
	ActionSeriesInfo       = "get_series_info"
	ActionShortEPG         = "get_short_epg"
)

// DefaultEPGLimit is the number of listings requested by ShortEPG when the
// caller passes 0.
const DefaultEPGLimit = 4

// Client talks to one Xtream-compatible panel with one set of credentials.
// Each listing method issues exactly one request; there is no retry.
type Client struct {
	host     string
	username string
	password string
	http     *http.Client
}

// New returns a Client. Trailing slashes on host are dropped. hc may be nil.
func New(host, username, password string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		host:     strings.TrimRight(strings.TrimSpace(host), "/"),
		username: username,
		password: password,
		http:     hc,
	}
}

// FromAccount builds a Client from session credentials.
func FromAccount(a models.Account, hc *http.Client) *Client {
	return New(a.Host, a.Username, a.Password, hc)
}

// Host returns the normalized panel base URL.
func (c *Client) Host() string { return c.host }

// --- live ---

func (c *Client) LiveCategories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	if err := c.getJSON(ctx, ActionLiveCategories, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) LiveStreams(ctx context.Context) ([]models.LiveStream, error) {
	return c.LiveStreamsByCategory(ctx, "")
}

// LiveStreamsByCategory lists live streams of one category; an empty id lists all.
func (c *Client) LiveStreamsByCategory(ctx context.Context, categoryID models.ID) ([]models.LiveStream, error) {
	var out []models.LiveStream
	if err := c.getJSON(ctx, ActionLiveStreams, categoryParam(categoryID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- movies ---

func (c *Client) MovieCategories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	if err := c.getJSON(ctx, ActionVODCategories, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Movies lists movies of one category; an empty id lists all.
func (c *Client) Movies(ctx context.Context, categoryID models.ID) ([]models.Movie, error) {
	var out []models.Movie
	if err := c.getJSON(ctx, ActionVODStreams, categoryParam(categoryID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- series ---

func (c *Client) SeriesCategories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	if err := c.getJSON(ctx, ActionSeriesCategories, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Series lists series of one category; an empty id lists all.
func (c *Client) Series(ctx context.Context, categoryID models.ID) ([]models.Series, error) {
	var out []models.Series
	if err := c.getJSON(ctx, ActionSeries, categoryParam(categoryID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SeriesInfo fetches seasons and episodes of a single series.
func (c *Client) SeriesInfo(ctx context.Context, seriesID models.ID) (*models.SeriesInfo, error) {
	var out models.SeriesInfo
	if err := c.getJSON(ctx, ActionSeriesInfo, url.Values{"series_id": {seriesID.String()}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- categories and items by kind ---

// Categories dispatches to the category listing of kind.
func (c *Client) Categories(ctx context.Context, kind models.MediaKind) ([]models.Category, error) {
	switch kind {
	case models.KindLive:
		return c.LiveCategories(ctx)
	case models.KindMovie:
		return c.MovieCategories(ctx)
	case models.KindSeries:
		return c.SeriesCategories(ctx)
	}
	return nil, fmt.Errorf("categories: unknown kind %q", kind)
}

// Items lists the items of kind in categoryID (all when empty) as Items.
func (c *Client) Items(ctx context.Context, kind models.MediaKind, categoryID models.ID) ([]models.Item, error) {
	switch kind {
	case models.KindLive:
		streams, err := c.LiveStreamsByCategory(ctx, categoryID)
		if err != nil {
			return nil, err
		}
		items := make([]models.Item, 0, len(streams))
		for _, s := range streams {
			items = append(items, models.ItemFromLive(s))
		}
		return items, nil
	case models.KindMovie:
		movies, err := c.Movies(ctx, categoryID)
		if err != nil {
			return nil, err
		}
		items := make([]models.Item, 0, len(movies))
		for _, m := range movies {
			items = append(items, models.ItemFromMovie(m))
		}
		return items, nil
	case models.KindSeries:
		series, err := c.Series(ctx, categoryID)
		if err != nil {
			return nil, err
		}
		items := make([]models.Item, 0, len(series))
		for _, s := range series {
			items = append(items, models.ItemFromSeries(s))
		}
		return items, nil
	}
	return nil, fmt.Errorf("items: unknown kind %q", kind)
}

// --- account ---

// AccountInfo calls player_api.php without an action, which returns the
// subscription and server details.
func (c *Client) AccountInfo(ctx context.Context) (*models.AccountInfo, error) {
	var out models.AccountInfo
	if err := c.getJSON(ctx, "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- EPG ---

// ShortEPG returns the next listings of a live stream. limit <= 0 means DefaultEPGLimit.
// A response without epg_listings yields an empty, non-nil slice.
func (c *Client) ShortEPG(ctx context.Context, streamID models.ID, limit int) ([]models.ShortEPG, error) {
	if limit <= 0 {
		limit = DefaultEPGLimit
	}
	var out models.EPGListings
	params := url.Values{"stream_id": {streamID.String()}, "limit": {fmt.Sprint(limit)}}
	if err := c.getJSON(ctx, ActionShortEPG, params, &out); err != nil {
		return nil, err
	}
	if out.Listings == nil {
		return []models.ShortEPG{}, nil
	}
	return out.Listings, nil
}

// FullEPG returns the raw XMLTV document of the panel.
func (c *Client) FullEPG(ctx context.Context) ([]byte, error) {
	return c.getRaw(ctx, "xmltv", c.host+"/xmltv.php?"+c.credQuery())
}

// Playlist returns the raw m3u_plus playlist of the account.
func (c *Client) Playlist(ctx context.Context) ([]byte, error) {
	return c.getRaw(ctx, "m3u", c.PlaylistURL("m3u_plus", "ts"))
}

// --- transport ---

func (c *Client) credQuery() string {
	return "username=" + url.QueryEscape(c.username) + "&password=" + url.QueryEscape(c.password)
}

// apiURL renders player_api.php with credentials first, then action, then the
// remaining parameters in key order.
func (c *Client) apiURL(action string, params url.Values) string {
	var b strings.Builder
	b.WriteString(c.host)
	b.WriteString("/player_api.php?")
	b.WriteString(c.credQuery())
	if action != "" {
		b.WriteString("&action=")
		b.WriteString(url.QueryEscape(action))
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range params[k] {
			b.WriteString("&")
			b.WriteString(url.QueryEscape(k))
			b.WriteString("=")
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

func (c *Client) getJSON(ctx context.Context, action string, params url.Values, dst any) error {
	label := action
	if label == "" {
		label = "account_info"
	}
	body, err := c.getRaw(ctx, label, c.apiURL(action, params))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		metrics.UpstreamRequests.WithLabelValues(label, "decode_error").Inc()
		logger.Errorf("xtream %s: decode: %v", label, err)
		return fmt.Errorf("%w: %s: decode: %v", ErrUnavailable, label, err)
	}
	return nil
}

func (c *Client) getRaw(ctx context.Context, label, rawURL string) ([]byte, error) {
	start := time.Now()
	defer func() {
		metrics.UpstreamDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, label, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(label, "transport_error").Inc()
		if ctx.Err() == nil {
			logger.Errorf("xtream %s: %v", label, err)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, label, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		metrics.UpstreamRequests.WithLabelValues(label, "http_error").Inc()
		logger.Errorf("xtream %s: HTTP %d from %s", label, resp.StatusCode, rawURL)
		return nil, fmt.Errorf("%w: %s: HTTP %d", ErrUnavailable, label, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(label, "transport_error").Inc()
		logger.Errorf("xtream %s: read body: %v", label, err)
		return nil, fmt.Errorf("%w: %s: read body: %v", ErrUnavailable, label, err)
	}
	metrics.UpstreamRequests.WithLabelValues(label, "ok").Inc()
	return body, nil
}

func categoryParam(id models.ID) url.Values {
	if id == "" {
		return nil
	}
	return url.Values{"category_id": {id.String()}}
}
