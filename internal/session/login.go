package session

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/voyagen/popcornview/internal/models"
	"github.com/voyagen/popcornview/internal/xtream"
)

// Login modes.
const (
	ModeXtream = "xtream"
	ModeM3U    = "m3u"
)

// ErrInvalidLogin wraps every login form validation failure.
var ErrInvalidLogin = errors.New("invalid login")

// LoginForm is the body of POST /api/login. In xtream mode the credentials
// are given directly; in m3u mode they are taken from the playlist URL.
type LoginForm struct {
	Mode         string `json:"mode"`
	PlaylistName string `json:"playlist_name"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	Host         string `json:"host"`
	M3UURL       string `json:"m3u_url"`
}

// Account validates the form and returns the account it describes.
func (f LoginForm) Account() (models.Account, error) {
	name := strings.TrimSpace(f.PlaylistName)
	if name == "" {
		return models.Account{}, fmt.Errorf("%w: playlist_name is required", ErrInvalidLogin)
	}
	switch f.Mode {
	case "", ModeXtream:
		host, err := normalizeHost(f.Host)
		if err != nil {
			return models.Account{}, err
		}
		a := models.Account{
			PlaylistName: name,
			Username:     strings.TrimSpace(f.Username),
			Password:     f.Password,
			Host:         host,
		}
		if a.Username == "" || a.Password == "" {
			return models.Account{}, fmt.Errorf("%w: username and password are required", ErrInvalidLogin)
		}
		return a, nil
	case ModeM3U:
		c, err := xtream.ParseM3UURL(f.M3UURL)
		if err != nil {
			return models.Account{}, fmt.Errorf("%w: %v", ErrInvalidLogin, err)
		}
		return models.Account{
			PlaylistName: name,
			Username:     c.Username,
			Password:     c.Password,
			Host:         c.Host,
			M3UURL:       strings.TrimSpace(f.M3UURL),
		}, nil
	}
	return models.Account{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidLogin, f.Mode)
}

// normalizeHost accepts "panel.tv:8080" or "http://panel.tv:8080/" and
// returns the scheme://host origin.
func normalizeHost(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: host is required", ErrInvalidLogin)
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: host %q is not a valid URL", ErrInvalidLogin, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: host must be http or https", ErrInvalidLogin)
	}
	return u.Scheme + "://" + u.Host + strings.TrimRight(u.Path, "/"), nil
}
