package xtream

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNotXtreamURL is returned by ParseM3UURL when the URL carries no credentials.
var ErrNotXtreamURL = errors.New("m3u url has no username/password parameters")

// Credentials is the host/username/password triple recovered from an M3U URL.
type Credentials struct {
	Host     string
	Username string
	Password string
}

// ParseM3UURL extracts the panel origin and credentials from a get.php style
// playlist URL such as http://panel:8080/get.php?username=u&password=p&type=m3u_plus.
func ParseM3UURL(raw string) (Credentials, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Credentials{}, fmt.Errorf("parse m3u url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Credentials{}, fmt.Errorf("m3u url must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return Credentials{}, fmt.Errorf("m3u url has no host")
	}
	q := u.Query()
	c := Credentials{
		Host:     u.Scheme + "://" + u.Host,
		Username: q.Get("username"),
		Password: q.Get("password"),
	}
	if c.Username == "" || c.Password == "" {
		return c, ErrNotXtreamURL
	}
	return c, nil
}
