package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Account is the set of credentials entered at login. It lives for the
// duration of a session and is never written to storage.
type Account struct {
	PlaylistName string `json:"playlist_name"`
	Username     string `json:"username"`
	Password     string `json:"-"`
	Host         string `json:"host"`
	M3UURL       string `json:"m3u_url,omitempty"`
}

// Complete reports whether host, username and password are all set.
// Listing endpoints refuse to build a client for an incomplete account.
func (a Account) Complete() bool {
	return a.Host != "" && a.Username != "" && a.Password != ""
}

// Key identifies the upstream account for per-account storage such as the
// hidden-category set. It ends with a fingerprint of the credentials so that
// a login with the right username and a wrong password gets its own scope.
// The password itself never appears in the key.
func (a Account) Key() string {
	host := strings.ToLower(strings.TrimRight(a.Host, "/"))
	sum := sha256.Sum256([]byte(host + "\x00" + a.Username + "\x00" + a.Password))
	return host + "|" + a.Username + "|" + hex.EncodeToString(sum[:8])
}

// AccountInfo is the payload of player_api.php without an action.
type AccountInfo struct {
	UserInfo   UserInfo   `json:"user_info"`
	ServerInfo ServerInfo `json:"server_info"`
}

// UserInfo describes the upstream subscription.
type UserInfo struct {
	Username             string   `json:"username"`
	Message              string   `json:"message"`
	Auth                 Flex     `json:"auth"`
	Status               string   `json:"status"`
	ExpDate              Flex     `json:"exp_date"`
	IsTrial              Flex     `json:"is_trial"`
	ActiveConnections    Flex     `json:"active_cons"`
	CreatedAt            Flex     `json:"created_at"`
	MaxConnections       Flex     `json:"max_connections"`
	AllowedOutputFormats []string `json:"allowed_output_formats"`
}

// ServerInfo describes the upstream panel.
type ServerInfo struct {
	URL            string `json:"url"`
	Port           Flex   `json:"port"`
	HTTPSPort      Flex   `json:"https_port"`
	ServerProtocol string `json:"server_protocol"`
	Timezone       string `json:"timezone"`
	TimestampNow   Flex   `json:"timestamp_now"`
	TimeNow        string `json:"time_now"`
}
