package session

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagen/popcornview/internal/models"
)

func TestManagerLifecycle(t *testing.T) {
	m := NewManager(time.Hour)
	var ended atomic.Int32
	m.OnEnd(func(Session) { ended.Add(1) })

	a := models.Account{PlaylistName: "Home", Username: "alice", Password: "pw", Host: "http://panel.tv"}
	s := m.Create(a)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, a.Key(), s.AccountKey())

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, s, got)
	assert.Equal(t, 1, m.Count())

	m.Delete(s.ID)
	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, int32(1), ended.Load())

	_, err = m.Get("")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionIsACopy(t *testing.T) {
	m := NewManager(time.Hour)
	s := m.Create(models.Account{Username: "alice", Password: "pw", Host: "http://panel.tv"})
	s.Account.Username = "mallory"

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Account.Username)
}

func TestTokens(t *testing.T) {
	tok := NewTokens("secret", time.Hour)
	signed, err := tok.Issue("abc")
	require.NoError(t, err)

	id, err := tok.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "abc", id)

	_, err = NewTokens("other", time.Hour).Parse(signed)
	assert.ErrorIs(t, err, ErrNoSession)

	expired, err := NewTokens("secret", -time.Minute).Issue("abc")
	require.NoError(t, err)
	_, err = tok.Parse(expired)
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = tok.Parse("garbage")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRandomSecretWhenEmpty(t *testing.T) {
	a, b := NewTokens("", time.Hour), NewTokens("", time.Hour)
	signed, err := a.Issue("abc")
	require.NoError(t, err)
	_, err = b.Parse(signed)
	assert.Error(t, err)
}

func TestLoginFormXtream(t *testing.T) {
	a, err := LoginForm{PlaylistName: "Home", Username: "alice", Password: "pw", Host: "panel.tv:8080/"}.Account()
	require.NoError(t, err)
	assert.Equal(t, models.Account{PlaylistName: "Home", Username: "alice", Password: "pw", Host: "http://panel.tv:8080"}, a)

	for name, f := range map[string]LoginForm{
		"no playlist": {Username: "a", Password: "p", Host: "h"},
		"no username": {PlaylistName: "x", Password: "p", Host: "h"},
		"no password": {PlaylistName: "x", Username: "a", Host: "h"},
		"no host":     {PlaylistName: "x", Username: "a", Password: "p"},
		"bad scheme":  {PlaylistName: "x", Username: "a", Password: "p", Host: "ftp://h"},
		"bad mode":    {Mode: "smb", PlaylistName: "x"},
	} {
		_, err := f.Account()
		assert.ErrorIs(t, err, ErrInvalidLogin, name)
	}
}

func TestLoginFormM3U(t *testing.T) {
	raw := "http://panel.tv:2103/get.php?username=bob&password=pw&type=m3u_plus"
	a, err := LoginForm{Mode: ModeM3U, PlaylistName: "Box", M3UURL: raw}.Account()
	require.NoError(t, err)
	assert.Equal(t, models.Account{PlaylistName: "Box", Username: "bob", Password: "pw", Host: "http://panel.tv:2103", M3UURL: raw}, a)

	_, err = LoginForm{Mode: ModeM3U, PlaylistName: "Box", M3UURL: "http://panel.tv/list.m3u"}.Account()
	assert.ErrorIs(t, err, ErrInvalidLogin)
}
