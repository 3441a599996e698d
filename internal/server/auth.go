package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/voyagen/popcornview/internal/logger"
	"github.com/voyagen/popcornview/internal/models"
	"github.com/voyagen/popcornview/internal/session"
)

type loginResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Account   models.Account `json:"account"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var form session.LoginForm
	if err := decodeJSON(r, &form); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	account, err := form.Account()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, session.ErrInvalidLogin) {
			status = http.StatusBadRequest
		}
		writeErr(w, status, "invalid login", err)
		return
	}

	sess := s.sessions.Create(account)
	token, err := s.tokens.Issue(sess.ID)
	if err != nil {
		s.sessions.Delete(sess.ID)
		writeErr(w, http.StatusInternalServerError, "failed to issue session token", err)
		return
	}
	expires := sess.CreatedAt.Add(s.sessions.TTL())
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	logger.Infof("login %q as %s on %s", account.PlaylistName, account.Username, account.Host)
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expires, Account: account})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Delete(sessionFrom(r.Context()).ID)
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeNoContent(w)
}

type accountResponse struct {
	Account   models.Account      `json:"account"`
	Info      *models.AccountInfo `json:"info"`
	Available bool                `json:"available"`
}

// handleAccount backs the home screen: the playlist name plus the upstream
// subscription status when the panel answers.
func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	info, err := s.client(sess).AccountInfo(r.Context())
	if err != nil {
		logger.Warnf("account info for %s: %v", sess.AccountKey(), err)
	}
	writeJSON(w, http.StatusOK, accountResponse{
		Account:   sess.Account,
		Info:      info,
		Available: err == nil,
	})
}
