package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voyagen/popcornview/internal/models"
	"github.com/voyagen/popcornview/internal/store"
)

type profileCategoriesResponse struct {
	Kind       models.MediaKind            `json:"kind"`
	Categories []models.CategoryVisibility `json:"categories"`
	Available  bool                        `json:"available"`
}

// handleProfileCategories lists every upstream category of a kind with its
// visibility flag, hidden ones included.
func (s *Server) handleProfileCategories(w http.ResponseWriter, r *http.Request) {
	kind, err := models.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid kind", err)
		return
	}
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
	writeJSON(w, http.StatusOK, profileCategoriesResponse{
		Kind:       kind,
		Categories: store.Annotate(cats, hidden),
		Available:  ok,
	})
}

type visibilityRequest struct {
	Visible *bool `json:"visible"`
}

type visibilityResponse struct {
	Kind       models.MediaKind `json:"kind"`
	CategoryID models.ID        `json:"category_id"`
	Visible    bool             `json:"visible"`
}

func (s *Server) handleSetVisibility(w http.ResponseWriter, r *http.Request) {
	kind, err := models.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid kind", err)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeErr(w, http.StatusBadRequest, "category id is required", nil)
		return
	}
	var req visibilityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Visible == nil {
		writeErr(w, http.StatusBadRequest, "visible is required", nil)
		return
	}

	scope := scopeOf(sessionFrom(r.Context()), kind)
	if *req.Visible {
		err = s.hidden.Show(r.Context(), scope, id)
	} else {
		err = s.hidden.Hide(r.Context(), scope, id)
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "failed to update category visibility", err)
		return
	}
	writeJSON(w, http.StatusOK, visibilityResponse{Kind: kind, CategoryID: id, Visible: *req.Visible})
}
