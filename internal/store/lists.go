package store

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/goccy/go-json"

	"github.com/voyagen/popcornview/internal/logger"
	"github.com/voyagen/popcornview/internal/metrics"
	"github.com/voyagen/popcornview/internal/models"
)

// ListStore implements Visibility on top of a Backend that keeps each
// hidden set as one JSON-encoded array.
type ListStore struct {
	backend Backend
}

// New returns a ListStore over b.
func New(b Backend) *ListStore {
	return &ListStore{backend: b}
}

func (s *ListStore) Hidden(ctx context.Context, scope Scope) ([]models.ID, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	raw, err := s.backend.Load(ctx, scope.Key())
	if errors.Is(err, ErrNotFound) {
		return []models.ID{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load hidden %s: %w", scope.Kind, err)
	}
	return decodeList(scope, raw), nil
}

func (s *ListStore) IsVisible(ctx context.Context, scope Scope, id models.ID) (bool, error) {
	hidden, err := s.Hidden(ctx, scope)
	if err != nil {
		return false, err
	}
	return !slices.Contains(hidden, models.NormalizeID(id.String())), nil
}

func (s *ListStore) Hide(ctx context.Context, scope Scope, id models.ID) error {
	return s.mutate(ctx, scope, "hide", func(list []models.ID, id models.ID) []models.ID {
		if slices.Contains(list, id) {
			return list
		}
		return append(list, id)
	}, id)
}

func (s *ListStore) Show(ctx context.Context, scope Scope, id models.ID) error {
	return s.mutate(ctx, scope, "show", func(list []models.ID, id models.ID) []models.ID {
		return slices.DeleteFunc(list, func(h models.ID) bool { return h == id })
	}, id)
}

func (s *ListStore) Close() error {
	return s.backend.Close()
}

func (s *ListStore) mutate(ctx context.Context, scope Scope, op string, apply func([]models.ID, models.ID) []models.ID, id models.ID) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	id = models.NormalizeID(id.String())
	if id == "" {
		return fmt.Errorf("store: empty category id")
	}
	err := s.backend.Update(ctx, scope.Key(), func(old []byte) ([]byte, error) {
		var list []models.ID
		if old != nil {
			list = decodeList(scope, old)
		}
		return json.Marshal(apply(list, id))
	})
	if err != nil {
		return fmt.Errorf("%s category %s: %w", op, id, err)
	}
	metrics.VisibilityChanges.WithLabelValues(string(scope.Kind), op).Inc()
	return nil
}

// decodeList parses a stored list. A list that cannot be parsed counts as
// empty; the next mutation overwrites it.
func decodeList(scope Scope, raw []byte) []models.ID {
	var ids []models.ID
	if err := json.Unmarshal(raw, &ids); err != nil {
		logger.Warnf("store: corrupt hidden list for %s, treating as empty: %v", scope.Kind, err)
		return []models.ID{}
	}
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	return models.NormalizeIDs(strs)
}
