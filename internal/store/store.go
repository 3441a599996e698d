package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/voyagen/popcornview/internal/models"
)

// ErrNotFound is returned by a Backend when no list exists for a key.
var ErrNotFound = errors.New("store: not found")

// Scope identifies one hidden-category list: an account and a media kind.
type Scope struct {
	AccountKey string
	Kind       models.MediaKind
}

// Key is the storage key of the scope.
func (s Scope) Key() string {
	return s.AccountKey + "|" + string(s.Kind)
}

// Validate rejects scopes that would collide across accounts or kinds.
func (s Scope) Validate() error {
	if strings.TrimSpace(s.AccountKey) == "" {
		return fmt.Errorf("store: empty account key")
	}
	if _, err := models.ParseKind(string(s.Kind)); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

// Visibility defines persistence for the hidden-category sets. Every mutation
// reads the full list, changes it and writes the full list back.
type Visibility interface {
	// Hidden returns the hidden category ids of scope, never nil.
	Hidden(ctx context.Context, scope Scope) ([]models.ID, error)
	// IsVisible reports whether id is absent from the hidden list.
	IsVisible(ctx context.Context, scope Scope, id models.ID) (bool, error)
	// Hide adds id to the hidden list. Hiding a hidden id is a no-op.
	Hide(ctx context.Context, scope Scope, id models.ID) error
	// Show removes id from the hidden list. Showing a visible id is a no-op.
	Show(ctx context.Context, scope Scope, id models.ID) error
	// Close releases the underlying storage.
	Close() error
}

// Backend stores one encoded list per key. Update must apply fn atomically
// with respect to other updates of the same key; fn receives nil when the key
// has no list yet.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Update(ctx context.Context, key string, fn func(old []byte) ([]byte, error)) error
	Close() error
}

// Filter returns the categories whose id is not in hidden, preserving order.
func Filter(categories []models.Category, hidden []models.ID) []models.Category {
	if len(hidden) == 0 {
		return categories
	}
	set := HiddenSet(hidden)
	out := make([]models.Category, 0, len(categories))
	for _, c := range categories {
		if _, ok := set[models.NormalizeID(c.ID.String())]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// FilterItems drops items that belong to a hidden category.
func FilterItems(items []models.Item, hidden []models.ID) []models.Item {
	if len(hidden) == 0 {
		return items
	}
	set := HiddenSet(hidden)
	out := make([]models.Item, 0, len(items))
	for _, it := range items {
		if _, ok := set[models.NormalizeID(it.CategoryID.String())]; !ok {
			out = append(out, it)
		}
	}
	return out
}

// HiddenSet indexes hidden ids by their canonical form.
func HiddenSet(hidden []models.ID) map[models.ID]struct{} {
	set := make(map[models.ID]struct{}, len(hidden))
	for _, id := range hidden {
		set[models.NormalizeID(id.String())] = struct{}{}
	}
	return set
}

// Annotate pairs every category with its visibility flag.
func Annotate(categories []models.Category, hidden []models.ID) []models.CategoryVisibility {
	set := HiddenSet(hidden)
	out := make([]models.CategoryVisibility, 0, len(categories))
	for _, c := range categories {
		_, isHidden := set[models.NormalizeID(c.ID.String())]
		out = append(out, models.CategoryVisibility{Category: c, Visible: !isHidden})
	}
	return out
}
