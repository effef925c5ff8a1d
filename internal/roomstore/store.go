//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_store.go -package=mocks

// Package roomstore persists room metadata records (name, slug, creator,
// note). It is independent from live membership: a stored room needs no
// connected members and a live room needs no stored record.
package roomstore

import (
	"context"
	"errors"
	"math"
	"time"
)

// MaxLimit caps the page size of a listing.
const MaxLimit = 100

var (
	ErrNotFound  = errors.New("room not found")
	ErrSlugTaken = errors.New("room with this slug already exists")
)

// Room is a persisted room metadata record.
type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedBy string    `json:"createdBy"`
	Note      *string   `json:"note"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateRoom is the input of Store.Create. The slug is derived from Name.
type CreateRoom struct {
	Name      string  `json:"name" validate:"required,max=200"`
	CreatedBy string  `json:"createdBy" validate:"required,max=200"`
	Note      *string `json:"note" validate:"omitempty,max=2000"`
}

// UpdateRoom carries optional replacements; nil or empty name/slug are left
// untouched, a non-nil note always replaces the stored one.
type UpdateRoom struct {
	Name *string `json:"name" validate:"omitempty,max=200"`
	Slug *string `json:"slug" validate:"omitempty,max=200"`
	Note *string `json:"note" validate:"omitempty,max=2000"`
}

// ListQuery selects a page of rooms, newest first. Search matches name, slug
// and note case-insensitively.
type ListQuery struct {
	Page   int
	Limit  int
	Search string
}

// Offset returns the number of records to skip. It saturates at math.MaxInt
// for pages far past any real listing.
func (q ListQuery) Offset() int {
	if q.Page < 1 || q.Limit < 1 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

// Page is one page of a listing plus the total number of matches.
type Page struct {
	Rooms []Room
	Total int
}

// Store is the persisted-room CRUD surface.
type Store interface {
	Create(ctx context.Context, in CreateRoom) (Room, error)
	List(ctx context.Context, q ListQuery) (Page, error)
	Get(ctx context.Context, id string) (Room, error)
	GetBySlug(ctx context.Context, slug string) (Room, error)
	Update(ctx context.Context, id string, in UpdateRoom) (Room, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

func nonEmpty(s *string) (string, bool) {
	if s == nil || *s == "" {
		return "", false
	}
	return *s, true
}
