package roomstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	roomPrefix    = "room:"
	slugPrefix    = "slug:"
	maxTxnRetries = 5
)

// BadgerStore keeps rooms in BadgerDB.
// Records live under "room:{id}" as JSON; "slug:{slug}" holds the owning id
// so slug lookups and uniqueness checks stay single-key reads.
type BadgerStore struct {
	db  *badger.DB
	log *slog.Logger
	now func() time.Time
}

// OpenBadger opens (or creates) a store at path. An empty path opens an
// in-memory database.
func OpenBadger(path string, log *slog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	db, err := badger.Open(opts.WithLoggingLevel(badger.WARNING))
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	return NewBadgerStore(db, log), nil
}

// OpenBadgerReadOnly opens an existing store for inspection while a server
// may hold the directory lock.
func OpenBadgerReadOnly(path string, log *slog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger read-only at %q: %w", path, err)
	}
	return NewBadgerStore(db, log), nil
}

// NewBadgerStore wraps an already opened database.
func NewBadgerStore(db *badger.DB, log *slog.Logger) *BadgerStore {
	return &BadgerStore{db: db, log: log, now: time.Now}
}

func roomKey(id string) []byte   { return []byte(roomPrefix + id) }
func slugKey(slug string) []byte { return []byte(slugPrefix + slug) }

// Create stores a new room with a unique slug derived from its name.
func (s *BadgerStore) Create(_ context.Context, in CreateRoom) (Room, error) {
	base := Slugify(in.Name)
	var room Room
	err := s.update(func(txn *badger.Txn) error {
		slug, err := UniqueSlug(base, func(candidate string) (bool, error) {
			return keyExists(txn, slugKey(candidate))
		})
		if err != nil {
			return err
		}
		room = Room{
			ID:        uuid.NewString(),
			Name:      in.Name,
			Slug:      slug,
			CreatedBy: in.CreatedBy,
			Note:      in.Note,
			CreatedAt: s.now().UTC(),
		}
		return putRoom(txn, room)
	})
	if err != nil {
		return Room{}, err
	}
	s.log.Info("Room created", "id", room.ID, "slug", room.Slug)
	return room, nil
}

// List returns a page of rooms ordered by creation time, newest first.
func (s *BadgerStore) List(_ context.Context, q ListQuery) (Page, error) {
	var all []Room
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(roomPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var room Room
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &room)
			}); err != nil {
				return err
			}
			all = append(all, room)
		}
		return nil
	})
	if err != nil {
		return Page{}, fmt.Errorf("scan rooms: %w", err)
	}

	matches := lo.Filter(all, func(r Room, _ int) bool {
		return matchesSearch(r, q.Search)
	})
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	page := Page{Rooms: []Room{}, Total: len(matches)}
	if off := q.Offset(); off < len(matches) && q.Limit > 0 {
		end := off + min(q.Limit, len(matches)-off)
		page.Rooms = matches[off:end]
	}
	return page, nil
}

func matchesSearch(r Room, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	note := lo.FromPtr(r.Note)
	return strings.Contains(strings.ToLower(r.Name), needle) ||
		strings.Contains(strings.ToLower(r.Slug), needle) ||
		strings.Contains(strings.ToLower(note), needle)
}

// Get returns the room with the given id.
func (s *BadgerStore) Get(_ context.Context, id string) (Room, error) {
	var room Room
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		room, err = getRoom(txn, id)
		return err
	})
	return room, err
}

// GetBySlug resolves a slug to its room.
func (s *BadgerStore) GetBySlug(_ context.Context, slug string) (Room, error) {
	var room Room
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(slugKey(slug))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		room, err = getRoom(txn, string(id))
		return err
	})
	return room, err
}

// Update applies the provided fields. Changing the slug to one owned by
// another room fails with ErrSlugTaken.
func (s *BadgerStore) Update(_ context.Context, id string, in UpdateRoom) (Room, error) {
	var room Room
	err := s.update(func(txn *badger.Txn) error {
		var err error
		room, err = getRoom(txn, id)
		if err != nil {
			return err
		}
		if name, ok := nonEmpty(in.Name); ok {
			room.Name = name
		}
		if slug, ok := nonEmpty(in.Slug); ok && slug != room.Slug {
			taken, err := keyExists(txn, slugKey(slug))
			if err != nil {
				return err
			}
			if taken {
				return ErrSlugTaken
			}
			if err := txn.Delete(slugKey(room.Slug)); err != nil {
				return err
			}
			room.Slug = slug
		}
		if in.Note != nil {
			room.Note = in.Note
		}
		return putRoom(txn, room)
	})
	if err != nil {
		return Room{}, err
	}
	return room, nil
}

// Delete removes the room and its slug index.
func (s *BadgerStore) Delete(_ context.Context, id string) error {
	return s.update(func(txn *badger.Txn) error {
		room, err := getRoom(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete(slugKey(room.Slug)); err != nil {
			return err
		}
		return txn.Delete(roomKey(id))
	})
}

// Close releases the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// update retries fn when a concurrent transaction touched the same keys.
func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 1; attempt <= maxTxnRetries; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debug("Badger transaction conflict, retrying", "attempt", attempt)
	}
	return err
}

func getRoom(txn *badger.Txn, id string) (Room, error) {
	item, err := txn.Get(roomKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Room{}, ErrNotFound
	}
	if err != nil {
		return Room{}, err
	}
	var room Room
	err = item.Value(func(v []byte) error {
		return json.Unmarshal(v, &room)
	})
	return room, err
}

func putRoom(txn *badger.Txn, room Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	if err := txn.Set(roomKey(room.ID), data); err != nil {
		return err
	}
	return txn.Set(slugKey(room.Slug), []byte(room.ID))
}

func keyExists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}
