package roomstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	uniqueViolation = "23505"
	roomColumns     = "id, name, slug, created_by, note, created_at"
)

// PostgresStore keeps rooms in a PostgreSQL table.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// OpenPostgres connects a pool to url and applies the embedded migrations.
func OpenPostgres(ctx context.Context, url string, maxConns int, log *slog.Logger) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &PostgresStore{pool: pool, log: log}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// migrate executes every embedded .sql file in name order.
func (s *PostgresStore) migrate(ctx context.Context) error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		b, err := migrations.ReadFile("migrations/" + e.Name())
		if err != nil {
			return err
		}
		if _, err := s.pool.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("%s: %w", e.Name(), err)
		}
		s.log.Info("Migration applied", "file", e.Name())
	}
	return nil
}

// Create inserts a room with a unique slug. A concurrent insert racing for
// the same slug is retried with the next suffix.
func (s *PostgresStore) Create(ctx context.Context, in CreateRoom) (Room, error) {
	base := Slugify(in.Name)
	for attempt := 1; attempt <= maxTxnRetries; attempt++ {
		slug, err := UniqueSlug(base, func(candidate string) (bool, error) {
			var exists bool
			err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM rooms WHERE slug = $1)`, candidate).Scan(&exists)
			return exists, err
		})
		if err != nil {
			return Room{}, err
		}

		row := s.pool.QueryRow(ctx, `
			INSERT INTO rooms (id, name, slug, created_by, note, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+roomColumns,
			uuid.NewString(), in.Name, slug, in.CreatedBy, in.Note, time.Now().UTC())
		room, err := scanRoom(row)
		if isUniqueViolation(err) {
			s.log.Debug("Slug taken concurrently, retrying", "slug", slug, "attempt", attempt)
			continue
		}
		if err != nil {
			return Room{}, fmt.Errorf("insert room: %w", err)
		}
		s.log.Info("Room created", "id", room.ID, "slug", room.Slug)
		return room, nil
	}
	return Room{}, ErrSlugTaken
}

// List returns a page of rooms ordered by creation time, newest first.
func (s *PostgresStore) List(ctx context.Context, q ListQuery) (Page, error) {
	pattern := "%" + escapeLike(q.Search) + "%"
	const where = `WHERE $1 = '' OR name ILIKE $2 OR slug ILIKE $2 OR note ILIKE $2`

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rooms `+where, q.Search, pattern).Scan(&total); err != nil {
		return Page{}, fmt.Errorf("count rooms: %w", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT `+roomColumns+` FROM rooms `+where+`
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4`, q.Search, pattern, q.Limit, q.Offset())
	if err != nil {
		return Page{}, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	page := Page{Rooms: []Room{}, Total: total}
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return Page{}, err
		}
		page.Rooms = append(page.Rooms, room)
	}
	return page, rows.Err()
}

// Get returns the room with the given id.
func (s *PostgresStore) Get(ctx context.Context, id string) (Room, error) {
	return scanRoom(s.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id))
}

// GetBySlug resolves a slug to its room.
func (s *PostgresStore) GetBySlug(ctx context.Context, slug string) (Room, error) {
	return scanRoom(s.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE slug = $1`, slug))
}

// Update applies the provided fields in a single statement.
func (s *PostgresStore) Update(ctx context.Context, id string, in UpdateRoom) (Room, error) {
	var name, slug *string
	if v, ok := nonEmpty(in.Name); ok {
		name = &v
	}
	if v, ok := nonEmpty(in.Slug); ok {
		slug = &v
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE rooms SET
			name = COALESCE($2, name),
			slug = COALESCE($3, slug),
			note = CASE WHEN $4 THEN $5 ELSE note END
		WHERE id = $1
		RETURNING `+roomColumns,
		id, name, slug, in.Note != nil, in.Note)
	room, err := scanRoom(row)
	if isUniqueViolation(err) {
		return Room{}, ErrSlugTaken
	}
	return room, err
}

// Delete removes the room.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanRoom(row pgx.Row) (Room, error) {
	var r Room
	err := row.Scan(&r.ID, &r.Name, &r.Slug, &r.CreatedBy, &r.Note, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Room{}, ErrNotFound
	}
	if err != nil {
		return Room{}, err
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return r, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
