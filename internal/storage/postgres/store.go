// Package postgres implements slot storage on PostgreSQL.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/storage"
	"github.com/utafrali/storefront/pkg/database"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the schema migrations for the slot table.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

const (
	getSlotSQL = `SELECT value FROM storefront_slots WHERE scope = $1 AND slot = $2`

	getSlotFreshSQL = `SELECT value FROM storefront_slots WHERE scope = $1 AND slot = $2 AND updated_at > $3`

	upsertSlotSQL = `INSERT INTO storefront_slots (scope, slot, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (scope, slot) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

	purgeSlotsSQL = `DELETE FROM storefront_slots WHERE updated_at < $1`
)

// Pool is the subset of *pgxpool.Pool the store needs.
type Pool interface {
	database.DBTX
	Ping(ctx context.Context) error
}

// Store implements storage.Store using a single upserted table.
type Store struct {
	pool Pool
	ttl  time.Duration
	now  func() time.Time
}

// NewStore creates a PostgreSQL-backed slot store. With a non-zero ttl, slots
// not written within ttl read as absent.
func NewStore(pool Pool, ttl time.Duration) *Store {
	return &Store{pool: pool, ttl: ttl, now: time.Now}
}

// Get implements storage.Store.
func (s *Store) Get(ctx context.Context, scope string, slot domain.Slot) (_ string, err error) {
	query, args := getSlotSQL, []any{scope, string(slot)}
	if s.ttl > 0 {
		query, args = getSlotFreshSQL, append(args, s.now().Add(-s.ttl))
	}

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "GetSlot", query)
	defer func() { end(err) }()

	var value string
	if err = s.pool.QueryRow(ctx, query, args...).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", storage.ErrSlotNotFound(slot)
		}
		return "", fmt.Errorf("select slot %s: %w", slot, err)
	}
	return value, nil
}

// Set implements storage.Store.
func (s *Store) Set(ctx context.Context, scope string, slot domain.Slot, value string) (err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "SetSlot", upsertSlotSQL)
	defer func() { end(err) }()

	if _, err = s.pool.Exec(ctx, upsertSlotSQL, scope, string(slot), value); err != nil {
		return fmt.Errorf("upsert slot %s: %w", slot, err)
	}
	return nil
}

// Ping implements storage.Store.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// PurgeExpired deletes slots not written within the store's ttl and returns
// how many were removed. It is a no-op when no ttl is configured.
func (s *Store) PurgeExpired(ctx context.Context) (_ int64, err error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "PurgeSlots", purgeSlotsSQL)
	defer func() { end(err) }()

	tag, err := s.pool.Exec(ctx, purgeSlotsSQL, s.now().Add(-s.ttl))
	if err != nil {
		return 0, fmt.Errorf("purge expired slots: %w", err)
	}
	return tag.RowsAffected(), nil
}
