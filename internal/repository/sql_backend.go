package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// storeLeaseName is the portal_lock row guarding the portal_store rewrite.
const storeLeaseName = "portal_store"

// SQLBackend keeps one row per key in the portal_store table. It serves both
// PostgreSQL and SQLite; queries use ? placeholders and are rebound per driver.
// Lock takes a lease row in portal_lock so several processes can share the database.
type SQLBackend struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLBackend constructs the backend over an open handle.
func NewSQLBackend(db *sqlx.DB) *SQLBackend {
	return &SQLBackend{db: db, now: time.Now}
}

// Migrate creates the portal_store and portal_lock tables when missing.
func (b *SQLBackend) Migrate(ctx context.Context) error {
	payloadType, tsType := "BLOB", "TIMESTAMP"
	if b.db.DriverName() == "postgres" {
		payloadType, tsType = "BYTEA", "TIMESTAMPTZ"
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS portal_store (
	store_key TEXT PRIMARY KEY,
	payload %s NOT NULL,
	updated_at %s NOT NULL
)`, payloadType, tsType)
	if _, err := b.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("migrate portal_store: %w", err)
	}
	if _, err := b.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS portal_lock (
	name TEXT PRIMARY KEY,
	holder TEXT NOT NULL,
	expires_at BIGINT NOT NULL
)`); err != nil {
		return fmt.Errorf("migrate portal_lock: %w", err)
	}
	return nil
}

// LoadAll implements Backend.
func (b *SQLBackend) LoadAll(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	query := b.db.Rebind(`SELECT payload FROM portal_store WHERE store_key = ?`)
	if err := b.db.GetContext(ctx, &payload, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return payload, nil
}

// SaveAll implements Backend.
func (b *SQLBackend) SaveAll(ctx context.Context, key string, payload []byte) error {
	query := b.db.Rebind(`INSERT INTO portal_store (store_key, payload, updated_at) VALUES (?, ?, ?)
ON CONFLICT (store_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`)
	if _, err := b.db.ExecContext(ctx, query, key, payload, b.now().UTC()); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// Lock implements Locker. The lease row is taken when absent or expired; expiry is kept
// as unix milliseconds so both dialects compare it the same way.
func (b *SQLBackend) Lock(ctx context.Context) (func() error, error) {
	holder := uuid.NewString()
	acquire := b.db.Rebind(`INSERT INTO portal_lock (name, holder, expires_at) VALUES (?, ?, ?)
ON CONFLICT (name) DO UPDATE SET holder = excluded.holder, expires_at = excluded.expires_at
WHERE portal_lock.expires_at < ?`)
	err := acquireLease(ctx, func() (bool, error) {
		now := b.now()
		res, err := b.db.ExecContext(ctx, acquire, storeLeaseName, holder, now.Add(leaseTTL).UnixMilli(), now.UnixMilli())
		if err != nil {
			return false, fmt.Errorf("acquire store lease: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("acquire store lease: %w", err)
		}
		return n == 1, nil
	})
	if err != nil {
		return nil, err
	}
	release := b.db.Rebind(`DELETE FROM portal_lock WHERE name = ? AND holder = ?`)
	return func() error {
		if _, err := b.db.ExecContext(context.Background(), release, storeLeaseName, holder); err != nil {
			return fmt.Errorf("release store lease: %w", err)
		}
		return nil
	}, nil
}
