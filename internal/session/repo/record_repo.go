package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/session/entity"
	"github.com/ovaphlow/pitchfork/service-auth-go/pkg/database"
)

// RecordRepo persists session records in the session_records table.
// Rows cascade away with their account.
type RecordRepo struct {
	db *sqlx.DB
}

func NewRecordRepo(db *sqlx.DB) *RecordRepo {
	return &RecordRepo{db: db}
}

var postgresDDL = []string{
	`CREATE TABLE IF NOT EXISTS session_records (
  id TEXT PRIMARY KEY,
  account_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
  expires_at TIMESTAMPTZ NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS idx_session_records_account_id ON session_records (account_id)`,
}

var sqliteDDL = []string{
	`CREATE TABLE IF NOT EXISTS session_records (
  id TEXT PRIMARY KEY,
  account_id INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
  expires_at TIMESTAMP NOT NULL,
  created_at TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_session_records_account_id ON session_records (account_id)`,
}

// EnsureTable creates the session_records table. The accounts table must exist first.
func (r *RecordRepo) EnsureTable(ctx context.Context) error {
	ddl := postgresDDL
	if r.db.DriverName() == database.DriverSQLite {
		ddl = sqliteDDL
	}
	for _, stmt := range ddl {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *RecordRepo) Save(ctx context.Context, rec *entity.Record) error {
	q := r.db.Rebind(`INSERT INTO session_records (id, account_id, expires_at, created_at) VALUES (?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, q, rec.ID, rec.AccountID, rec.ExpiresAt, rec.CreatedAt)
	return err
}

// Get returns the record with id, or (nil, nil) when absent.
func (r *RecordRepo) Get(ctx context.Context, id string) (*entity.Record, error) {
	q := r.db.Rebind(`SELECT id, account_id, expires_at, created_at FROM session_records WHERE id = ?`)
	var rec entity.Record
	if err := r.db.GetContext(ctx, &rec, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// ListByAccount returns the account's records, newest first.
func (r *RecordRepo) ListByAccount(ctx context.Context, accountID int64) ([]entity.Record, error) {
	q := r.db.Rebind(`SELECT id, account_id, expires_at, created_at FROM session_records WHERE account_id = ? ORDER BY created_at DESC`)
	out := []entity.Record{}
	if err := r.db.SelectContext(ctx, &out, q, accountID); err != nil {
		return nil, err
	}
	return out, nil
}
