package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-auth-go/pkg/database"
)

// AccountRepo provides data access for the accounts table using sqlx.
// Queries are written with ? placeholders and rebound for the driver.
type AccountRepo struct {
	db *sqlx.DB
}

func NewAccountRepo(db *sqlx.DB) *AccountRepo { return &AccountRepo{db: db} }

// The unique index on lower(email) is the source of truth for email
// uniqueness; the service-level lookup only gives an early, friendly error.
var postgresDDL = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
  id BIGSERIAL PRIMARY KEY,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  email TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  password_algo TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'customer',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_accounts_email ON accounts (lower(email))`,
	`CREATE INDEX IF NOT EXISTS idx_accounts_role ON accounts (role)`,
}

var sqliteDDL = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  email TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  password_algo TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'customer',
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_accounts_email ON accounts (lower(email))`,
	`CREATE INDEX IF NOT EXISTS idx_accounts_role ON accounts (role)`,
}

// EnsureTable creates the accounts table if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (r *AccountRepo) EnsureTable(ctx context.Context) error {
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

const selectColumns = `id, first_name, last_name, email, password_hash, password_algo, role, created_at, updated_at`

// Create inserts a new account row and sets a.ID from the database.
func (r *AccountRepo) Create(ctx context.Context, a *entity.Account) (int64, error) {
	q := r.db.Rebind(`INSERT INTO accounts (first_name, last_name, email, password_hash, password_algo, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	row := r.db.QueryRowxContext(ctx, q,
		a.FirstName, a.LastName, a.Email, a.PasswordHash, a.PasswordAlgo, string(a.Role), a.CreatedAt, a.UpdatedAt)
	if err := row.Scan(&a.ID); err != nil {
		return 0, err
	}
	return a.ID, nil
}

// GetByEmail returns the account matching email case-insensitively, or
// (nil, nil) when there is none.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	q := r.db.Rebind(`SELECT ` + selectColumns + ` FROM accounts WHERE lower(email) = lower(?)`)
	return r.getOne(ctx, q, email)
}

// GetByID fetches a full account row, or (nil, nil) when absent.
func (r *AccountRepo) GetByID(ctx context.Context, id int64) (*entity.Account, error) {
	q := r.db.Rebind(`SELECT ` + selectColumns + ` FROM accounts WHERE id = ?`)
	return r.getOne(ctx, q, id)
}

// Count returns the number of accounts.
func (r *AccountRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM accounts`); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *AccountRepo) getOne(ctx context.Context, q string, arg any) (*entity.Account, error) {
	var a entity.Account
	if err := r.db.GetContext(ctx, &a, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}
