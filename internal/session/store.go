package session

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/session/entity"
	sessionrepo "github.com/ovaphlow/pitchfork/service-auth-go/internal/session/repo"
)

// ErrNotFound is returned by Get when no record has the id.
var ErrNotFound = errors.New("session record not found")

// Store persists session records. Implementations wrap every backend
// failure in *apperr.StorageError.
type Store interface {
	Create(ctx context.Context, accountID int64, expiresAt time.Time) (*entity.Record, error)
	Get(ctx context.Context, id string) (*entity.Record, error)
	ListByAccount(ctx context.Context, accountID int64) ([]entity.Record, error)
}

// IDGenerator supplies record ids.
type IDGenerator interface {
	NewID() string
}

const (
	BackendSQL   = "sql"
	BackendRedis = "redis"
)

// StoreConfig selects the backend and, for redis, how to reach it.
type StoreConfig struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
}

// StoreConfigFromEnv reads SESSION_STORE (sql|redis), REDIS_URL and REDIS_PASSWORD.
func StoreConfigFromEnv() StoreConfig {
	backend := strings.ToLower(os.Getenv("SESSION_STORE"))
	if backend == "" {
		backend = BackendSQL
	}
	addr := os.Getenv("REDIS_URL")
	if addr == "" {
		addr = "localhost:6379"
	}
	prefix := os.Getenv("SESSION_KEY_PREFIX")
	if prefix == "" {
		prefix = "auth"
	}
	return StoreConfig{
		Backend:       backend,
		RedisAddr:     addr,
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		KeyPrefix:     prefix,
	}
}

// SQLStore keeps records in the relational database next to accounts.
type SQLStore struct {
	repo *sessionrepo.RecordRepo
	ids  IDGenerator
	now  func() time.Time
}

func NewSQLStore(db *sqlx.DB, ids IDGenerator) *SQLStore {
	return &SQLStore{repo: sessionrepo.NewRecordRepo(db), ids: ids, now: time.Now}
}

// EnsureTable creates the backing table.
func (s *SQLStore) EnsureTable(ctx context.Context) error {
	return s.repo.EnsureTable(ctx)
}

func (s *SQLStore) Create(ctx context.Context, accountID int64, expiresAt time.Time) (*entity.Record, error) {
	rec := &entity.Record{
		ID:        s.ids.NewID(),
		AccountID: accountID,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Save(ctx, rec); err != nil {
		return nil, apperr.Storage("insert session record", err)
	}
	return rec, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*entity.Record, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperr.Storage("get session record", err)
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (s *SQLStore) ListByAccount(ctx context.Context, accountID int64) ([]entity.Record, error) {
	recs, err := s.repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, apperr.Storage("list session records", err)
	}
	return recs, nil
}
