package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/account/entity"
	accountrepo "github.com/ovaphlow/pitchfork/service-auth-go/internal/account/repo"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-auth-go/pkg/database/dbtest"
	"github.com/ovaphlow/pitchfork/service-auth-go/pkg/utilities"
)

var _ Store = (*SQLStore)(nil)

func setup(t *testing.T) (*sqlx.DB, *SQLStore, int64) {
	t.Helper()
	ctx := context.Background()
	db := dbtest.Open(t)
	accounts := accountrepo.NewAccountRepo(db)
	if err := accounts.EnsureTable(ctx); err != nil {
		t.Fatalf("accounts table: %v", err)
	}
	st := NewSQLStore(db, utilities.NewIDGenerator(1))
	if err := st.EnsureTable(ctx); err != nil {
		t.Fatalf("session table: %v", err)
	}
	now := time.Now().UTC()
	id, err := accounts.Create(ctx, &entity.Account{
		FirstName: "Alan", LastName: "Turing", Email: "alan@example.com",
		PasswordHash: "x", PasswordAlgo: "bcrypt:10", Role: entity.RoleCustomer,
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return db, st, id
}

func TestSQLStoreCreateAndGet(t *testing.T) {
	_, st, accountID := setup(t)
	ctx := context.Background()
	exp := time.Now().Add(365 * 24 * time.Hour).Truncate(time.Second)

	rec, err := st.Create(ctx, accountID, exp)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID == "" || rec.AccountID != accountID {
		t.Fatalf("unexpected record %+v", rec)
	}

	got, err := st.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AccountID != accountID || !got.ExpiresAt.Equal(exp) {
		t.Fatalf("got %+v, want expiry %v", got, exp)
	}
	if got.Expired(time.Now()) {
		t.Fatal("record should not be expired yet")
	}
	if !got.Expired(exp) {
		t.Fatal("record is expired at its expiry instant")
	}
}

func TestSQLStoreGetMissing(t *testing.T) {
	_, st, _ := setup(t)
	if _, err := st.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLStoreListByAccount(t *testing.T) {
	_, st, accountID := setup(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := st.Create(ctx, accountID, time.Now().Add(time.Hour)); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	recs, err := st.ListByAccount(ctx, accountID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	recs, err = st.ListByAccount(ctx, accountID+1)
	if err != nil || len(recs) != 0 {
		t.Fatalf("other account: %v %v", recs, err)
	}
}

func TestSQLStoreRejectsUnknownAccount(t *testing.T) {
	_, st, accountID := setup(t)
	_, err := st.Create(context.Background(), accountID+100, time.Now().Add(time.Hour))
	var serr *apperr.StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StorageError from foreign key, got %v", err)
	}
	if err.Error() != "storage failure" {
		t.Fatalf("message leaked detail: %q", err.Error())
	}
}

func TestSQLStoreCascadesWithAccount(t *testing.T) {
	db, st, accountID := setup(t)
	ctx := context.Background()
	rec, err := st.Create(ctx, accountID, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := db.ExecContext(ctx, db.Rebind(`DELETE FROM accounts WHERE id = ?`), accountID); err != nil {
		t.Fatalf("delete account: %v", err)
	}
	if _, err := st.Get(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected record to cascade away, got %v", err)
	}
}

func TestStoreConfigFromEnv(t *testing.T) {
	t.Setenv("SESSION_STORE", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("SESSION_KEY_PREFIX", "")
	cfg := StoreConfigFromEnv()
	if cfg.Backend != BackendSQL || cfg.RedisAddr != "localhost:6379" || cfg.KeyPrefix != "auth" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	t.Setenv("SESSION_STORE", "Redis")
	if StoreConfigFromEnv().Backend != BackendRedis {
		t.Fatal("expected redis backend")
	}
}
