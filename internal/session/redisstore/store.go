// Package redisstore keeps session records in redis. Each record is a hash
// that expires with the record; an account set indexes record ids.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/session/entity"
)

type Store struct {
	client *redis.Client
	prefix string
	ids    session.IDGenerator
	now    func() time.Time
}

// New wraps an existing client. prefix namespaces every key.
func New(client *redis.Client, prefix string, ids session.IDGenerator) *Store {
	return &Store{client: client, prefix: prefix, ids: ids, now: time.Now}
}

// Connect builds a client from cfg and pings it.
func Connect(ctx context.Context, cfg session.StoreConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (s *Store) recordKey(id string) string {
	return s.prefix + ":session:" + id
}

func (s *Store) accountKey(accountID int64) string {
	return s.prefix + ":account_sessions:" + strconv.FormatInt(accountID, 10)
}

func (s *Store) Create(ctx context.Context, accountID int64, expiresAt time.Time) (*entity.Record, error) {
	rec := &entity.Record{
		ID:        s.ids.NewID(),
		AccountID: accountID,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: s.now().UTC(),
	}
	key := s.recordKey(rec.ID)
	setKey := s.accountKey(accountID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"account_id", rec.AccountID,
			"expires_at", rec.ExpiresAt.UnixNano(),
			"created_at", rec.CreatedAt.UnixNano(),
		)
		pipe.ExpireAt(ctx, key, rec.ExpiresAt)
		pipe.SAdd(ctx, setKey, rec.ID)
		// records share one lifetime, so the newest one bounds the index
		pipe.ExpireAt(ctx, setKey, rec.ExpiresAt)
		return nil
	})
	if err != nil {
		return nil, apperr.Storage("save session record", err)
	}
	return rec, nil
}

func (s *Store) Get(ctx context.Context, id string) (*entity.Record, error) {
	fields, err := s.client.HGetAll(ctx, s.recordKey(id)).Result()
	if err != nil {
		return nil, apperr.Storage("get session record", err)
	}
	if len(fields) == 0 {
		return nil, session.ErrNotFound
	}
	rec, err := decode(id, fields)
	if err != nil {
		return nil, apperr.Storage("decode session record", err)
	}
	return rec, nil
}

func (s *Store) ListByAccount(ctx context.Context, accountID int64) ([]entity.Record, error) {
	ids, err := s.client.SMembers(ctx, s.accountKey(accountID)).Result()
	if err != nil {
		return nil, apperr.Storage("list session records", err)
	}
	out := make([]entity.Record, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Get(ctx, id)
		if errors.Is(err, session.ErrNotFound) {
			// expired hash; the set member lingers until the set itself expires
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func decode(id string, fields map[string]string) (*entity.Record, error) {
	accountID, err := strconv.ParseInt(fields["account_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("account_id: %w", err)
	}
	exp, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("expires_at: %w", err)
	}
	created, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	return &entity.Record{
		ID:        id,
		AccountID: accountID,
		ExpiresAt: time.Unix(0, exp).UTC(),
		CreatedAt: time.Unix(0, created).UTC(),
	}, nil
}
