package account

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/account/entity"
	accountrepo "github.com/ovaphlow/pitchfork/service-auth-go/internal/account/repo"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-auth-go/pkg/database"
)

// DefaultCost is the bcrypt work factor used for new hashes.
const DefaultCost = 10

// bcrypt only reads the first 72 bytes of input; x/crypto returns
// ErrPasswordTooLong past that instead of truncating.
const maxBcryptInput = 72

// bcryptInput truncates pw to what bcrypt actually digests.
func bcryptInput(pw string) []byte {
	b := []byte(pw)
	if len(b) > maxBcryptInput {
		b = b[:maxBcryptInput]
	}
	return b
}

// PasswordHasher defines minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (hash string, algo string, err error)
	Verify(hash, pw string) bool
	NeedsRehash(hash string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) cost() int {
	if b.Cost == 0 {
		return DefaultCost
	}
	return b.Cost
}

func (b BcryptHasher) Hash(pw string) (string, string, error) {
	cost := b.cost()
	h, err := bcrypt.GenerateFromPassword(bcryptInput(pw), cost)
	if err != nil {
		return "", "", err
	}
	return string(h), fmt.Sprintf("bcrypt:%d", cost), nil
}

// Verify compares in constant time over the derived digest.
func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(pw)) == nil
}

// NeedsRehash reports whether hash was produced with a different cost.
// Unparsable hashes always need a rehash.
func (b BcryptHasher) NeedsRehash(hash string) bool {
	// format: $2a$10$<22 salt><31 digest>
	parts := strings.Split(hash, "$")
	if len(parts) != 4 {
		return true
	}
	c, err := strconv.Atoi(parts[2])
	if err != nil {
		return true
	}
	return c != b.cost()
}

// Repository is the persistence the service needs. *repo.AccountRepo
// satisfies it; tests substitute in-memory versions.
type Repository interface {
	GetByEmail(ctx context.Context, email string) (*entity.Account, error)
	Create(ctx context.Context, a *entity.Account) (int64, error)
}

// Service is the account store: duplicate check, hashing and insert.
type Service struct {
	repo   Repository
	hasher PasswordHasher
	now    func() time.Time
}

func NewService(db *sqlx.DB, r Repository, hasher PasswordHasher) *Service {
	if r == nil {
		r = accountrepo.NewAccountRepo(db)
	}
	if hasher == nil {
		hasher = BcryptHasher{Cost: DefaultCost}
	}
	return &Service{repo: r, hasher: hasher, now: time.Now}
}

// CreateInput is already trimmed and validated by the caller.
type CreateInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// Create registers a new customer account.
//
// The email lookup runs before hashing so a duplicate does not pay the
// bcrypt cost. The lookup is advisory: a concurrent insert that wins the
// race is caught by the unique index and reported the same way.
func (s *Service) Create(ctx context.Context, in CreateInput) (*entity.Account, error) {
	existing, err := s.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, apperr.Storage("lookup account by email", err)
	}
	if existing != nil {
		return nil, apperr.ErrConflict
	}

	hash, algo, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	a := &entity.Account{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		PasswordAlgo: algo,
		Role:         entity.RoleCustomer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.repo.Create(ctx, a); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperr.ErrConflict
		}
		return nil, apperr.Storage("insert account", err)
	}
	return a, nil
}
