package auth

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/account"
	accountentity "github.com/ovaphlow/pitchfork/service-auth-go/internal/account/entity"
	sessionentity "github.com/ovaphlow/pitchfork/service-auth-go/internal/session/entity"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/token"
)

// AccountCreator is the account store as seen by registration.
type AccountCreator interface {
	Create(ctx context.Context, in account.CreateInput) (*accountentity.Account, error)
}

// SessionCreator persists the record a refresh token points at.
type SessionCreator interface {
	Create(ctx context.Context, accountID int64, expiresAt time.Time) (*sessionentity.Record, error)
}

// Service runs the registration flow: validate, create the account,
// persist a session record, then sign both tokens.
type Service struct {
	accounts AccountCreator
	sessions SessionCreator
	signer   token.Signer
	logger   *zap.SugaredLogger
	now      func() time.Time
}

func NewService(accounts AccountCreator, sessions SessionCreator, signer token.Signer, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{accounts: accounts, sessions: sessions, signer: signer, logger: logger, now: time.Now}
}

// RegisterResult is everything the transport layer needs to respond.
type RegisterResult struct {
	AccountID        int64
	IssuedAt         time.Time
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Register creates an account and issues its first token pair.
// Validation failures return *apperr.ValidationError before any I/O.
func (s *Service) Register(ctx context.Context, raw RegisterInput) (*RegisterResult, error) {
	in := raw.normalize()
	if err := validate(in); err != nil {
		return nil, err
	}

	s.logger.Debugw("new request to register a user",
		"firstName", in.FirstName,
		"lastName", in.LastName,
		"email", in.Email,
		"password", "******",
	)

	acct, err := s.accounts.Create(ctx, account.CreateInput{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Password:  in.Password,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infow("user has been registered", "id", acct.ID)

	// token timestamps have second precision; truncating keeps the refresh
	// token's exp identical to the record's expires_at
	now := s.now().UTC().Truncate(time.Second)
	payload := token.Payload{
		Subject:  strconv.FormatInt(acct.ID, 10),
		Role:     string(acct.Role),
		IssuedAt: now,
	}

	rec, err := s.sessions.Create(ctx, acct.ID, now.Add(s.signer.TTL(token.KindRefresh)))
	if err != nil {
		return nil, err
	}

	access, accessExp, err := s.signer.Sign(token.KindAccess, payload)
	if err != nil {
		return nil, err
	}
	payload.SessionID = rec.ID
	refresh, refreshExp, err := s.signer.Sign(token.KindRefresh, payload)
	if err != nil {
		return nil, err
	}

	return &RegisterResult{
		AccountID:        acct.ID,
		IssuedAt:         now,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}
