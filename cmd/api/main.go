package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/account"
	accountrepo "github.com/ovaphlow/pitchfork/service-auth-go/internal/account/repo"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/oidc"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/session/redisstore"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/token"
	"github.com/ovaphlow/pitchfork/service-auth-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-auth-go/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	// init logger
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-auth-go")

	// signing keys first: a bad key must stop the process before it listens
	tokenCfg, err := token.ConfigFromEnv()
	if err != nil {
		sugar.Fatalf("token config: %v", err)
	}
	issuer, err := token.NewIssuer(tokenCfg)
	if err != nil {
		sugar.Fatalf("token issuer: %v", err)
	}

	// init db
	dbCfg := database.ConfigFromEnv()
	db, err := database.Connect(dbCfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelSetup()

	accounts := accountrepo.NewAccountRepo(db)
	if err := accounts.EnsureTable(setupCtx); err != nil {
		sugar.Fatalf("ensure accounts table: %v", err)
	}

	ids := utilities.NewIDGeneratorFromEnv()
	sessions, closeSessions, err := openSessionStore(setupCtx, sugar, session.StoreConfigFromEnv(), db, ids)
	if err != nil {
		sugar.Fatalf("session store: %v", err)
	}
	defer closeSessions()

	publicURL := os.Getenv("PUBLIC_URL")
	if publicURL == "" {
		publicURL = "http://localhost:8431"
	}

	authSvc := auth.NewService(account.NewService(db, accounts, nil), sessions, issuer, sugar)
	handler := router.RegisterRoutes(sugar, router.Handlers{
		Auth: auth.NewHandler(authSvc, auth.CookieConfigFromEnv(), sugar),
		OIDC: oidc.NewHandler(issuer, tokenCfg.Issuer, publicURL),
	})

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8431"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// run server in background
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Infow("service is running; press Ctrl+C to stop", "addr", addr)

	<-ctx.Done()

	sugar.Info("shutting down")

	// give a short grace period for cleanup
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}

// openSessionStore builds the configured session record backend and a
// cleanup func for it.
func openSessionStore(ctx context.Context, logger *zap.SugaredLogger, cfg session.StoreConfig, db *sqlx.DB, ids session.IDGenerator) (session.Store, func(), error) {
	switch cfg.Backend {
	case session.BackendRedis:
		client, err := redisstore.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		logger.Infow("session records in redis", "addr", cfg.RedisAddr)
		return redisstore.New(client, cfg.KeyPrefix, ids), func() { _ = client.Close() }, nil
	case session.BackendSQL:
		st := session.NewSQLStore(db, ids)
		if err := st.EnsureTable(ctx); err != nil {
			return nil, nil, fmt.Errorf("ensure session_records table: %w", err)
		}
		return st, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", cfg.Backend)
	}
}
