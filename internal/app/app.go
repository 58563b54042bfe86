// Package app assembles the desk backend from configuration. Both binaries
// build on it so the server and the cron runner share one wiring.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"equiptrack-backend/internal/config"
	"equiptrack-backend/internal/ledger"
	"equiptrack-backend/internal/logger"
	"equiptrack-backend/internal/notify"
	"equiptrack-backend/internal/repository"
	"equiptrack-backend/internal/repository/memory"
	"equiptrack-backend/internal/repository/postgres"
	"equiptrack-backend/internal/scan"
	"equiptrack-backend/internal/security"
	"equiptrack-backend/internal/service"
	"equiptrack-backend/internal/session"
)

// Repositories is the set of storage views the services need.
type Repositories struct {
	Equipment repository.EquipmentRepository
	Checkouts repository.CheckoutRepository
	Users     repository.UserRepository
	Gateway   repository.Gateway
}

type App struct {
	Config      *config.Config
	Repos       Repositories
	Checkout    service.CheckoutService
	Circulation service.CirculationService
	Inventory   service.InventoryService
	Auth        *security.Authenticator
	Tokens      security.TokenManager
	Dispatcher  *notify.Dispatcher

	// Ping reports store reachability; nil for the in-process store.
	Ping func(ctx context.Context) error

	closers []func() error
}

// New opens the store and builds the services. The dispatcher is created
// but not started.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	repos, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.Repos = repos

	sessions, err := a.openSessions(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	policy, err := ledger.ParseRecoveryPolicy(cfg.Ledger.RecoveryPolicy)
	if err != nil {
		a.Close()
		return nil, err
	}
	opts := service.Options{
		Timeout:        cfg.PersistenceTimeout(),
		RecoveryPolicy: policy,
	}

	a.Dispatcher = notify.NewDispatcher(a.buildSink(), notify.DispatcherConfig{
		Workers:    cfg.Notify.Workers,
		QueueSize:  cfg.Notify.QueueSize,
		MaxRetries: cfg.Notify.MaxRetries,
		Timeout:    time.Duration(cfg.Notify.TimeoutSeconds) * time.Second,
	})

	resolver := scan.NewResolver(cfg.Resolver.SimilarityThreshold, cfg.Resolver.MinSimilarityLength)
	// One lock table so commits, returns and reconciliation serialize on the same records.
	locks := ledger.NewLocks()

	a.Checkout = service.NewCheckoutService(repos.Equipment, repos.Users, repos.Gateway, sessions, resolver, locks, a.Dispatcher, opts)
	a.Circulation = service.NewCirculationService(repos.Equipment, repos.Checkouts, repos.Gateway, locks, a.Dispatcher, opts)
	a.Inventory = service.NewInventoryService(repos.Equipment, repos.Checkouts, repos.Gateway, resolver, locks, a.Dispatcher, opts)

	operators := make([]security.Operator, 0, len(cfg.Operators))
	for _, op := range cfg.Operators {
		operators = append(operators, security.Operator{Username: op.Username, PasswordHash: op.PasswordHash, Role: op.Role})
	}
	a.Tokens = security.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)
	a.Auth = security.NewAuthenticator(operators, a.Tokens, cfg.Server.LoginRatePerMin, cfg.Server.LoginBurst)

	return a, nil
}

func (a *App) openStore(ctx context.Context) (Repositories, error) {
	cfg := a.Config
	if cfg.Database.Driver == "memory" {
		logger.Warn("Using in-process store; data is lost on exit")
		store := memory.NewStore()
		return Repositories{
			Equipment: store.Equipment(),
			Checkouts: store.Checkouts(),
			Users:     store.Users(),
			Gateway:   store.Gateway(),
		}, nil
	}

	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return Repositories{}, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return Repositories{}, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Database connection established")

	a.Ping = db.PingContext
	a.closers = append(a.closers, db.Close)
	store := postgres.NewStore(db)
	return Repositories{
		Equipment: store.EquipmentRepository,
		Checkouts: store.CheckoutRepository,
		Users:     store.UserRepository,
		Gateway:   store.Gateway,
	}, nil
}

func (a *App) openSessions(ctx context.Context) (session.Store, error) {
	cfg := a.Config
	if cfg.Session.Store != "redis" {
		return session.NewMemoryStore(cfg.SessionTTL()), nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	a.closers = append(a.closers, rdb.Close)
	logger.Info("Session store connected", "store", "redis", "addr", cfg.Redis.Addr)
	return session.NewRedisStore(rdb, cfg.SessionTTL()), nil
}

func (a *App) buildSink() notify.Sink {
	cfg := a.Config
	var sinks notify.MultiSink
	for _, name := range cfg.Notify.Sinks {
		switch strings.TrimSpace(name) {
		case "log":
			sinks = append(sinks, notify.LogSink{})
		case "smtp":
			sinks = append(sinks, notify.NewSMTPSink(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From, cfg.Notify.DeskEmail))
		case "sendgrid":
			sinks = append(sinks, notify.NewSendGridSink(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName, cfg.Notify.DeskEmail))
		case "kafka":
			k := notify.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
			a.closers = append(a.closers, k.Close)
			sinks = append(sinks, k)
		}
	}
	if len(sinks) == 1 {
		return sinks[0]
	}
	return sinks
}

// Close releases the store, session and sink connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("Close failed", "error", err)
		}
	}
	a.closers = nil
}
