package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/internal/settlement/cache"
	"github.com/radieske/bet-settlement-engine/internal/settlement/coordinator"
	"github.com/radieske/bet-settlement-engine/internal/settlement/domain"
	"github.com/radieske/bet-settlement-engine/internal/settlement/ledger"
	"github.com/radieske/bet-settlement-engine/internal/settlement/lock"
	"github.com/radieske/bet-settlement-engine/internal/settlement/notify"
	"github.com/radieske/bet-settlement-engine/internal/settlement/repo"
	sharedcache "github.com/radieske/bet-settlement-engine/internal/shared/cache"
	"github.com/radieske/bet-settlement-engine/internal/shared/config"
	"github.com/radieske/bet-settlement-engine/internal/shared/db"
	"github.com/radieske/bet-settlement-engine/internal/shared/kafka"
	"github.com/radieske/bet-settlement-engine/internal/shared/metrics"
)

// Store reúne apostas e fatos; Postgres e SQLite implementam
type Store interface {
	coordinator.WagerStore
	coordinator.FactsStore
	CreateTables(ctx context.Context) error
}

// Ledger é o crédito de saldo com leitura do saldo atual
type Ledger interface {
	coordinator.Ledger
	Balance(ctx context.Context, userID string) (int64, error)
}

// App é o grafo de dependências comum aos binários de liquidação
type App struct {
	Log         *zap.Logger
	Config      config.Config
	Coordinator *coordinator.Coordinator
	Store       Store
	Facts       coordinator.FactsStore // Store, envolvido pelo cache quando há Redis
	Ledger      Ledger
	Metrics     *metrics.Settlement
	DB          *sql.DB
	Redis       *redis.Client // nil sem Redis

	closers []func() error
}

// Build conecta banco, Redis e Kafka conforme a configuração e monta o coordenador
func Build(ctx context.Context, cfg config.Config, log *zap.Logger, reg prometheus.Registerer) (*App, error) {
	a := &App{Log: log, Config: cfg}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	// Redis é opcional exceto para o lock distribuído
	if cfg.RedisAddr != "" {
		rdb, err := sharedcache.ConnectRedis(cfg.RedisAddr)
		switch {
		case err == nil:
			a.Redis = rdb
			a.closers = append(a.closers, rdb.Close)
			log.Info("redis connected")
		case cfg.LockMode == "redis":
			return nil, fmt.Errorf("redis connect: %w", err)
		default:
			log.Warn("redis unavailable, running without facts cache and broadcast", zap.Error(err))
		}
	}

	a.Facts = a.Store
	if a.Redis != nil && cfg.FactsCacheTTL > 0 {
		a.Facts = cache.NewFacts(log, a.Redis, a.Store, cfg.FactsCacheTTL)
	}

	var locker coordinator.Locker
	switch cfg.LockMode {
	case "redis":
		if a.Redis == nil {
			return nil, errors.New("LOCK_MODE=redis requires REDIS_ADDR")
		}
		locker = lock.NewRedis(a.Redis, cfg.LockTTL)
	case "memory", "":
		locker = lock.NewMemory()
	default:
		return nil, fmt.Errorf("unknown LOCK_MODE %q", cfg.LockMode)
	}

	switch cfg.LedgerMode {
	case "http":
		a.Ledger = ledger.NewHTTPClient(cfg.WalletURL)
	case "store", "":
		if err := a.openStoreLedger(ctx); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown LEDGER_MODE %q", cfg.LedgerMode)
	}

	var notifiers notify.Multi
	if cfg.KafkaBrokers != "" && cfg.TopicBetSettled != "" {
		w := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled)
		a.closers = append(a.closers, w.Close)
		notifiers = append(notifiers, notify.NewKafkaPublisher(w))
	}
	if a.Redis != nil {
		notifiers = append(notifiers, notify.NewRedisBroadcaster(a.Redis, cfg.RedisPubSubChannel))
	}

	a.Metrics = metrics.NewSettlement(reg)
	a.Coordinator = coordinator.New(log, a.Store, a.Facts, a.Ledger, notifiers, locker, coordinator.Options{
		StaleAfter:     cfg.StaleAfter,
		ResolveTimeout: cfg.ResolveTimeout,
		NotifyTimeout:  cfg.NotifyTimeout,
		Parallelism:    cfg.SettleParallelism,
	})
	a.Coordinator.Hooks = Hooks(a.Metrics)

	ok = true
	return a, nil
}

// Hooks liga os callbacks do coordenador aos coletores
func Hooks(m *metrics.Settlement) coordinator.Hooks {
	return coordinator.Hooks{
		OnSettled:      func(s domain.Status) { m.Settled(string(s)) },
		OnCreditFailed: m.CreditFailed,
		OnSkipped:      m.Skipped,
		OnPass:         m.ObservePass,
	}
}

func (a *App) openStore(ctx context.Context) error {
	cfg := a.Config
	switch cfg.StoreDriver {
	case "sqlite":
		sdb, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return err
		}
		a.DB = sdb
		a.Store = repo.NewSQLite(sdb)
	case "postgres", "":
		pg, err := db.ConnectPostgres(cfg.PostgresDSN)
		if err != nil {
			return err
		}
		a.DB = pg
		a.Store = repo.NewPostgres(pg)
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	a.closers = append(a.closers, a.DB.Close)
	a.Log.Info("store connected", zap.String("driver", cfg.StoreDriver))

	if cfg.AutoMigrate {
		if err := a.Store.CreateTables(ctx); err != nil {
			return fmt.Errorf("migrate store: %w", err)
		}
	}
	return nil
}

func (a *App) openStoreLedger(ctx context.Context) error {
	var l interface {
		Ledger
		CreateTables(ctx context.Context) error
	}
	if a.Config.StoreDriver == "sqlite" {
		l = ledger.NewSQLite(a.DB)
	} else {
		l = ledger.NewPostgres(a.DB)
	}
	if a.Config.AutoMigrate {
		if err := l.CreateTables(ctx); err != nil {
			return fmt.Errorf("migrate ledger: %w", err)
		}
	}
	a.Ledger = l
	return nil
}

// Health verifica banco e, se houver, Redis
func (a *App) Health(ctx context.Context) error {
	if err := a.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if a.Redis != nil {
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// NewDLQWriter cria o writer da DLQ; nil quando o tópico não está configurado
func (a *App) NewDLQWriter() *kafkago.Writer {
	if a.Config.KafkaBrokers == "" || a.Config.TopicMatchFinishedDLQ == "" {
		return nil
	}
	w := kafka.NewWriter(a.Config.KafkaBrokers, a.Config.TopicMatchFinishedDLQ)
	a.closers = append(a.closers, w.Close)
	return w
}

// Close fecha conexões na ordem inversa de abertura
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
