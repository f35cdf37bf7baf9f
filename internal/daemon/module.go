package daemon

import (
	"context"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/matheus3301/campus/internal/api"
	"github.com/matheus3301/campus/internal/bus"
	"github.com/matheus3301/campus/internal/cache"
	"github.com/matheus3301/campus/internal/instance"
	"github.com/matheus3301/campus/internal/lock"
	"github.com/matheus3301/campus/internal/logging"
	"github.com/matheus3301/campus/internal/realtime"
	"github.com/matheus3301/campus/internal/status"
	"github.com/matheus3301/campus/internal/store"
)

// Params holds the resolved institute configuration passed to the fx module.
type Params struct {
	Institute   string
	Dir         string // optional override for testing; empty = instance.Dir
	SocketPath  string // optional override for testing; empty = <dir>/campusd.sock
	DatabaseURL string // empty = SQLite at <dir>/campus.db
	RedisURL    string // empty = no profile cache
	Logger      *zap.Logger
}

func (p Params) dir() string {
	if p.Dir != "" {
		return p.Dir
	}
	return instance.Dir(p.Institute)
}

func (p Params) socketPath() string {
	if p.SocketPath != "" {
		return p.SocketPath
	}
	return filepath.Join(p.dir(), "campusd.sock")
}

func (p Params) databaseURL() string {
	if p.DatabaseURL != "" {
		return p.DatabaseURL
	}
	return filepath.Join(p.dir(), "campus.db")
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideRelay,
			provideHub,
			provideRedis,
			provideProfiles,
			provideSessionService,
			provideNotificationService,
			provideChatService,
			provideFeedService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	if p.Logger != nil {
		return p.Logger, nil
	}
	return logging.New(filepath.Join(p.dir(), "logs", "campusd.log"), p.Institute)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewDaemonMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring institute lock", zap.String("institute", p.Institute))
	l, err := lock.Acquire(p.dir())
	if err != nil {
		return nil, err
	}
	logger.Info("institute lock acquired")
	return l, nil
}

// provideStore depends on the lock so the database is never opened by a
// second daemon.
func provideStore(p Params, _ *lock.Lock, b *bus.Bus, logger *zap.Logger) (*store.DB, error) {
	db, err := store.Open(p.databaseURL(), b, logger.Named("store"))
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("dialect", string(db.Dialect())))
	return db, nil
}

// provideRelay returns nil on SQLite, where changes never leave the process.
func provideRelay(db *store.DB, b *bus.Bus, machine *status.Machine, hub *realtime.Hub, logger *zap.Logger) *store.Relay {
	if db.Dialect() != store.Postgres {
		return nil
	}
	return store.NewRelay(db.DSN(), b, logger.Named("relay"), relayLink(machine, hub))
}

// relayLink follows the listener connection. Changes sent while it was down
// are never delivered, so every feed subscription is closed on reconnect and
// clients resubscribe and reload.
func relayLink(machine *status.Machine, hub *realtime.Hub) func(up bool) {
	return func(up bool) {
		if !up {
			machine.TransitionIf(status.Degraded, status.Ready)
			return
		}
		hub.Reset()
		machine.TransitionIf(status.Ready, status.Degraded)
	}
}

func provideHub(b *bus.Bus, logger *zap.Logger) *realtime.Hub {
	return realtime.NewHub(b, logger.Named("hub"))
}

// provideRedis returns nil when no cache is configured or reachable.
func provideRedis(p Params, logger *zap.Logger) *redis.Client {
	if p.RedisURL == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	rdb, err := cache.NewRedisClient(ctx, p.RedisURL)
	if err != nil {
		logger.Warn("profile cache disabled", zap.Error(err))
		return nil
	}
	logger.Info("profile cache enabled")
	return rdb
}

func provideProfiles(db *store.DB, rdb *redis.Client, logger *zap.Logger) *cache.Profiles {
	return cache.NewProfiles(db, rdb, cache.DefaultTTL, logger)
}

func provideSessionService(p Params, m *status.Machine, hub *realtime.Hub, db *store.DB) *api.SessionService {
	return api.NewSessionService(p.Institute, m, hub, db)
}

func provideNotificationService(db *store.DB) *api.NotificationService {
	return api.NewNotificationService(db)
}

func provideChatService(db *store.DB, profiles *cache.Profiles) *api.ChatService {
	return api.NewChatService(db, profiles)
}

func provideFeedService(hub *realtime.Hub, logger *zap.Logger) *api.FeedService {
	return api.NewFeedService(hub, logger.Named("feed"))
}

type lifecycleParams struct {
	fx.In

	Server  *Server
	Lock    *lock.Lock
	DB      *store.DB
	Relay   *store.Relay
	Hub     *realtime.Hub
	Redis   *redis.Client
	Machine *status.Machine
	Bus     *bus.Bus
	Logger  *zap.Logger
}

func registerLifecycle(lc fx.Lifecycle, d lifecycleParams) {
	logger := d.Logger
	var unsubscribe func()

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			events, unsub := d.Bus.Subscribe(bus.NamespaceDaemon, 16)
			unsubscribe = unsub
			go func() {
				for ev := range events {
					if sc, ok := ev.Payload.(status.StatusChange); ok {
						logger.Info("daemon status changed", zap.String("from", string(sc.From)), zap.String("to", string(sc.To)))
					}
				}
			}()

			d.Hub.Start(context.Background())

			if d.Relay != nil {
				if err := d.Relay.Start(context.Background()); err != nil {
					logger.Error("change relay failed to start", zap.Error(err))
					_ = d.Machine.Transition(status.Error)
					return err
				}
			}

			// Start gRPC server in background.
			go func() {
				if err := d.Server.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			return d.Machine.Transition(status.Ready)
		},
		OnStop: func(ctx context.Context) error {
			_ = d.Machine.Transition(status.Stopping)
			// Closing the hub ends every feed stream so the server can drain.
			d.Hub.Stop()
			d.Server.Stop(ctx)
			if d.Relay != nil {
				d.Relay.Stop()
			}
			if d.Redis != nil {
				_ = d.Redis.Close()
			}
			if err := d.DB.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if unsubscribe != nil {
				unsubscribe()
			}
			if err := d.Lock.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
