package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zennify/zennify/internal/api"
	"github.com/zennify/zennify/internal/app/engagement"
	"github.com/zennify/zennify/internal/app/identity"
	"github.com/zennify/zennify/internal/domain"
	"github.com/zennify/zennify/internal/health"
	"github.com/zennify/zennify/internal/infra/events"
	"github.com/zennify/zennify/internal/infra/healing"
	_ "github.com/zennify/zennify/internal/infra/metrics" // Register Prometheus metrics
	"github.com/zennify/zennify/internal/infra/mongostore"
	"github.com/zennify/zennify/internal/infra/sqlite"
	"github.com/zennify/zennify/internal/platform/logger"
	"github.com/zennify/zennify/internal/security"
)

// Backend is a document store that also keeps accounts. Both SQLite and
// MongoDB stores satisfy it.
type Backend interface {
	domain.Store
	domain.AccountStore
}

// Daemon is the Zennify runtime. It wires together all services.
type Daemon struct {
	Config  Config
	Log     *logger.Logger
	Store   Backend
	Keypair *security.Keypair
	Bus     events.Bus
	Breaker *healing.Breaker
	Hub     *events.Hub

	Progress      *engagement.ProgressService
	Quests        *engagement.QuestService
	Moods         *engagement.MoodService
	Notifications *engagement.NotificationService
	Identity      *identity.Service
	Health        *health.Checker
	Server        *api.Server

	cancel context.CancelFunc
}

// New loads the config and creates a Daemon with all services wired.
func New(ctx context.Context) (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(ctx, cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(ctx context.Context, cfg Config) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	d := &Daemon{Config: cfg, Log: log}
	ok := false
	defer func() {
		if !ok {
			d.Close()
		}
	}()

	dataDir := cfg.Store.Dir
	if dataDir == "" {
		dataDir = zennifyHome()
	}

	// Document store
	if d.Store, err = openStore(ctx, cfg.Store, dataDir); err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}

	// Session signing key (Ed25519)
	d.Keypair, err = security.LoadOrCreateKeypair(dataDir)
	if err != nil {
		return nil, fmt.Errorf("load session key: %w", err)
	}

	// Event bus
	if d.Bus, err = openBus(ctx, log, cfg.Events); err != nil {
		return nil, fmt.Errorf("connect event bus: %w", err)
	}
	d.Hub = events.NewHub(log)
	d.Breaker = healing.New("event_bus", healing.DefaultConfig())
	pub := events.Publisher{Bus: d.Bus, Breaker: d.Breaker}

	// Engagement engine
	loc, _ := time.LoadLocation(cfg.Engagement.Timezone) // checked by Validate
	d.Notifications = engagement.NewNotificationServiceWithPolicy(d.Store, cfg.Notifications,
		engagement.WithLocation(loc), engagement.WithLogger(log))
	opts := []engagement.Option{
		engagement.WithSettings(cfg.Engagement.Settings),
		engagement.WithLocation(loc),
		engagement.WithLogger(log),
		engagement.WithPublisher(pub),
		engagement.WithNotifications(d.Notifications),
	}
	d.Progress = engagement.NewProgressService(d.Store, opts...)
	d.Quests = engagement.NewQuestService(d.Store, opts...)
	d.Moods = engagement.NewMoodService(d.Store, opts...)

	// Sessions
	d.Identity, err = identity.NewService(d.Store, d.Progress, d.Keypair, identity.Config{
		AccessTTL:  parseDuration(cfg.Auth.AccessTTL, identity.DefaultConfig().AccessTTL),
		CacheSize:  cfg.Auth.TokenCacheSize,
		BcryptCost: cfg.Auth.BcryptCost,
	}, identity.WithPublisher(pub), identity.WithLogger(log))
	if err != nil {
		return nil, err
	}

	d.Health = health.NewChecker(d.Store, d.Store, dataDir,
		parseDuration(cfg.Telemetry.HealthInterval, 60*time.Second), log)
	d.Health.Register(health.Check{
		Name:    "event_bus",
		CheckFn: func(context.Context) error { return d.Breaker.Check() },
	})

	d.Server = api.NewServer(api.Deps{
		Identity:      d.Identity,
		Progress:      d.Progress,
		Quests:        d.Quests,
		Moods:         d.Moods,
		Notifications: d.Notifications,
		Hub:           d.Hub,
		Health:        d.Health,
		Logger:        log,
		CORSOrigins:   cfg.API.CORSOrigins,
	})
	if cfg.Telemetry.Prometheus {
		d.Server.EnableMetrics()
	}

	ok = true
	return d, nil
}

// openStore returns a nil interface on failure so Close can skip it.
func openStore(ctx context.Context, cfg StoreConfig, dataDir string) (Backend, error) {
	if cfg.Driver == "mongo" {
		s, err := mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	db, err := sqlite.Open(dataDir)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func openBus(ctx context.Context, log *logger.Logger, cfg EventsConfig) (events.Bus, error) {
	if cfg.Driver == "redis" {
		return events.NewRedisBus(ctx, log, cfg.RedisAddr, cfg.RedisChannel)
	}
	return events.NewMemoryBus(), nil
}

// Serve listens on the configured address and runs until ctx is
// cancelled, a signal arrives, or a worker fails.
func (d *Daemon) Serve(ctx context.Context) error {
	ln, err := d.Listen()
	if err != nil {
		return err
	}
	return d.ServeListener(ctx, ln)
}

// Listen binds the configured API address.
func (d *Daemon) Listen() (net.Listener, error) {
	addr := net.JoinHostPort(d.Config.API.Host, strconv.Itoa(d.Config.API.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return ln, nil
}

// ServeListener starts the HTTP server on ln plus the background workers
// and blocks until shutdown. Open event streams are closed on shutdown so
// it does not wait on them.
func (d *Daemon) ServeListener(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	defer cancel()

	// Events published by any node fan out to local stream subscribers.
	if err := d.Bus.StartForwarder(ctx, d.Hub.Broadcast); err != nil {
		ln.Close()
		return fmt.Errorf("start event forwarder: %w", err)
	}

	httpServer := &http.Server{
		Handler:           d.Server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       2 * time.Minute,
		// No WriteTimeout: event streams stay open.
	}
	httpServer.RegisterOnShutdown(d.Server.CloseStreams)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		d.Health.Run(gctx)
		return nil
	})

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			d.Log.Info("shutdown signal received", "signal", sig.String())
		case <-gctx.Done():
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		d.Log.Info("zennify serving",
			"addr", "http://"+ln.Addr().String(),
			"store", d.Config.Store.Driver,
			"events", d.Config.Events.Driver,
			"metrics", d.Config.Telemetry.Prometheus)
		if err := httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			cancel()
			return err
		}
		return nil
	})

	return g.Wait()
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.Bus != nil {
		if err := d.Bus.Close(); err != nil {
			d.Log.Warn("close event bus", "error", err)
		}
	}
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			d.Log.Warn("close store", "error", err)
		}
	}
	if d.Log != nil {
		d.Log.Sync()
	}
}
