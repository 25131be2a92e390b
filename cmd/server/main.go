package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/contactkeeper/backend/internal/api"
	"github.com/contactkeeper/backend/internal/auth"
	"github.com/contactkeeper/backend/internal/cache"
	"github.com/contactkeeper/backend/internal/config"
	"github.com/contactkeeper/backend/internal/contacts"
	"github.com/contactkeeper/backend/internal/db"
	"github.com/contactkeeper/backend/internal/github"
	"github.com/contactkeeper/backend/internal/health"
	"github.com/contactkeeper/backend/internal/logger"
	"github.com/contactkeeper/backend/internal/memstore"
	"github.com/contactkeeper/backend/internal/metrics"
	"github.com/contactkeeper/backend/internal/mongostore"
	"github.com/contactkeeper/backend/internal/storage"
)

// stores is the selected storage backend.
type stores struct {
	users    auth.UserRepository
	contacts contacts.Repository
	check    health.CheckFunc
	close    func(context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error(context.Background(), "invalid configuration", err)
		os.Exit(1)
	}

	log := logger.New(os.Stdout, logger.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	logger.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error(context.Background(), "server exited", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close(context.Background())

	components := []health.Component{{Name: "store", Check: st.check, Critical: true}}

	authSvc := auth.NewService(st.users, auth.NewIssuer(cfg.JWTSecret, cfg.TokenExpiry), cfg.BcryptCost)
	contactSvc := contacts.NewService(st.contacts)

	var ghCache github.Cache
	if cfg.CacheEnabled() {
		c, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			// The cache is optional; run without it.
			log.Warn(ctx, "redis unavailable, caching disabled", "addr", cfg.RedisAddr, "error", err.Error())
		} else {
			defer c.Close()
			c.WithMetrics(m)
			authSvc.WithProfileCache(c, cfg.ProfileCacheTTL)
			ghCache = c
			components = append(components, health.Component{Name: "cache", Check: health.RedisCheck(c.Client())})
		}
	}

	if cfg.ExportEnabled() {
		sc, err := storage.New(&storage.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return err
		}
		if err := sc.EnsureBucket(ctx); err != nil {
			log.Warn(ctx, "export bucket not ready", "bucket", sc.Bucket(), "error", err.Error())
		}
		contactSvc.WithExporter(sc, cfg.ExportURLTTL)
		components = append(components, health.Component{Name: "storage", Check: sc.Ping})
	}

	ghClient := github.NewClient(github.Config{
		BaseURL:      cfg.GitHubBaseURL,
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		CacheTTL:     cfg.GitHubCacheTTL,
	}, ghCache, m)

	router := api.NewRouter(api.Deps{
		AuthService:     authSvc,
		AuthHandlers:    auth.NewHandlers(authSvc, m, log),
		ContactHandlers: contacts.NewHandlers(contactSvc, m, log),
		GitHubHandlers:  github.NewHandlers(ghClient),
		Health: health.NewHandler(health.NewChecker(&health.CheckerConfig{
			Components: components,
			Version:    cfg.Version,
		})),
		Metrics:        m,
		Logger:         log,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting server", "addr", cfg.ServerAddr, "store", cfg.StoreDriver, "version", cfg.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		ms, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return &stores{users: ms.Users(), contacts: ms.Contacts(), check: ms.Ping, close: ms.Close}, nil

	case config.DriverMemory:
		log.Warn(ctx, "using in-memory store, data is lost on restart")
		cr := memstore.NewContactRepository()
		return &stores{
			users:    memstore.NewUserRepository(),
			contacts: cr,
			check:    cr.Ping,
			close:    func(context.Context) error { return nil },
		}, nil

	default:
		database, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, err
		}
		return &stores{
			users:    db.NewUserRepository(database),
			contacts: db.NewContactRepository(database),
			check:    health.SQLCheck(database.DB),
			close:    func(context.Context) error { return database.Close() },
		}, nil
	}
}
