package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/gorilla/securecookie"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/clickora/storefront/internal/blog"
	"github.com/clickora/storefront/internal/catalog"
	"github.com/clickora/storefront/internal/handlers"
	"github.com/clickora/storefront/internal/notifications"
	"github.com/clickora/storefront/internal/platform/config"
	pfirestore "github.com/clickora/storefront/internal/platform/firestore"
	"github.com/clickora/storefront/internal/platform/kvstore"
	"github.com/clickora/storefront/internal/platform/observability"
	"github.com/clickora/storefront/internal/platform/secrets"
	"github.com/clickora/storefront/internal/platform/session"
	"github.com/clickora/storefront/internal/services"
)

type closer func()

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	bootLevel, _, _ := config.Lookup("LOG_LEVEL")
	baseLogger, err := observability.NewLogger(bootLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("storefront")

	fetcher, err := newSecretFetcher(ctx, logger)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx, config.WithSecretResolver(fetcher))
	if err != nil {
		var invalid *config.ValidationError
		if errors.As(err, &invalid) {
			logger.Fatal("invalid configuration", zap.Strings("fields", invalid.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	store, readiness, closeStore, err := newKVStore(ctx, logger, cfg)
	if err != nil {
		logger.Fatal("failed to initialise persistence backend", zap.Error(err), zap.String("backend", cfg.Storage.Backend))
	}
	defer closeStore()

	sink, closeSink, err := newNotificationSink(ctx, logger, cfg)
	if err != nil {
		logger.Fatal("failed to initialise notification sink", zap.Error(err))
	}
	defer closeSink()

	products, err := catalog.Load(cfg.Catalog.ProductsFile)
	if err != nil {
		logger.Fatal("failed to load catalog", zap.Error(err), zap.String("path", cfg.Catalog.ProductsFile))
	}
	posts, err := blog.Load()
	if err != nil {
		logger.Fatal("failed to load blog posts", zap.Error(err))
	}

	processor := services.NewSimulatedOrderProcessor(services.SimulatedOrderProcessorDeps{
		Delay: cfg.Simulation.OrderDelay,
	})
	registry, err := services.NewSessionRegistry(services.SessionRegistryDeps{
		Store:       kvstore.Scoped(store, cfg.Storage.KeyPrefix),
		Catalog:     products,
		Notifier:    sink,
		Processor:   processor,
		Logger:      logger.Named("sessions"),
		AuthDelay:   cfg.Simulation.AuthDelay,
		IdleTimeout: cfg.Session.IdleTimeout,
		PageSize:    cfg.Catalog.PageSize,
	})
	if err != nil {
		logger.Fatal("failed to initialise session registry", zap.Error(err))
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		registry.Run(sweepCtx, cfg.Session.SweepInterval)
	}()

	manager, err := newSessionManager(logger, cfg)
	if err != nil {
		logger.Fatal("failed to initialise session manager", zap.Error(err))
	}

	projectID := cfg.Firestore.ProjectID
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
	}

	healthOpts := []handlers.HealthOption{
		handlers.WithHealthBuildInfo(buildInfo(cfg, startedAt)),
	}
	if readiness != nil {
		healthOpts = append(healthOpts, handlers.WithReadinessCheck(cfg.Storage.Backend, readiness))
	}
	healthHandlers := handlers.NewHealthHandlers(healthOpts...)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithSessionMiddlewares(handlers.SessionMiddleware(manager)),
		handlers.WithProductRoutes(handlers.NewCatalogHandlers(products, registry).Routes),
		handlers.WithCartRoutes(handlers.NewCartHandlers(products, registry).Routes),
		handlers.WithWishlistRoutes(handlers.NewWishlistHandlers(products, registry).Routes),
		handlers.WithAuthRoutes(handlers.NewAuthHandlers(registry, manager).Routes),
		handlers.WithProfileRoutes(handlers.NewProfileHandlers(registry).Routes),
		handlers.WithCheckoutRoutes(handlers.NewCheckoutHandlers(registry).Routes),
		handlers.WithBlogRoutes(handlers.NewBlogHandlers(posts).Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("clickora storefront listening",
			zap.String("environment", cfg.Environment),
			zap.String("storage", cfg.Storage.Backend),
			zap.Int("products", products.Len()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	stopSweep()
	<-sweepDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		value, _, err := config.Lookup(key)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(value)
	}

	opts := []secrets.Option{secrets.WithLogger(logger.Named("secrets"))}
	project := lookup("STOREFRONT_SECRET_PROJECT_ID")
	if project == "" {
		project = lookup("GOOGLE_CLOUD_PROJECT")
	}
	if project != "" {
		opts = append(opts, secrets.WithProject(project))
	} else {
		opts = append(opts, secrets.WithRemote(false))
	}
	if path := lookup("STOREFRONT_SECRET_FALLBACK_FILE"); path != "" {
		opts = append(opts, secrets.WithFallbackFile(path))
	}
	return secrets.NewFetcher(ctx, opts...)
}

func newKVStore(ctx context.Context, logger *zap.Logger, cfg config.Config) (kvstore.Store, handlers.ReadinessCheck, closer, error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store, err := kvstore.NewRedisStore(client)
		if err != nil {
			_ = client.Close()
			return nil, nil, nil, err
		}
		if err := store.Ping(ctx, 5, 500*time.Millisecond); err != nil {
			_ = client.Close()
			return nil, nil, nil, err
		}
		check := func(ctx context.Context) error { return client.Ping(ctx).Err() }
		return store, check, func() {
			if err := client.Close(); err != nil {
				logger.Warn("redis close error", zap.Error(err))
			}
		}, nil
	case config.StorageBackendFirestore:
		provider := pfirestore.NewProvider(cfg.Firestore)
		client, err := provider.Client(ctx)
		if err != nil {
			return nil, nil, nil, err
		}
		store, err := kvstore.NewFirestoreStore(client, kvstore.WithCollection(cfg.Firestore.Collection))
		if err != nil {
			_ = provider.Close()
			return nil, nil, nil, err
		}
		check := func(ctx context.Context) error {
			_, err := store.Get(ctx, "readiness-probe")
			if errors.Is(err, kvstore.ErrNotFound) {
				return nil
			}
			return err
		}
		return store, check, func() {
			if err := provider.Close(); err != nil {
				logger.Warn("firestore close error", zap.Error(err))
			}
		}, nil
	default:
		logger.Warn("using in-memory persistence; shopper state is lost on restart")
		return kvstore.NewMemoryStore(), nil, func() {}, nil
	}
}

func newNotificationSink(ctx context.Context, logger *zap.Logger, cfg config.Config) (services.Notifier, closer, error) {
	notifiers := []services.Notifier{notifications.NewLogNotifier(logger)}
	var closers []closer
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if topicName := strings.TrimSpace(cfg.Notifications.PubSubTopic); topicName != "" {
		client, err := pubsub.NewClient(ctx, cfg.Notifications.PubSubProjectID)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("pubsub client: %w", err)
		}
		topic := client.Topic(topicName)
		notifier, err := notifications.NewPubSubNotifier(topic, logger)
		if err != nil {
			_ = client.Close()
			closeAll()
			return nil, nil, err
		}
		notifiers = append(notifiers, notifier)
		closers = append(closers, func() {
			topic.Stop()
			if err := client.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		})
	}

	if len(cfg.Notifications.KafkaBrokers) > 0 {
		writer, err := notifications.NewKafkaWriter(cfg.Notifications.KafkaBrokers, cfg.Notifications.KafkaTopic)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		notifier, err := notifications.NewKafkaNotifier(writer, logger)
		if err != nil {
			_ = writer.Close()
			closeAll()
			return nil, nil, err
		}
		notifiers = append(notifiers, notifier)
		closers = append(closers, func() {
			if err := notifier.Close(); err != nil {
				logger.Warn("kafka close error", zap.Error(err))
			}
		})
	}

	return notifications.Fanout(notifiers...), closeAll, nil
}

func newSessionManager(logger *zap.Logger, cfg config.Config) (*session.Manager, error) {
	hashKey := []byte(cfg.Session.HashKey)
	tokenSecret := []byte(cfg.Session.TokenSecret)
	if len(hashKey) == 0 {
		logger.Warn("session hash key not configured; generating an ephemeral key")
		hashKey = securecookie.GenerateRandomKey(32)
	}
	if len(tokenSecret) == 0 {
		logger.Warn("session token secret not configured; generating an ephemeral secret")
		tokenSecret = securecookie.GenerateRandomKey(32)
	}
	return session.NewManager(session.Config{
		CookieName:   cfg.Session.CookieName,
		CookieSecure: cfg.Session.CookieSecure,
		HashKey:      hashKey,
		BlockKey:     []byte(cfg.Session.BlockKey),
		TokenSecret:  tokenSecret,
		TokenTTL:     cfg.Session.TokenTTL,
	})
}

func buildInfo(cfg config.Config, started time.Time) handlers.BuildInfo {
	version, _, _ := config.Lookup("STOREFRONT_BUILD_VERSION")
	commit, _, _ := config.Lookup("STOREFRONT_BUILD_COMMIT_SHA")
	version = strings.TrimSpace(version)
	if version == "" {
		version = "dev"
	}
	commit = strings.TrimSpace(commit)
	if commit == "" {
		commit = "unknown"
	}
	return handlers.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: cfg.Environment,
		StartedAt:   started,
	}
}
