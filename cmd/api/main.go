package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/richxcame/gigmarket/internal/accounts"
	"github.com/richxcame/gigmarket/internal/fraud"
	"github.com/richxcame/gigmarket/internal/gigs"
	"github.com/richxcame/gigmarket/internal/notifications"
	"github.com/richxcame/gigmarket/internal/orders"
	"github.com/richxcame/gigmarket/internal/payments"
	"github.com/richxcame/gigmarket/internal/reports"
	"github.com/richxcame/gigmarket/internal/riskai"
	"github.com/richxcame/gigmarket/pkg/config"
	"github.com/richxcame/gigmarket/pkg/database"
	"github.com/richxcame/gigmarket/pkg/eventbus"
	"github.com/richxcame/gigmarket/pkg/health"
	"github.com/richxcame/gigmarket/pkg/logger"
	"github.com/richxcame/gigmarket/pkg/ratelimit"
	"github.com/richxcame/gigmarket/pkg/redis"
	"github.com/richxcame/gigmarket/pkg/resilience"
	"github.com/richxcame/gigmarket/pkg/secrets"
	"github.com/richxcame/gigmarket/pkg/storage"
	"github.com/richxcame/gigmarket/pkg/tracing"
)

const (
	serviceName    = "trust-api"
	serviceVersion = "1.0.0"
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Server.Environment,
			Release:     serviceName + "@" + serviceVersion,
		}); err != nil {
			logger.Warn("Sentry init failed", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, serviceName, cfg.Server.Environment)
	if err != nil {
		logger.Fatal("Failed to init tracing", zap.Error(err))
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	if err := resolveSecrets(ctx, cfg); err != nil {
		logger.Fatal("Failed to resolve secrets", zap.Error(err))
	}

	pool, err := database.NewPostgresPool(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(pool)

	readiness := map[string]func() error{
		"database": health.PoolChecker(pool),
	}

	var (
		statusCache fraud.StatusCache
		limiter     *ratelimit.Limiter
	)
	redisClient, err := redis.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, running without status cache and rate limits", zap.Error(err))
	} else {
		defer redisClient.Close()
		statusCache = fraud.NewRedisStatusCache(redisClient.Client, cfg.Fraud.StatusCacheTTL())
		if cfg.RateLimit.Enabled {
			limiter = ratelimit.NewLimiter(redisClient.Client, cfg.RateLimit)
		}
		readiness["redis"] = health.RedisChecker(redisClient.Client)
	}

	var (
		publisher eventbus.Publisher = eventbus.NoopPublisher{}
		bus       *eventbus.Bus
	)
	if cfg.NATS.Enabled {
		bus, err = eventbus.New(cfg.NATS, serviceName)
		if err != nil {
			logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer bus.Close()
		publisher = bus
	}

	var evidence storage.Storage
	if cfg.Storage.Enabled {
		s3Store, err := storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			BaseURL:   cfg.Storage.BaseURL,
		})
		if err != nil {
			logger.Fatal("Failed to init evidence storage", zap.Error(err))
		}
		evidence = s3Store
	}

	// Accounts
	accountsService := accounts.NewService(accounts.NewRepository(pool), publisher)

	// Fraud
	fraudService := fraud.NewService(fraud.NewRepository(pool), statusCache, accountsService, publisher, cfg.Fraud.AutoSuspend)

	// Reports
	reportsService := reports.NewService(reports.NewRepository(pool), fraudService, accountsService, evidence, publisher)

	// AI risk
	var archive riskai.Archive
	if cfg.Mongo.Enabled {
		mongoArchive, mongoClient, err := riskai.NewMongoArchive(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			logger.Warn("AI assessment archive unavailable", zap.Error(err))
		} else {
			defer func() { _ = mongoClient.Disconnect(context.Background()) }()
			archive = mongoArchive
		}
	}

	var assessor riskai.Assessor
	if cfg.AI.Enabled && cfg.AI.APIKey != "" {
		assessor = riskai.NewChatCompletionsAssessor(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.Timeout())
	} else {
		logger.Warn("AI risk assessment disabled, using static assessor")
		assessor = &riskai.StubAssessor{}
	}
	riskService := riskai.NewService(riskai.NewRepository(pool), assessor, fraudService, archive, cfg.AI.Model)

	// Payments
	ordersRepo := orders.NewRepository(pool)
	var (
		paymentProcessor orders.PaymentProcessor
		paymentsService  *payments.Service
	)
	if cfg.Stripe.SecretKey != "" {
		stripeBreaker := resilience.NewCircuitBreaker(
			resilience.BuildSettings("stripe", 60, 30, 5, 1),
			resilience.GracefulDegradation("stripe"),
		)
		paymentsService = payments.NewService(payments.NewStripeClient(cfg.Stripe.SecretKey), stripeBreaker)
		paymentProcessor = paymentsService
	} else {
		logger.Warn("Stripe not configured, payments are not verified or refunded")
	}

	// Orders
	ordersService := orders.NewService(ordersRepo, paymentProcessor, riskService, publisher)

	if bus != nil {
		if paymentsService != nil {
			if err := payments.NewEventHandler(paymentsService, ordersRepo).RegisterSubscriptions(ctx, bus); err != nil {
				logger.Fatal("Failed to subscribe payments handler", zap.Error(err))
			}
		}
		notificationService := newNotificationService(cfg, notifications.NewRepository(pool))
		if err := notifications.NewEventHandler(notificationService).RegisterSubscriptions(ctx, bus); err != nil {
			logger.Fatal("Failed to subscribe notifications handler", zap.Error(err))
		}
	}

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(cfg, limiter, readiness,
		gigs.NewHandler(gigs.NewService(gigs.NewRepository(pool))),
		orders.NewHandler(ordersService),
		fraud.NewHandler(fraudService),
		reports.NewHandler(reportsService, limiter),
		riskai.NewHandler(riskService),
		accounts.NewHandler(accountsService),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Trust API starting", zap.String("port", cfg.Server.Port), zap.String("environment", cfg.Server.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down trust API")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Trust API stopped")
}

// resolveSecrets replaces credentials that name a *_SECRET_REF with the value
// held by the configured provider.
func resolveSecrets(ctx context.Context, cfg *config.Config) error {
	var manager *secrets.Manager
	if cfg.Secrets.Provider != "" {
		m, err := secrets.NewManager(ctx, secrets.Config{
			Provider: secrets.ProviderType(cfg.Secrets.Provider),
			CacheTTL: 5 * time.Minute,
			AWS:      secrets.AWSConfig{Region: cfg.Secrets.AWSRegion},
			Vault: secrets.VaultConfig{
				Address:   cfg.Secrets.VaultAddress,
				Token:     cfg.Secrets.VaultToken,
				MountPath: cfg.Secrets.VaultMount,
			},
			File: secrets.FileConfig{BasePath: cfg.Secrets.FilePath},
		})
		if err != nil {
			return err
		}
		manager = m
	}

	var err error
	if cfg.JWT.Secret, err = manager.Resolve(ctx, "jwt", cfg.JWT.SecretRef, cfg.JWT.Secret); err != nil {
		return err
	}
	if cfg.AI.APIKey, err = manager.Resolve(ctx, "ai", cfg.AI.APIKeyRef, cfg.AI.APIKey); err != nil {
		return err
	}
	if cfg.Stripe.SecretKey, err = manager.Resolve(ctx, "stripe", cfg.Stripe.SecretKeyRef, cfg.Stripe.SecretKey); err != nil {
		return err
	}
	return nil
}

func newNotificationService(cfg *config.Config, repo *notifications.Repository) *notifications.Service {
	n := cfg.Notifications

	var email notifications.EmailClientInterface
	if n.SendGridAPIKey != "" {
		email = notifications.NewEmailClient(n.SendGridAPIKey, n.EmailFromName, n.EmailFromAddress)
	}
	var sms notifications.TwilioClientInterface
	if n.TwilioAccountSID != "" && n.TwilioAuthToken != "" {
		sms = notifications.NewTwilioClient(n.TwilioAccountSID, n.TwilioAuthToken, n.TwilioFromNumber)
	}

	service := notifications.NewService(repo, sms, email)
	service.SetCircuitBreakers(
		resilience.NewCircuitBreaker(resilience.BuildSettings("twilio", 60, 30, 5, 1), resilience.GracefulDegradation("twilio")),
		resilience.NewCircuitBreaker(resilience.BuildSettings("sendgrid", 60, 30, 5, 1), resilience.GracefulDegradation("sendgrid")),
	)
	return service
}
