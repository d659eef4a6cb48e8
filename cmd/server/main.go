package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/kevin07696/paygo-service/internal/adapters/acquirer"
	"github.com/kevin07696/paygo-service/internal/adapters/biometry"
	"github.com/kevin07696/paygo-service/internal/adapters/database"
	"github.com/kevin07696/paygo-service/internal/adapters/events"
	"github.com/kevin07696/paygo-service/internal/adapters/memory"
	"github.com/kevin07696/paygo-service/internal/adapters/postgres"
	"github.com/kevin07696/paygo-service/internal/adapters/secrets"
	"github.com/kevin07696/paygo-service/internal/api/rest"
	"github.com/kevin07696/paygo-service/internal/auth"
	cardnum "github.com/kevin07696/paygo-service/internal/card"
	"github.com/kevin07696/paygo-service/internal/config"
	"github.com/kevin07696/paygo-service/internal/domain/ports"
	"github.com/kevin07696/paygo-service/internal/jobs"
	adminService "github.com/kevin07696/paygo-service/internal/services/admin"
	cardService "github.com/kevin07696/paygo-service/internal/services/card"
	paymentService "github.com/kevin07696/paygo-service/internal/services/payment"
	terminalService "github.com/kevin07696/paygo-service/internal/services/terminal"
	userService "github.com/kevin07696/paygo-service/internal/services/user"
	pkghttp "github.com/kevin07696/paygo-service/pkg/http"
	"github.com/kevin07696/paygo-service/pkg/middleware"
	"github.com/kevin07696/paygo-service/pkg/observability"
	"github.com/kevin07696/paygo-service/pkg/resilience"
	"github.com/kevin07696/paygo-service/pkg/security"
	"github.com/kevin07696/paygo-service/pkg/shutdown"
	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := security.NewLogger(cfg.Environment, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
}

// repositories is the storage backend chosen by STORAGE_DRIVER
type repositories struct {
	transactions ports.TransactionRepository
	terminals    ports.TerminalRepository
	cards        ports.CardRepository
	users        ports.UserRepository
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting payment server",
		zap.String("version", version),
		zap.String("environment", cfg.Environment),
		zap.String("storage", cfg.Storage.Driver),
	)

	ctx := context.Background()
	clock := clockz.RealClock
	timeouts := resilience.DefaultTimeoutConfig()
	portLogger := security.NewZapLogger(logger)
	stopper := shutdown.NewManager(logger, cfg.Server.ShutdownTimeout)
	health := observability.NewHealthChecker()

	sm, err := secrets.New(ctx, secrets.Config{
		Backend:       cfg.Secrets.Backend,
		LocalPath:     cfg.Secrets.LocalPath,
		AWSRegion:     cfg.Secrets.AWSRegion,
		AWSProfile:    cfg.Secrets.AWSProfile,
		AWSEndpoint:   cfg.Secrets.AWSEndpoint,
		VaultAddress:  cfg.Secrets.VaultAddress,
		VaultToken:    cfg.Secrets.VaultToken,
		VaultRoleID:   cfg.Secrets.VaultRoleID,
		VaultSecretID: cfg.Secrets.VaultSecretID,
		VaultMount:    cfg.Secrets.VaultMount,
		CacheTTL:      cfg.Secrets.CacheTTL,
	}, logger)
	if err != nil {
		return fmt.Errorf("init secret manager: %w", err)
	}

	jwtSecret, err := secrets.Resolve(ctx, sm, cfg.Auth.SecretPath, cfg.Auth.Secret)
	if err != nil {
		return fmt.Errorf("resolve JWT secret: %w", err)
	}
	cardSecret, err := secrets.Resolve(ctx, sm, cfg.Cards.TokenSecretPath, cfg.Cards.TokenSecret)
	if err != nil {
		return fmt.Errorf("resolve card token secret: %w", err)
	}

	repos, err := initStorage(ctx, cfg, logger, stopper, health)
	if err != nil {
		return err
	}

	router, err := initAcquirers(ctx, cfg, sm, portLogger, clock, timeouts)
	if err != nil {
		return err
	}

	var publisher ports.EventPublisher = events.NewLogPublisher(portLogger)
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher := events.NewPublisher(events.Config{
			Brokers:  cfg.Kafka.Brokers,
			Topic:    cfg.Kafka.Topic,
			Attempts: cfg.Kafka.Attempts,
		}, portLogger, timeouts)
		stopper.RegisterCloser("kafka", kafkaPublisher)
		publisher = kafkaPublisher
		logger.Info("Publishing transaction events to Kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	tokens, err := auth.NewJWTManager([]byte(jwtSecret), cfg.Auth.Issuer, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL, clock)
	if err != nil {
		return fmt.Errorf("init token manager: %w", err)
	}

	cards, err := cardService.NewService(repos.cards, cardnum.NewTokenizer(cardSecret, clock), portLogger, clock)
	if err != nil {
		return fmt.Errorf("init card service: %w", err)
	}
	terminals := terminalService.NewService(repos.terminals, portLogger, clock, cfg.Server.StaleTerminal)
	payments := paymentService.NewService(paymentService.Dependencies{
		Transactions: repos.transactions,
		Terminals:    repos.terminals,
		Users:        repos.users,
		Cards:        repos.cards,
		Router:       router,
		Biometry:     biometry.NewTemplateVerifier(portLogger),
		Signatures:   biometry.AcceptAllSignatures{},
		Publisher:    publisher,
		Logger:       portLogger,
		Clock:        clock,
		Timeouts:     timeouts,
	})
	users := userService.NewService(userService.Dependencies{
		Users:        repos.users,
		Transactions: repos.transactions,
		Cards:        repos.cards,
		Tokens:       tokens,
		Logger:       portLogger,
		Clock:        clock,
	})
	admin := adminService.NewService(repos.users, repos.terminals, repos.transactions, repos.cards, clock)

	scheduler := jobs.NewScheduler(logger, timeouts)
	if err := jobs.Register(scheduler, jobs.Config{
		ExpirePendingSpec: cfg.Jobs.ExpirePending,
		SweepTerminalSpec: cfg.Jobs.SweepStale,
		ReapStuckSpec:     cfg.Jobs.ReapStuck,
	}, payments, terminals); err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	scheduler.Start()
	stopper.Register("scheduler", scheduler.Shutdown)

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.PerMinute > 0 {
		opts := []middleware.Option{middleware.WithMaxSize(cfg.RateLimit.MaxTracked)}
		if cfg.RateLimit.TrustProxy {
			opts = append(opts, middleware.WithTrustedProxy())
		}
		limiter = middleware.NewRateLimiter(float64(cfg.RateLimit.PerMinute)/60, cfg.RateLimit.Burst, opts...)
		stopper.RegisterNoErr("rate-limiter", limiter.Shutdown)
	}

	handler := rest.NewRouter(rest.Services{
		Payments:  payments,
		Cards:     cards,
		Terminals: terminals,
		Users:     users,
		Admin:     admin,
	}, tokens, logger, rest.Options{
		RateLimiter: limiter,
		Timeouts:    timeouts,
		Development: cfg.IsDevelopment(),
	})

	metricsServer := observability.StartMetricsServer(strconv.Itoa(cfg.Server.MetricsPort), health, logger)
	stopper.Register("metrics-server", func(context.Context) error {
		return observability.ShutdownMetricsServer(metricsServer)
	})
	logger.Info("Metrics server started", zap.Int("port", cfg.Server.MetricsPort))

	apiServer := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var serveErr error
	go func() {
		logger.Info("HTTP API listening", zap.String("addr", apiServer.Addr))
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP API failed", zap.Error(err))
			serveErr = err
			cancel()
		}
	}()
	stopper.RegisterHTTPServer("api", apiServer)

	stopErr := stopper.Wait(waitCtx)
	return errors.Join(serveErr, stopErr)
}

// initStorage opens the configured backend and registers its health check
// and shutdown hook
func initStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger, stopper *shutdown.Manager, health *observability.HealthChecker) (*repositories, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		logger.Warn("Using in-memory storage - data is lost on restart")
		store := memory.NewStore()
		return &repositories{
			transactions: store.Transactions(),
			terminals:    store.Terminals(),
			cards:        store.Cards(),
			users:        store.Users(),
		}, nil
	}

	dbCfg := database.DefaultPostgreSQLConfig(cfg.Storage.DatabaseURL)
	dbCfg.MaxConns = cfg.Storage.MaxConns
	dbCfg.MinConns = cfg.Storage.MinConns

	db, err := database.NewPostgreSQLAdapter(ctx, dbCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	stopper.RegisterNoErr("database", db.Close)

	if cfg.Storage.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	db.StartPoolMonitoring(monitorCtx, 30*time.Second)
	stopper.RegisterNoErr("pool-monitor", stopMonitor)
	health.AddCheck("database", db.HealthCheck)

	exec := postgres.NewDBExecutor(db.Pool())
	return &repositories{
		transactions: postgres.NewTransactionRepository(exec),
		terminals:    postgres.NewTerminalRepository(exec),
		cards:        postgres.NewCardRepository(exec),
		users:        postgres.NewUserRepository(exec),
	}, nil
}

// initAcquirers builds the bank backends over one shared HTTP client
func initAcquirers(ctx context.Context, cfg *config.Config, sm secrets.Manager, logger ports.Logger, clock clockz.Clock, timeouts *resilience.TimeoutConfig) (*acquirer.Router, error) {
	client := pkghttp.NewHTTPClient(pkghttp.AcquirerClientConfig(), timeouts.Acquirer+5*time.Second)
	opts := []acquirer.Option{
		acquirer.WithTimeouts(timeouts),
		acquirer.WithCircuitBreaker(acquirer.DefaultCircuitBreakerConfig()),
		acquirer.WithClock(clock),
	}

	resolve := func(name string, bank config.BankConfig) (acquirer.Config, error) {
		key, err := secrets.Resolve(ctx, sm, bank.APIKeyPath, bank.APIKey)
		if err != nil {
			return acquirer.Config{}, fmt.Errorf("resolve %s API key: %w", name, err)
		}
		return acquirer.Config{BaseURL: bank.BaseURL, APIKey: key, MerchantID: bank.MerchantID}, nil
	}

	vtb, err := resolve("VTB", cfg.Banks.VTB)
	if err != nil {
		return nil, err
	}
	alfa, err := resolve("Alfa", cfg.Banks.Alfa)
	if err != nil {
		return nil, err
	}
	centrinvest, err := resolve("Centrinvest", cfg.Banks.Centrinvest)
	if err != nil {
		return nil, err
	}
	sbp, err := resolve("SBP", cfg.Banks.SBP)
	if err != nil {
		return nil, err
	}

	return acquirer.NewRouter(
		acquirer.NewVTB(vtb, client, logger, opts...),
		acquirer.NewAlfa(alfa, client, logger, opts...),
		acquirer.NewCentrinvest(centrinvest, client, logger, opts...),
		acquirer.NewSBP(sbp, client, logger, opts...),
	), nil
}
