package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"google.golang.org/grpc/credentials"

	"github.com/bibbank/debitcard/internal/application/usecase"
	"github.com/bibbank/debitcard/internal/infrastructure/config"
	"github.com/bibbank/debitcard/internal/infrastructure/kafka"
	"github.com/bibbank/debitcard/internal/infrastructure/postgres"
	"github.com/bibbank/debitcard/internal/infrastructure/remote"
	"github.com/bibbank/debitcard/internal/infrastructure/telemetry"
	grpcpresentation "github.com/bibbank/debitcard/internal/presentation/grpc"
	"github.com/bibbank/debitcard/internal/presentation/rest"
	"github.com/bibbank/debitcard/pkg/auth"
	pkgkafka "github.com/bibbank/debitcard/pkg/kafka"
	"github.com/bibbank/debitcard/pkg/observability"
	pkgpostgres "github.com/bibbank/debitcard/pkg/postgres"
	"github.com/bibbank/debitcard/pkg/tlsutil"
)

func main() {
	if err := run(); err != nil {
		slog.Error("debitcard-service failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load()

	logger := observability.InitLogger(observability.LogConfig{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: cfg.ServiceName,
		Version:     cfg.Version,
	})

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Info("starting debitcard-service",
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
	)

	// Tracing is optional.
	if cfg.Tracing.Endpoint != "" {
		shutdown, err := observability.InitTracer(ctx, observability.TracingConfig{
			ServiceName: cfg.ServiceName,
			Endpoint:    cfg.Tracing.Endpoint,
			Insecure:    cfg.Tracing.Insecure,
		})
		if err != nil {
			logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	meterProvider, metricsHandler, err := observability.InitMetrics(observability.MetricsConfig{ServiceName: cfg.ServiceName})
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() { _ = meterProvider.Shutdown(context.Background()) }()

	metrics, err := telemetry.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return fmt.Errorf("init business metrics: %w", err)
	}

	// Database connection.
	dbCfg := pkgpostgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		ApplicationName: cfg.ServiceName,
		MaxConns:        int32(cfg.Database.MaxConns),
	}

	dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := pkgpostgres.NewPool(dbCtx, dbCfg)
	dbCancel()
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to database")

	if err := pkgpostgres.RunMigrations(dbCfg.DSN(), cfg.Database.MigrationsURL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// Kafka.
	producer := pkgkafka.NewProducer(pkgkafka.Config{
		ClientID:   cfg.Kafka.ClientID,
		Brokers:    cfg.Kafka.Brokers,
		RequireAll: true,
	})
	defer func() {
		if err := producer.Close(); err != nil {
			logger.Error("failed to close kafka producer", "error", err)
		}
	}()
	eventPublisher := kafka.NewEventPublisher(producer, logger)

	// Remote services.
	var clientCreds credentials.TransportCredentials
	if cfg.Remote.CAFile != "" {
		if clientCreds, err = tlsutil.ClientCredentials(cfg.Remote.CAFile); err != nil {
			return err
		}
	}
	breakerCfg := remote.DefaultBreakerConfig()
	breakerCfg.ConsecutiveFailures = uint32(cfg.Remote.BreakerFailures)
	breakerCfg.Timeout = cfg.Remote.BreakerOpenTimeout
	accountBreaker := remote.NewBreaker("account-service", breakerCfg, logger)
	transactionBreaker := remote.NewBreaker("transaction-service", breakerCfg, logger)

	accountConn, err := remote.Dial(remote.ConnConfig{
		Name:    "account-service",
		Addr:    cfg.Remote.AccountServiceAddr,
		Creds:   clientCreds,
		Timeout: cfg.Remote.CallTimeout,
	}, accountBreaker, logger)
	if err != nil {
		return err
	}
	defer accountConn.Close()

	transactionConn, err := remote.Dial(remote.ConnConfig{
		Name:    "transaction-service",
		Addr:    cfg.Remote.TransactionServiceAddr,
		Creds:   clientCreds,
		Timeout: cfg.Remote.CallTimeout,
	}, transactionBreaker, logger)
	if err != nil {
		return err
	}
	defer transactionConn.Close()

	accounts := remote.NewAccountClient(accountConn)
	transactions := remote.NewTransactionClient(transactionConn)

	// Use cases.
	cardRepo := postgres.NewCardRepository(pool)
	eventNotifier := usecase.NewEventNotifier(eventPublisher, cfg.Kafka.PrimaryAccountTopic, cfg.Kafka.PublishTimeout, logger)

	handler := grpcpresentation.NewDebitCardHandler(grpcpresentation.UseCases{
		RegisterCard: usecase.NewRegisterCardUseCase(cardRepo, eventPublisher, cfg.Kafka.CardEventsTopic, logger),
		UpdateCard:   usecase.NewUpdateCardUseCase(cardRepo, eventPublisher, cfg.Kafka.CardEventsTopic, logger),
		DeleteCard:   usecase.NewDeleteCardUseCase(cardRepo),
		GetCard:      usecase.NewGetCardUseCase(cardRepo),
		ListCards:    usecase.NewListCardsUseCase(cardRepo),
		AssociateConfirmed: usecase.NewAssociatePrimaryAccountUseCase(
			cardRepo, accounts, usecase.NewConfirmingNotifier(accounts, cfg.Remote.CallTimeout), usecase.PathConfirmed, metrics, logger),
		AssociateEventual: usecase.NewAssociatePrimaryAccountUseCase(
			cardRepo, accounts, eventNotifier, usecase.PathEventual, metrics, logger),
		GetPrimaryBalance: usecase.NewGetPrimaryAccountBalanceUseCase(cardRepo, accounts),
		PayWithCard:       usecase.NewPayWithCardUseCase(cardRepo, accounts, transactions, metrics, cfg.Payment.Concurrency, logger),
	}, logger)

	// JWT validation: public key preferred, secret as fallback.
	jwtCfg := auth.JWTConfig{Issuer: cfg.Auth.Issuer, Secret: cfg.Auth.Secret, PublicKeyPEM: cfg.Auth.PublicKeyPEM}
	if jwtCfg.PublicKeyPEM == "" && cfg.Auth.PublicKeyFile != "" {
		if jwtCfg.PublicKeyPEM, err = auth.LoadKeyFromFile(cfg.Auth.PublicKeyFile); err != nil {
			return fmt.Errorf("load JWT public key: %w", err)
		}
	}
	validator, err := auth.NewValidator(jwtCfg)
	if err != nil {
		return fmt.Errorf("init JWT validator: %w", err)
	}

	var serverCreds credentials.TransportCredentials
	if cfg.TLS.CertFile != "" {
		if serverCreds, err = tlsutil.ServerCredentials(cfg.TLS.CertFile, cfg.TLS.KeyFile); err != nil {
			return err
		}
	}
	grpcServer := grpcpresentation.NewServer(handler, validator, serverCreds, logger)

	// HTTP server (health checks and metrics).
	httpMux := http.NewServeMux()
	rest.NewHealthHandler(pool, logger, accountBreaker, transactionBreaker).RegisterRoutes(httpMux)
	httpMux.Handle("GET /metrics", metricsHandler)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           httpMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)

	go func() {
		if err := grpcServer.Start(cfg.GRPCAddr()); err != nil {
			errCh <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	go func() {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	logger.Info("debitcard-service is running",
		"grpc_addr", cfg.GRPCAddr(),
		"http_addr", cfg.HTTPAddr(),
	)

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case serveErr = <-errCh:
		logger.Error("server error", "error", serveErr)
	}

	// Graceful shutdown.
	grpcServer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	// Let in-flight primary account events reach the broker before the
	// producer closes.
	eventNotifier.Wait()

	logger.Info("debitcard-service stopped")
	return serveErr
}
