// Package main is the entry point for the App Store notification receiver.
//
// Startup:
//  1. Load and validate configuration (.env, environment).
//  2. Initialize the structured logger.
//  3. Load AWS SDK configuration when CloudWatch metrics or the failed
//     delivery queue are enabled.
//  4. Open the delivery log database when DATABASE_URL is set.
//  5. Build the formatter registry, DeliveryClient and dispatch Coordinator.
//  6. Mount the HTTP routes and serve them through lambda.Start (inside AWS
//     Lambda, Function URL events) or a standard HTTP server with graceful
//     shutdown.
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

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"iapnotify/internal/api"
	"iapnotify/internal/api/handlers"
	"iapnotify/internal/appstore"
	"iapnotify/internal/config"
	"iapnotify/internal/db"
	"iapnotify/internal/notifications/core"
	"iapnotify/internal/notifications/dispatch"
	"iapnotify/internal/notifications/webhook"
	"iapnotify/internal/types"
)

// slogAdapter wraps *slog.Logger to implement types.Logger. slog.Logger has
// the level methods already, but its With returns *slog.Logger.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.logger.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *slogAdapter) With(args ...any) types.Logger {
	return &slogAdapter{logger: a.logger.With(args...)}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	typedLogger := &slogAdapter{logger: logger}

	logger.Info("iapnotify starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"destinations", fmt.Sprint(webhook.NewRegistryFromConfig(cfg).Enabled()),
	)
	if !cfg.AnyDestinationEnabled() {
		logger.Warn("no destinations enabled; notifications will be accepted and dropped")
	}

	ctx := context.Background()

	srv, err := api.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	var coordOpts []dispatch.Option
	var metrics core.DeliveryMetrics = core.NopMetrics{}

	if cfg.Observability.MetricsEnabled || cfg.AWS.FailedDeliveryQueueURL != "" {
		awsCfg, err := loadAWSConfig(ctx, cfg.AWS)
		if err != nil {
			return fmt.Errorf("loading AWS config: %w", err)
		}
		if cfg.Observability.MetricsEnabled {
			metrics = core.NewCloudWatchDeliveryMetrics(
				cloudwatch.NewFromConfig(awsCfg), cfg.Observability.MetricNamespace, typedLogger)
			logger.Info("CloudWatch metrics enabled", "namespace", cfg.Observability.MetricNamespace)
		}
		if cfg.AWS.FailedDeliveryQueueURL != "" {
			publisher := core.NewSQSFailurePublisher(
				sqs.NewFromConfig(awsCfg), cfg.AWS.FailedDeliveryQueueURL, typedLogger)
			coordOpts = append(coordOpts, dispatch.WithFailurePublisher(publisher))
			logger.Info("failed deliveries will be published", "queue_url", cfg.AWS.FailedDeliveryQueueURL)
		}
	}
	coordOpts = append(coordOpts, dispatch.WithMetrics(metrics))

	if !cfg.Database.URL.IsZero() {
		pool, err := db.NewPool(ctx, cfg.Database.URL.Unmask(), cfg.Database.MaxConns)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		repo := db.NewDeliveryLogRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return fmt.Errorf("preparing delivery log: %w", err)
		}
		coordOpts = append(coordOpts, dispatch.WithDeliveryLog(repo))
		srv.HealthProbes = append(srv.HealthProbes, db.NewHealthProbe(pool))
		srv.Closers = append(srv.Closers, closerFunc(func() error {
			pool.Close()
			return nil
		}))
		logger.Info("delivery log enabled")
	}

	coordOpts = append(coordOpts, dispatch.WithDispatchTimeout(cfg.Delivery.DispatchTimeout))

	clientOpts := []webhook.ClientOption{webhook.WithUserAgent(cfg.Delivery.UserAgent)}
	if cfg.Delivery.BreakerEnabled {
		clientOpts = append(clientOpts, webhook.WithCircuitBreakers())
	}
	client := webhook.NewDeliveryClient(
		&http.Client{Timeout: cfg.Delivery.Timeout},
		retryPolicy(cfg.Delivery),
		typedLogger,
		clientOpts...,
	)

	coordinator := dispatch.NewCoordinator(webhook.NewRegistryFromConfig(cfg), client, typedLogger, coordOpts...)

	srv.Notifications = handlers.NewNotificationHandler(
		appstore.NewNormalizer(typedLogger),
		coordinator,
		metrics,
		cfg.General,
		typedLogger,
	)
	srv.MountRoutes()

	if isLambdaEnvironment() {
		logger.Info("starting in Lambda Function URL mode")
		lambda.Start(api.NewFunctionURLHandler(srv.Handler()))
		return nil
	}

	return runHTTPServer(srv, cfg, logger)
}

// retryPolicy maps the delivery config onto the backoff policy: retries wait
// RetryDelay, then double.
func retryPolicy(cfg config.DeliveryConfig) core.RetryPolicy {
	return core.RetryPolicy{
		MaxRetries:    cfg.RetryAttempts,
		BaseDelay:     cfg.RetryDelay,
		BackoffFactor: core.DefaultRetryPolicy.BackoffFactor,
	}
}

// loadAWSConfig loads the default credential chain for the configured region.
// A custom endpoint (LocalStack) overrides every service's base endpoint.
func loadAWSConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return aws.Config{}, err
	}
	if cfg.EndpointURL != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.EndpointURL)
	}
	return awsCfg, nil
}

// isLambdaEnvironment returns true if the process is running inside AWS Lambda.
func isLambdaEnvironment() bool {
	_, hasRuntimeAPI := os.LookupEnv("AWS_LAMBDA_RUNTIME_API")
	_, hasFunctionName := os.LookupEnv("AWS_LAMBDA_FUNCTION_NAME")
	return hasRuntimeAPI || hasFunctionName
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *api.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Dispatch waits out rate limits, so writes may take a while.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a JSON slog.Logger for the given level.
func newLogger(level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// closerFunc adapts a function to io.Closer.
type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var _ types.Logger = (*slogAdapter)(nil)
