package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medreza/bookstore-voucher-service/pkg/cache"
	"github.com/medreza/bookstore-voucher-service/pkg/config"
	"github.com/medreza/bookstore-voucher-service/pkg/database"
	"github.com/medreza/bookstore-voucher-service/pkg/handlers"
	"github.com/medreza/bookstore-voucher-service/pkg/models"
	"github.com/medreza/bookstore-voucher-service/pkg/notification"
	"github.com/medreza/bookstore-voucher-service/pkg/payment"
	"github.com/medreza/bookstore-voucher-service/pkg/ratelimit"
	"github.com/medreza/bookstore-voucher-service/pkg/repository"
	"github.com/medreza/bookstore-voucher-service/pkg/retry"
	"github.com/medreza/bookstore-voucher-service/pkg/voucher"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API (default)",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := database.InitDB(ctx, cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	notificationLog, closeLog, err := newNotificationLog(ctx, cfg, pool)
	if err != nil {
		return err
	}
	defer closeLog()

	router := handlers.NewRouter(
		handlers.NewVoucherHandler(newVoucherService(cfg, pool)),
		handlers.NewNotificationHandler(newDispatcher(cfg, notificationLog)),
		handlers.NewCheckoutHandler(newCheckout(cfg, pool)),
	)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("port", cfg.Port).Info("Server: Starting service")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start service: %w", err)
	case <-quit:
	}
	logrus.Info("Server: Shutting down service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("service forced to shutdown: %w", err)
	}

	logrus.Info("Server: Service exited")
	return nil
}

func retryOptions(cfg *config.Config) []retry.Option {
	return []retry.Option{
		retry.WithMaxRetries(cfg.RetryMaxRetries),
		retry.WithBaseDelay(cfg.RetryBaseDelay),
	}
}

func newVoucherService(cfg *config.Config, pool *pgxpool.Pool) *voucher.Service {
	var store ratelimit.Store = repository.NewRateLimitRepository(pool)
	if cfg.RateLimitBackend == config.BackendMemory {
		store = ratelimit.NewMemoryStore()
	}
	limiter := ratelimit.New(store, ratelimit.WithLimit(cfg.RateLimitMaxRequests, cfg.RateLimitWindow))

	return voucher.NewService(
		repository.NewVoucherRepository(pool),
		repository.NewSalesAgentRepository(pool),
		limiter,
		voucher.WithCache(cache.New[models.Voucher](cfg.VoucherCacheTTL)),
	)
}

func newNotificationLog(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (notification.LogStore, func(), error) {
	if cfg.NotificationLogBackend != config.BackendMongo {
		return repository.NewNotificationRepository(pool), func() {}, nil
	}

	client, err := repository.ConnectMongo(ctx, cfg.MongoURL)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			logrus.WithError(err).Warn("Server: Failed to disconnect from mongodb")
		}
	}
	return repository.NewMongoNotificationRepository(client.Database(cfg.MongoDatabase)), closeFn, nil
}

func newDispatcher(cfg *config.Config, log notification.LogStore) *notification.Dispatcher {
	sender := notification.NewOneSignal(cfg.OneSignalAppID, cfg.OneSignalRESTKey, cfg.OneSignalBaseURL)
	return notification.NewDispatcher(sender, log, retryOptions(cfg)...)
}

func newCheckout(cfg *config.Config, pool *pgxpool.Pool) *payment.Checkout {
	providers := []payment.Provider{
		payment.NewStripe(cfg.StripeSecretKey, cfg.StripeSuccessURL, cfg.StripeCancelURL),
		payment.NewPaystack(cfg.PaystackSecretKey, cfg.PaystackCallbackURL, cfg.PaystackBaseURL),
	}
	return payment.NewCheckout(repository.NewPaymentGatewayRepository(pool), cfg.DefaultCurrency, providers, retryOptions(cfg)...)
}
