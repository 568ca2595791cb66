package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/api/routes"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/auth"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/checkout"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/fees"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/ledger"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/notifications"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/orders"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/products"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/stores"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/topups"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/users"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/config"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/logger"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/mailer"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/metrics"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/migrate"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/payments"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/redis"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/whatsapp"
)

const webhookGuardTTL = 24 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	platformMetrics := metrics.NewPlatformMetrics(prometheus.DefaultRegisterer)

	// Notification senders are optional; without credentials the dispatcher
	// only writes dashboard rows.
	var emailSender notifications.EmailSender
	if mailClient, err := mailer.NewClient(cfg.Mail); err != nil {
		logg.Warn(context.Background(), "mail client not configured, email notifications disabled")
	} else {
		emailSender = mailClient
	}
	var textSender notifications.TextSender
	if waClient, err := whatsapp.NewClient(cfg.WhatsApp); err != nil {
		logg.Warn(context.Background(), "whatsapp client not configured, text notifications disabled")
	} else {
		textSender = waClient
	}
	paymentsClient, err := payments.NewClient(cfg.Payments)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments client", err)
		os.Exit(1)
	}
	webhookVerifier, err := payments.NewVerifier(cfg.Payments.WebhookSecret, cfg.Payments.WebhookTolerance)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook verifier", err)
		os.Exit(1)
	}
	webhookGuard, err := topups.NewIdempotencyGuard(redisClient, webhookGuardTTL, "payments")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	storeRepo := stores.NewRepository(gormDB)
	productRepo := products.NewRepository(gormDB)
	orderRepo := orders.NewRepository(gormDB)
	ledgerRepo := ledger.NewRepository(gormDB)
	feeRepo := fees.NewRepository(gormDB)
	notificationRepo := notifications.NewRepository(gormDB)

	notificationService, err := notifications.NewService(notifications.ServiceParams{
		Repo:   notificationRepo,
		Email:  emailSender,
		Text:   textSender,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(gormDB),
		StoresRepo:     storeRepo,
		Tx:             dbClient,
		PasswordConfig: cfg.Password,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	storeService, err := stores.NewService(storeRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create store service", err)
		os.Exit(1)
	}

	productService, err := products.NewService(productRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledgerRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	feeService, err := fees.NewService(fees.ServiceParams{
		Repo:       feeRepo,
		LedgerRepo: ledgerRepo,
		Tx:         dbClient,
		Platform:   cfg.Platform,
		Metrics:    platformMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create fee service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		OrderRepo:   orderRepo,
		ProductRepo: productRepo,
		StoreRepo:   storeRepo,
		Tx:          dbClient,
		Platform:    cfg.Platform,
		Notifier:    notificationService,
		Metrics:     platformMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:         orderRepo,
		StoreRepo:    storeRepo,
		Fees:         feeService,
		Notifier:     notificationService,
		Limiter:      redisClient,
		ConfirmLimit: cfg.ConfirmLimit,
		Tx:           dbClient,
		Logger:       logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	topupService, err := topups.NewService(topups.ServiceParams{
		LedgerRepo: ledgerRepo,
		Gateway:    paymentsClient,
		Tx:         dbClient,
		Platform:   cfg.Platform,
		Logger:     logg,
		Metrics:    platformMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create topup service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			platformMetrics,
			authService,
			storeService,
			productService,
			checkoutService,
			orderService,
			ledgerService,
			topupService,
			notificationService,
			webhookVerifier,
			webhookGuard,
		),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		timeout, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(timeout); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
