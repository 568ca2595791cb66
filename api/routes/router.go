package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/api/controllers"
	webhookcontrollers "github.com/Maqoba-Jiyane/kasi-flavors-sub000/api/controllers/webhooks"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/api/middleware"
	authsvc "github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/auth"
	checkoutsvc "github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/checkout"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/ledger"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/notifications"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/orders"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/products"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/stores"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/internal/topups"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/config"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/db"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/logger"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/metrics"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/payments"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	platformMetrics *metrics.PlatformMetrics,
	authService authsvc.Service,
	storeService stores.Service,
	productService products.Service,
	checkoutService checkoutsvc.Service,
	orderService orders.Service,
	ledgerService ledger.Service,
	topupService topups.Service,
	notificationService notifications.Service,
	webhookVerifier *payments.Verifier,
	webhookGuard *topups.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, platformMetrics),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payments", webhookcontrollers.PaymentsWebhook(topupService, webhookVerifier, webhookGuard, platformMetrics, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", controllers.AuthRegister(authService, logg))
		r.Post("/login", controllers.AuthLogin(authService, logg))
	})

	// Public storefront: no auth, addressed by store slug or tracking token.
	r.Route("/api/v1/stores", func(r chi.Router) {
		r.Get("/", controllers.StoresList(storeService, logg))
		r.Get("/{slug}", controllers.StoreBySlug(storeService, logg))
		r.Get("/{slug}/menu", controllers.StoreMenu(storeService, productService, logg))
		r.Post("/{slug}/checkout", controllers.Checkout(checkoutService, storeService, logg))
	})
	r.Get("/api/v1/orders/track/{token}", controllers.OrderTrack(orderService, logg))

	// Owner dashboard: everything below requires a token scoped to a store.
	r.Route("/api/v1/me", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireStore(logg))

		r.Route("/store", func(r chi.Router) {
			r.Get("/", controllers.StoreProfile(storeService, logg))
			r.Put("/", controllers.StoreUpdate(storeService, logg))
			r.Post("/open", controllers.StoreSetOpen(storeService, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductsList(productService, logg))
			r.Post("/", controllers.ProductCreate(productService, logg))
			r.Patch("/{productId}", controllers.ProductUpdate(productService, logg))
			r.Post("/{productId}/availability", controllers.ProductSetAvailability(productService, logg))
			r.Delete("/{productId}", controllers.ProductArchive(productService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(orderService, logg))
			r.Post("/", controllers.OrderCreateManual(checkoutService, logg))
			r.Get("/{orderId}", controllers.OrderByID(orderService, logg))
			r.Post("/{orderId}/status", controllers.OrderSetStatus(orderService, logg))
			r.Post("/{orderId}/confirm", controllers.OrderConfirm(orderService, logg))
		})

		r.Route("/ledger", func(r chi.Router) {
			r.Get("/balance", controllers.LedgerBalance(ledgerService, cfg.Platform.Currency, logg))
			r.Get("/entries", controllers.LedgerEntries(ledgerService, logg))
		})

		r.Route("/topups", func(r chi.Router) {
			r.Post("/", controllers.TopupInitiate(topupService, logg))
			r.Get("/required", controllers.TopupRequired(topupService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.NotificationsList(notificationService, logg))
			r.Post("/{notificationId}/read", controllers.NotificationMarkRead(notificationService, logg))
		})
	})

	return r
}
