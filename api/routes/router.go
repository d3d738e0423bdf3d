package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/storefront"
	"github.com/angelmondragon/storefront-backend/internal/tracking"
	"github.com/angelmondragon/storefront-backend/pkg/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	devices *storefront.Registry,
	searchHistory controllers.SearchHistory,
	productCatalog controllers.ProductCatalog,
	policy checkout.Policy,
	ordersSvc orders.Service,
	carrier tracking.Carrier,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	signInPolicy := middleware.NewRateLimitPolicy(
		"sign_in",
		cfg.RateLimit.SignInWindow,
		cfg.RateLimit.SignInIPLimit,
		cfg.RateLimit.SignInDeviceLimit,
	)

	readiness := map[string]controllers.Pinger{"db": dbP}
	if redisClient != nil {
		readiness["redis"] = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ProductsList(productCatalog, logg))
		r.Get("/products/search", controllers.ProductsSearch(productCatalog, searchHistory, logg))
		r.Get("/products/{productId}", controllers.ProductDetail(productCatalog, logg))
		r.Get("/categories", controllers.Categories(productCatalog))
		r.Get("/tracking/{trackingNumber}", controllers.TrackingLookup(carrier, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Device(devices, logg))

			r.Get("/session", controllers.SessionCurrent(logg))
			r.With(middleware.RateLimit(signInPolicy, redisClient, logg)).Post("/session/sign-in", controllers.SessionSignIn(logg))
			r.Post("/session/sign-out", controllers.SessionSignOut(logg))

			r.Get("/cart", controllers.CartFetch(policy, logg))
			r.Delete("/cart", controllers.CartClear(policy, logg))
			r.Post("/cart/lines", controllers.CartAddLine(productCatalog, policy, logg))
			r.Put("/cart/lines", controllers.CartSetQuantity(policy, logg))
			r.Delete("/cart/lines", controllers.CartRemoveLine(policy, logg))

			r.Get("/search-history", controllers.SearchHistoryList(searchHistory, logg))
			r.Delete("/search-history", controllers.SearchHistoryClear(searchHistory, logg))

			r.With(middleware.Idempotency(redisClient, logg)).Post("/checkout", controllers.CheckoutPlaceOrder(ordersSvc, logg))
			r.Get("/orders", controllers.OrdersList(ordersSvc, logg))
			r.Get("/orders/{orderId}", controllers.OrderDetail(ordersSvc, logg))
		})
	})

	return r
}
