package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	// RateLimit is requests per minute per client IP; 0 disables limiting.
	RateLimit   int
	CORSOrigins []string
}

func NewRouter(cfg RouterConfig, products ProductManager, carts CartManager) http.Handler {
	productHandler := NewProductHandler(products, cfg.RequestTimeout)
	cartHandler := NewCartHandler(carts, cfg.RequestTimeout)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id", "Retry-After"},
		MaxAge:         300,
	}))
	if cfg.RateLimit > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimit, time.Minute))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
		r.Use(MaxBodySize(cfg.MaxBodyBytes))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.Post("/", productHandler.Create)
			r.Get("/{pid}", productHandler.Get)
			r.Put("/{pid}", productHandler.Update)
			r.Patch("/{pid}", productHandler.Patch)
			r.Delete("/{pid}", productHandler.Delete)
		})
		r.Route("/carts", func(r chi.Router) {
			r.Post("/", cartHandler.CreateCart)
			r.Get("/{cid}", cartHandler.GetItems)
			r.Post("/{cid}/product/{pid}", cartHandler.AddProduct)
		})
	})

	return r
}
