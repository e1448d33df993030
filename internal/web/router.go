package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

var defaultCorsOptions = cors.Options{
	AllowedOrigins: []string{"*"},
	AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
	ExposedHeaders: []string{RequestIDHeader},
	MaxAge:         300,
}

// Option configures the router.
type Option func(*routerConfig)

type routerConfig struct {
	logger *zap.Logger
	now    func() time.Time
	cors   cors.Options
}

// WithLogger sets the request and error logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *routerConfig) {
		c.logger = logger
	}
}

// WithClock overrides the clock used for the form's default date.
func WithClock(now func() time.Time) Option {
	return func(c *routerConfig) {
		c.now = now
	}
}

// WithCors replaces the CORS policy applied to /api.
func WithCors(options cors.Options) Option {
	return func(c *routerConfig) {
		c.cors = options
	}
}

// NewRouter builds the handler tree for the web UI and JSON API.
func NewRouter(service InvoiceService, options ...Option) http.Handler {
	cfg := routerConfig{
		logger: zap.NewNop(),
		now:    time.Now,
		cors:   defaultCorsOptions,
	}
	for _, o := range options {
		o(&cfg)
	}

	h := &handlers{service: service, now: cfg.now}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(newLoggerMiddleware(cfg.logger))
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/", handlerFunc(h.index))
	r.Method(http.MethodGet, "/healthz", handlerFunc(healthz))
	r.Method(http.MethodPost, "/generate_invoice", handlerFunc(h.generateForm))
	r.Method(http.MethodGet, "/download/{filename}", handlerFunc(h.download))

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cfg.cors))
		r.Method(http.MethodPost, "/generate", handlerFunc(h.apiGenerate))
		r.Method(http.MethodGet, "/words/{amount}", handlerFunc(h.amountInWords))
	})

	return r
}
