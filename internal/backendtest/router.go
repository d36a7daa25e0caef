package backendtest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SetupRouter настраивает HTTP-маршруты тестового бэкенда.
func (b *Backend) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(b.requestLogger)
	r.Use(b.injectFailures)

	r.Post("/users/register", b.Register)
	r.Post("/users/login", b.Login)

	r.Group(func(r chi.Router) {
		r.Use(b.auth.Middleware)

		r.Get("/users/search", b.SearchUsers)
		r.Get("/escrows/byUser", b.ListEscrows)
		r.Post("/escrow/create", b.CreateEscrow)
		r.Post("/escrow/fund", b.FundEscrow)
		r.Post("/escrow/milestone/release", b.ReleaseMilestone)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusMethodNotAllowed)
	})

	return r
}

// WithLogger задаёт логгер запросов.
func (b *Backend) WithLogger(l *zap.Logger) *Backend {
	b.logger = l
	return b
}

func (b *Backend) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status, ok := b.takeFailure(r.URL.Path); ok {
			writeStatus(w, status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		b.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", r.Header.Get("X-Request-ID")),
			zap.Duration("latency", time.Since(start)),
		)
	})
}
