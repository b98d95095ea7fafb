package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"kwlnk/cmd/internal/api"
)

func newRouter(log *slog.Logger, cfg Config, dbPool *pgxpool.Pool, h *api.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(withRequestID)
	if cfg.API.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(withRequestLogging(log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.ReadinessRequireDB && dbPool == nil {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}

		if dbPool != nil {
			if err := PingDB(r.Context(), dbPool, 2*time.Second); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				log.Info("readyz.db.not_ready", "err", err)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if h != nil {
		h.Register(r)
	}

	if cfg.OTELEndpoint != "" {
		return otelhttp.NewHandler(r, serviceName)
	}
	return r
}
