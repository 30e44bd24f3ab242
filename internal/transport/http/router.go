// Package httptransport assembles the chi router from the module handlers.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	credentialhandler "idintake/internal/credential/handler"
	"idintake/internal/platform/metrics"
	"idintake/internal/platform/middleware"
	verificationhandler "idintake/internal/verification/handler"
	"idintake/pkg/platform/httputil"
	"idintake/pkg/platform/middleware/metadata"
	"idintake/pkg/platform/middleware/requestid"
	"idintake/pkg/platform/middleware/requesttime"
)

// HealthCheck probes one backing dependency.
type HealthCheck func(ctx context.Context) error

// Deps are the handlers and platform pieces the router mounts.
type Deps struct {
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
	Verification  *verificationhandler.Handler
	Credential    *credentialhandler.Handler
	InternalToken string
	HealthChecks  map[string]HealthCheck
}

// NewRouter wires every endpoint behind the shared middleware stack. The
// handler layer stays thin and delegates to the domain services.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestid.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(middleware.Recovery(d.Logger))
	r.Use(d.Metrics.Middleware)

	r.Get("/healthz", healthHandler(d.HealthChecks))
	r.Handle("/metrics", metrics.Handler())

	if d.Verification != nil {
		d.Verification.Register(r)
		r.Group(func(internal chi.Router) {
			internal.Use(middleware.RequireServiceToken(d.InternalToken, d.Logger))
			d.Verification.RegisterInternal(internal)
		})
	}
	if d.Credential != nil {
		d.Credential.Register(r)
	}
	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		failing := map[string]string{}
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				failing[name] = err.Error()
			}
		}
		if len(failing) > 0 {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":  "degraded",
				"failing": failing,
			})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
