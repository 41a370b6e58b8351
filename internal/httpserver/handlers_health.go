package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/lggm33/DUAD/pkg/responders"
)

// health reports liveness plus the state of the backing services. The
// database is required; a failed cache ping is reported but does not
// degrade the status because reads fall back to Postgres.
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	now := time.Now()
	status := "ok"
	statusCode := http.StatusOK

	checks := map[string]string{}
	if h.probes.Database != nil {
		if err := h.probes.Database(ctx); err != nil {
			h.logger.Warn().Err(err).Msg("health.database_unreachable")
			checks["database"] = "unreachable"
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	}
	if h.probes.Cache != nil {
		if err := h.probes.Cache(ctx); err != nil {
			checks["cache"] = "unreachable"
		} else {
			checks["cache"] = "ok"
		}
	}

	response := map[string]any{
		"status":    status,
		"uptime":    now.Sub(serverStartTime).String(),
		"timestamp": now.UTC(),
		"checks":    checks,
	}

	// Include route prefix for frontend discovery
	if h.cfg.Server.RoutePrefix != "" {
		response["routePrefix"] = h.cfg.Server.RoutePrefix
	}

	// Include enabled features
	features := []string{}
	if h.cfg.Monitor.Enabled {
		features = append(features, "stock-monitoring")
	}
	if h.cfg.Archive.Enabled {
		features = append(features, "sale-archival")
	}
	if h.cfg.Idempotency.Enabled {
		features = append(features, "idempotent-checkout")
	}
	if len(features) > 0 {
		response["features"] = features
	}

	responders.JSON(w, statusCode, response)
}
