package handlers

import (
	"net/http"
)

// Health reports liveness plus database reachability, so load balancers can
// pull an instance whose pool has gone stale.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	if a.DB != nil {
		if err := a.DB.Ping(r.Context()); err != nil {
			a.Logger.Error().Err(err).Msg("handlers: health database ping failed")
			a.json(w, http.StatusServiceUnavailable, map[string]string{
				"status":   "degraded",
				"database": "unreachable",
			})
			return
		}
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
