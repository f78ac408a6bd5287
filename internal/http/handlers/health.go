package handlers

import (
	"net/http"
)

// Health is a liveness probe; it answers UP even while the store is still connecting.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	database := "ready"
	if !a.storeReady() {
		database = "connecting"
	}
	a.json(w, http.StatusOK, map[string]any{
		"status":   "UP",
		"uptime":   a.now().Sub(a.StartedAt).Seconds(),
		"database": database,
	})
}

// Ready is a readiness probe for load balancers.
func (a *App) Ready(w http.ResponseWriter, r *http.Request) {
	if !a.storeReady() {
		a.json(w, http.StatusServiceUnavailable, map[string]string{"status": "NOT_READY"})
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "READY"})
}

func (a *App) storeReady() bool {
	return a.Store == nil || a.Store.Ready()
}
