package handlers

import (
	"net/http"
	"sort"
	"time"
)

// Health reports liveness plus which generation providers this process has
// adapters for, so a misconfigured deploy shows up on the first probe.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	providers := append([]string(nil), a.Providers...)
	sort.Strings(providers)
	a.json(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"service":   "generation-pipeline",
		"providers": providers,
		"time":      time.Now().UTC().Format(time.RFC3339),
	})
}
