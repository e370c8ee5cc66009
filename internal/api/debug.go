package api

import (
	"net/http"
	"os"
	"time"

	"vrptw/internal/buildinfo"
)

// DebugJSON reports build info, host details and the effective configuration.
// Secrets are reported only as present or absent.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
	info := map[string]any{
		"build":  buildinfo.Info(),
		"system": s.System,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"solver": s.Catalog.Defaults,
		"config": map[string]any{
			"PORT":                      os.Getenv("PORT"),
			"RATE_RPS":                  os.Getenv("RATE_RPS"),
			"RATE_BURST":                os.Getenv("RATE_BURST"),
			"WEBHOOK_MAX_ATTEMPTS":      os.Getenv("WEBHOOK_MAX_ATTEMPTS"),
			"VRPTW_CONFIG":              os.Getenv("VRPTW_CONFIG"),
			"VRPTW_MAX_CONCURRENT_RUNS": os.Getenv("VRPTW_MAX_CONCURRENT_RUNS"),
			"HAS_DATABASE_URL":          os.Getenv("DATABASE_URL") != "",
			"HAS_REDIS_URL":             os.Getenv("REDIS_URL") != "",
		},
		"webhooks": map[string]int{
			"pending": s.Hooks.Pending(),
			"sent":    s.Hooks.Sent(),
			"dead":    len(s.Hooks.Dead()),
		},
	}
	writeJSON(w, http.StatusOK, info)
}
