package http

import (
	"net/http"
	"time"

	"github.com/pandamarket/market/internal/market/store"
	"github.com/pandamarket/market/pkg/httpx"
)

// ReadyzHandler reports readiness: alive and able to reach the database.
func ReadyzHandler(startTime time.Time, version string, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, code, healthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}
