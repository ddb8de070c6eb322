package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const readyCheckTimeout = 2 * time.Second

// HealthLive reports process liveness. It never touches dependencies.
func (s *Server) HealthLive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, http.StatusOK, "alive")
	}
}

// HealthReady reports readiness. If the session store can report
// connectivity, it is checked; otherwise readiness equals liveness.
func (s *Server) HealthReady() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pinger, ok := s.store.(interface{ Ping(context.Context) error })
		if !ok {
			writeHealth(w, http.StatusOK, "ready")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()
		if err := pinger.Ping(ctx); err != nil {
			log.Err(err).Msg("readiness check: session store unreachable")
			writeHealth(w, http.StatusServiceUnavailable, "session store unreachable")
			return
		}
		writeHealth(w, http.StatusOK, "ready")
	}
}

func writeHealth(w http.ResponseWriter, statusCode int, status string) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}
