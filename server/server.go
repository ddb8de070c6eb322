// Package server wires the token endpoint, sign-out, the authorization
// endpoint and the reverse-proxy gateway onto an http.ServeMux behind shared
// middleware.
package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/fhhvr/auth-gateway/auth"
	"github.com/fhhvr/auth-gateway/internal/config"
	"github.com/fhhvr/auth-gateway/sessions"
	"github.com/fhhvr/auth-gateway/token"
)

type Server struct {
	env     string // Environment (e.g., "DEV", "production")
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	store   sessions.Store
	auth    *auth.Service
	metrics *metrics

	// upstream issues the gateway's forwarded requests. No client timeout:
	// request lifetime is bounded by the inbound request context.
	upstream *http.Client

	limiter *ipRateLimiter
}

func New(cfg config.Config, store sessions.Store) (*Server, error) {
	codec, err := token.NewCodec(cfg.GetAuthSecret())
	if err != nil {
		return nil, errors.Wrap(err, "[Server New] token codec")
	}

	authService, err := auth.NewService(store, codec)
	if err != nil {
		return nil, errors.Wrap(err, "[Server New] auth service")
	}

	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		store:    store,
		auth:     authService,
		metrics:  newMetrics(),
		upstream: &http.Client{},
		limiter:  newIPRateLimiter(defaultRateLimit, defaultRateBurst),
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Debug().Msg(fmt.Sprintf("[%-7s] %s", method, path))
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
