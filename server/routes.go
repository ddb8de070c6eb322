package server

import "net/http"

// gatewayMethods are the verbs the gateway forwards. Anything else is a 405
// from the mux.
var gatewayMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

func (s *Server) initRoutes() {
	// OAuth2 API routes
	s.RegisterRouteHandler("GET "+RouteOAuth2Authorize, ChainMiddleware(s.Authorize(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteOAuth2Token, ChainMiddleware(s.Token(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteOAuth2SignOut, ChainMiddleware(s.SignOut(), s.APIMiddleware()...))

	// Gateway routes
	for _, method := range gatewayMethods {
		s.RegisterRouteHandler(method+" "+RouteGateway, ChainMiddleware(s.Gateway(), s.APIMiddleware()...))
	}

	// Operational routes (no middleware: probes and scrapers)
	s.RegisterRouteFunc("GET "+RouteHealthLive, s.HealthLive())
	s.RegisterRouteFunc("GET "+RouteHealthReady, s.HealthReady())
	s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics.handler())
}
