package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// OAuth2 Routes
	RouteOAuth2Authorize = "/oauth/authorize"
	RouteOAuth2Token     = "/oauth/token"
	RouteOAuth2SignOut   = "/oauth/signout"

	// Gateway Route (wildcard path suffix forwarded upstream)
	RouteGateway = "/gateway/{path...}"

	// Operational Routes
	RouteHealthLive  = "/health/live"
	RouteHealthReady = "/health/ready"
	RouteMetrics     = "/metrics"
)
