package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/fhhvr/auth-gateway/auth"
)

// hopByHopHeaders never cross the proxy in either direction (RFC 9110 §7.6.1).
// Expect is included: the body is already buffered here, so relaying a
// 100-continue handshake upstream would stall the forwarded request.
var hopByHopHeaders = map[string]struct{}{
	"Connection":          {},
	"Expect":              {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

// bodyMethods are the verbs whose forwarded request carries a body.
var bodyMethods = map[string]struct{}{
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
}

// Gateway forwards authenticated requests to the configured backend. A caller
// presenting an Authorization header is passed through untouched; a caller
// presenting only a session cookie has a freshly minted access token injected.
// Everyone else gets 401 without the upstream ever seeing the request.
func (s *Server) Gateway() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization, ok := s.gatewayCredential(r)
		if !ok {
			writeJSONError(w, "ACCESS_DENIED", "a bearer token or a valid session is required", http.StatusUnauthorized)
			return
		}

		upstreamReq, err := s.buildUpstreamRequest(r, authorization)
		if err != nil {
			log.Err(err).Msg("gateway: building upstream request")
			writeJSONError(w, "BAD_GATEWAY", "could not build upstream request", http.StatusBadGateway)
			return
		}

		resp, err := s.upstream.Do(upstreamReq)
		if err != nil {
			log.Err(err).Str("path", r.URL.Path).Msg("gateway: upstream request failed")
			writeJSONError(w, "BAD_GATEWAY", upstreamErrorCode(err), http.StatusBadGateway)
			return
		}
		defer resp.Body.Close() //nolint:errcheck

		copyResponseHeaders(w.Header(), resp.Header)
		w.WriteHeader(resp.StatusCode)
		if _, err := io.Copy(w, resp.Body); err != nil {
			log.Err(err).Msg("gateway: copying upstream response body")
		}
	}
}

// gatewayCredential resolves the Authorization header value to forward
// upstream. Any inbound Authorization passes through verbatim, whatever its
// scheme; the upstream owns its verification. Cookie-only callers are
// exchanged for a minted token here.
func (s *Server) gatewayCredential(r *http.Request) (string, bool) {
	if authorization := r.Header.Get("Authorization"); authorization != "" {
		return authorization, true
	}

	sessionToken := s.sessionTokenFromRequest(r)
	if sessionToken == "" {
		return "", false
	}
	accessToken, err := s.auth.AccessTokenForSession(r.Context(), sessionToken)
	if err != nil {
		if !errors.Is(err, auth.ErrUnauthenticated) {
			log.Err(err).Msg("gateway: minting access token for session")
		}
		return "", false
	}
	return "Bearer " + accessToken, true
}

func (s *Server) buildUpstreamRequest(r *http.Request, authorization string) (*http.Request, error) {
	targetURL := strings.TrimSuffix(s.config.GetBackendURL(), "/") + "/" + r.PathValue("path")
	if r.URL.RawQuery != "" {
		targetURL += "?" + r.URL.RawQuery
	}

	body, err := upstreamBody(r)
	if err != nil {
		return nil, err
	}

	upstreamReq, err := http.NewRequestWithContext(r.Context(), r.Method, targetURL, body)
	if err != nil {
		return nil, err
	}

	for name, values := range r.Header {
		if _, skip := hopByHopHeaders[http.CanonicalHeaderKey(name)]; skip {
			continue
		}
		if http.CanonicalHeaderKey(name) == "Cookie" {
			continue // The session cookie is the gateway's credential, not the upstream's.
		}
		upstreamReq.Header[name] = values
	}

	upstreamReq.Header.Set("Authorization", authorization)
	upstreamReq.Header.Set("X-Forwarded-Proto", getScheme(r))
	upstreamReq.Header.Set("X-Forwarded-Host", r.Host)
	if body == nil {
		// An empty forwarded body carries no content type, even if the
		// inbound request declared one.
		upstreamReq.Header.Del("Content-Type")
	} else if upstreamReq.Header.Get("Content-Type") == "" {
		upstreamReq.Header.Set("Content-Type", "application/json")
	}

	return upstreamReq, nil
}

// upstreamBody buffers the inbound body for methods that carry one. A nil
// return makes the transport send Content-Length: 0 instead of a chunked
// empty body, which some upstream frameworks reject. For an empty DELETE the
// transport omits the header entirely; no chunked framing occurs there
// either.
func upstreamBody(r *http.Request) (io.Reader, error) {
	if _, ok := bodyMethods[r.Method]; !ok {
		return nil, nil
	}
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, nil
	}
	return bytes.NewReader(payload), nil
}

func copyResponseHeaders(dst, src http.Header) {
	for name, values := range src {
		if _, skip := hopByHopHeaders[http.CanonicalHeaderKey(name)]; skip {
			continue
		}
		if strings.HasPrefix(name, ":") {
			continue // HTTP/2 pseudo-headers leak from some upstream stacks.
		}
		dst[http.CanonicalHeaderKey(name)] = values
	}
}

// upstreamErrorCode names the failure class without leaking addresses or
// other connection details to the caller.
func upstreamErrorCode(err error) string {
	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "upstream timeout"
	case errors.As(err, &dnsErr):
		return "upstream DNS failure"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "upstream connection refused"
	case errors.Is(err, syscall.ECONNRESET):
		return "upstream connection reset"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "upstream timeout"
	default:
		return "upstream request failed"
	}
}
