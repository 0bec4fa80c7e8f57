package proxy

import (
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/nandinigandhi21/EventHive-TheCoders/internal/logger"
	"github.com/nandinigandhi21/EventHive-TheCoders/middleware"
)

// Options configures the auth pass-through.
type Options struct {
	// StripPrefix is removed from the incoming path, e.g. "/api/auth".
	StripPrefix string
	// UpstreamPrefix replaces it, e.g. "/api".
	UpstreamPrefix string
	// Allow lists the paths (after StripPrefix) that may be forwarded. Empty allows all.
	Allow []string
	// DialTimeout bounds connecting to the upstream.
	DialTimeout time.Duration
	// Transport, when set, replaces the default transport (tests).
	Transport http.RoundTripper
}

// New creates a reverse proxy that rewrites paths and propagates context headers.
// Anything outside opts.Allow answers 404 without reaching the upstream.
func New(targetHost string, opts Options) (http.Handler, error) {
	target, err := url.Parse(targetHost)
	if err != nil {
		return nil, err
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 3 * time.Second
	}

	rp := httputil.NewSingleHostReverseProxy(target)
	originalDirector := rp.Director

	base := opts.Transport
	if base == nil {
		base = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: opts.DialTimeout}).DialContext,
			ResponseHeaderTimeout: 10 * time.Second,
			IdleConnTimeout:       90 * time.Second,
		}
	}
	rp.Transport = &middleware.TracingTransport{Base: base}

	rp.Director = func(req *http.Request) {
		originalDirector(req)
		req.Host = target.Host

		// /api/auth/login -> /api/login
		if strings.HasPrefix(req.URL.Path, opts.StripPrefix) {
			req.URL.Path = opts.UpstreamPrefix + strings.TrimPrefix(req.URL.Path, opts.StripPrefix)
			req.URL.RawPath = ""
		}

		if reqID := middleware.GetRequestID(req.Context()); reqID != "" {
			req.Header.Set(middleware.HeaderXRequestID, reqID)
		}
		// Session ids are ours; the upstream never sees them.
		req.Header.Del(middleware.HeaderDashboardSession)
	}

	rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		reqID := middleware.GetRequestID(r.Context())
		logger.Log.Error().
			Err(err).
			Str("target", targetHost).
			Str("path", r.URL.Path).
			Str("request_id", reqID).
			Msg("upstream_proxy_error")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":{"code":"upstream_unavailable","message":"auth service unreachable","request_id":"` + reqID + `"}}`))
	}

	if len(opts.Allow) == 0 {
		return rp, nil
	}

	allowed := make(map[string]bool, len(opts.Allow))
	for _, p := range opts.Allow {
		allowed["/"+strings.Trim(p, "/")] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rest := "/" + strings.Trim(strings.TrimPrefix(r.URL.Path, opts.StripPrefix), "/")
		if !allowed[rest] {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"code":"not_found","message":"no such auth route"}}`))
			return
		}
		rp.ServeHTTP(w, r)
	}), nil
}
