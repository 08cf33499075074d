package gateway

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"nodegate/internal/logging"
	"nodegate/internal/utils"
)

// hop-by-hop headers that must not be forwarded to the upstream
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// proxyHandler forwards HTTP requests to a fixed upstream, rewriting
// the route prefix to the upstream base path. It mirrors a proxy_pass
// location: /api/foo with target "/" becomes /foo on the upstream.
type proxyHandler struct {
	upstream string // upstream host:port
	prefix   string // route prefix, e.g. /api/
	target   string // upstream base path, e.g. /
	client   *http.Client
	pool     *BufferPool
	logger   *logging.Logger
	errors   *int64
}

func newProxyHandler(upstream, prefix, target string, pool *BufferPool, errors *int64) *proxyHandler {
	return &proxyHandler{
		upstream: upstream,
		prefix:   prefix,
		target:   target,
		pool:     pool,
		logger:   logging.GetGlobalLogger(),
		errors:   errors,
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					d := net.Dialer{Timeout: 10 * time.Second}
					return d.DialContext(ctx, "tcp", upstream)
				},
				MaxIdleConnsPerHost:   16,
				IdleConnTimeout:       90 * time.Second,
				ResponseHeaderTimeout: 60 * time.Second,
			},
			// Pass redirects through to the client untouched
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// rewritePath maps a request path onto the upstream path space.
func (h *proxyHandler) rewritePath(p string) string {
	rest := strings.TrimPrefix(p, h.prefix)
	return h.target + rest
}

func (h *proxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "")
}

// serve forwards the request. A non-empty connHeader value is written
// on the response, mirroring the computed $connection_upgrade value for
// non-upgrade requests on the WebSocket route.
func (h *proxyHandler) serve(w http.ResponseWriter, r *http.Request, connHeader string) {
	outURL := "http://" + h.upstream + h.rewritePath(r.URL.Path)
	if r.URL.RawQuery != "" {
		outURL += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, outURL, r.Body)
	if err != nil {
		h.fail(w, r, err, "invalid proxied request")
		return
	}

	// Copy end-to-end headers
	for key, values := range r.Header {
		if isHopHeader(key) {
			continue
		}
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	// Standard proxy headers, as the site configuration sets them
	req.Host = r.Host
	clientIP := utils.RemoteIP(r)
	req.Header.Set("X-Real-IP", clientIP)
	if prior := r.Header.Get("X-Forwarded-For"); prior != "" {
		req.Header.Set("X-Forwarded-For", prior+", "+clientIP)
	} else {
		req.Header.Set("X-Forwarded-For", clientIP)
	}
	if r.TLS != nil {
		req.Header.Set("X-Forwarded-Proto", "https")
	} else {
		req.Header.Set("X-Forwarded-Proto", "http")
	}
	req.ContentLength = r.ContentLength

	resp, err := h.client.Do(req)
	if err != nil {
		h.fail(w, r, err, "upstream unreachable")
		return
	}
	defer resp.Body.Close()

	// Copy response headers
	for key, values := range resp.Header {
		if isHopHeader(key) {
			continue
		}
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	if connHeader != "" {
		w.Header().Set("Connection", connHeader)
	}
	w.WriteHeader(resp.StatusCode)

	buf := h.pool.Get()
	defer h.pool.Put(buf)
	if _, err := io.CopyBuffer(w, resp.Body, buf); err != nil {
		h.logger.Debug("Response copy interrupted for %s %s: %v", r.Method, r.URL.Path, err)
	}
}

func (h *proxyHandler) fail(w http.ResponseWriter, r *http.Request, err error, message string) {
	if h.errors != nil {
		atomic.AddInt64(h.errors, 1)
	}
	h.logger.LogHTTPError(r.Method, r.URL.Path, utils.RemoteIP(r), http.StatusBadGateway, message, err)
	http.Error(w, "502 Bad Gateway", http.StatusBadGateway)
}

func isHopHeader(key string) bool {
	for _, h := range hopHeaders {
		if strings.EqualFold(key, h) {
			return true
		}
	}
	return false
}
