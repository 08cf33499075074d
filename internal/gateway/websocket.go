package gateway

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/textproto"
	"sync/atomic"
	"time"

	"nodegate/internal/logging"
	"nodegate/internal/utils"
)

// websocketHandler proxies WebSocket upgrades on the /api/ws/ route.
// It reproduces the "map $http_upgrade $connection_upgrade" semantics:
// a non-empty Upgrade header is forwarded with "Connection: upgrade"
// and the connection becomes a raw bidirectional stream; an empty
// Upgrade header proxies as plain HTTP with "Connection: close".
type websocketHandler struct {
	upstream string
	prefix   string
	target   string
	fallback *proxyHandler
	pool     *BufferPool
	logger   *logging.Logger
	upgrades *int64
	errors   *int64
}

func newWebsocketHandler(upstream, prefix, target string, pool *BufferPool, upgrades, errors *int64) *websocketHandler {
	return &websocketHandler{
		upstream: upstream,
		prefix:   prefix,
		target:   target,
		fallback: newProxyHandler(upstream, prefix, target, pool, errors),
		pool:     pool,
		logger:   logging.GetGlobalLogger(),
		upgrades: upgrades,
		errors:   errors,
	}
}

func (h *websocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Upgrade") == "" {
		// $connection_upgrade computes to "close" for an empty Upgrade
		h.fallback.serve(w, r, "close")
		return
	}

	if h.upgrades != nil {
		atomic.AddInt64(h.upgrades, 1)
	}

	hj, ok := w.(http.Hijacker)
	if !ok {
		h.fail(w, r, fmt.Errorf("response writer does not support hijacking"))
		return
	}

	upstreamConn, err := net.DialTimeout("tcp", h.upstream, 10*time.Second)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	// Write the upgrade handshake to the upstream with the rewritten
	// path and the forwarded Upgrade/Connection headers
	if err := h.writeHandshake(upstreamConn, r); err != nil {
		upstreamConn.Close()
		h.fail(w, r, err)
		return
	}

	clientConn, bufrw, err := hj.Hijack()
	if err != nil {
		upstreamConn.Close()
		h.logger.Error("Failed to hijack WebSocket connection: %v", err)
		return
	}

	// Forward any client bytes the server already buffered
	if n := bufrw.Reader.Buffered(); n > 0 {
		pending, _ := bufrw.Reader.Peek(n)
		if _, err := upstreamConn.Write(pending); err != nil {
			clientConn.Close()
			upstreamConn.Close()
			return
		}
	}

	h.logger.Debug("WebSocket upgrade established: %s -> %s", utils.RemoteIP(r), h.upstream)
	h.pipe(clientConn, upstreamConn)
}

func (h *websocketHandler) writeHandshake(conn net.Conn, r *http.Request) error {
	outPath := h.target + r.URL.Path[len(h.prefix):]
	if r.URL.RawQuery != "" {
		outPath += "?" + r.URL.RawQuery
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %s HTTP/1.1\r\n", r.Method, outPath)
	fmt.Fprintf(&buf, "Host: %s\r\n", r.Host)
	for key, values := range r.Header {
		switch textproto.CanonicalMIMEHeaderKey(key) {
		case "Connection", "Upgrade", "Keep-Alive", "Proxy-Authorization", "Proxy-Connection":
			continue
		}
		for _, value := range values {
			fmt.Fprintf(&buf, "%s: %s\r\n", key, value)
		}
	}
	// Upgrade and Connection forwarded as the site configuration does
	fmt.Fprintf(&buf, "Upgrade: %s\r\n", r.Header.Get("Upgrade"))
	fmt.Fprintf(&buf, "Connection: upgrade\r\n")
	fmt.Fprintf(&buf, "X-Real-IP: %s\r\n", utils.RemoteIP(r))
	buf.WriteString("\r\n")

	_, err := conn.Write(buf.Bytes())
	return err
}

// pipe copies bytes in both directions until either side closes.
func (h *websocketHandler) pipe(client, upstream net.Conn) {
	done := make(chan struct{}, 2)

	transfer := func(dst, src net.Conn) {
		buf := h.pool.Get()
		defer h.pool.Put(buf)
		if _, err := io.CopyBuffer(dst, src, buf); err != nil {
			h.logger.Debug("WebSocket stream closed: %v", err)
		}
		// Signal EOF to the opposite direction where supported
		if cw, ok := dst.(interface{ CloseWrite() error }); ok {
			cw.CloseWrite()
		}
		done <- struct{}{}
	}

	go transfer(upstream, client)
	go transfer(client, upstream)

	<-done
	<-done

	client.Close()
	upstream.Close()
}

func (h *websocketHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if h.errors != nil {
		atomic.AddInt64(h.errors, 1)
	}
	h.logger.LogHTTPError(r.Method, r.URL.Path, utils.RemoteIP(r), http.StatusBadGateway, "websocket proxy failed", err)
	http.Error(w, "502 Bad Gateway", http.StatusBadGateway)
}
