// Package gateway implements the edge natively: the same route table,
// TLS termination, redirect, Basic Auth, and WebSocket upgrade behavior
// as the rendered nginx site, for deployments that do not ship nginx.
package gateway

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"nodegate/internal/config"
	"nodegate/internal/logging"
	"nodegate/internal/utils"
)

// Route prefixes, fixed by the deployment contract.
const (
	RouteStatic     = "/"
	RouteSupervisor = "/supervisor/"
	RouteAPI        = "/api/"
	RouteWebSocket  = "/api/ws/"
)

// Server is the embedded reverse-proxy gateway.
type Server struct {
	cfg    *config.Config
	logger *logging.Logger
	pool   *BufferPool
	auth   *HtpasswdAuth // nil in docker mode

	metrics Metrics

	mu       sync.Mutex
	main     *http.Server
	redirect *http.Server
}

// NewServer builds a gateway for the given configuration. In
// production mode the htpasswd file must exist and the certificate
// pair must be loadable.
func NewServer(cfg *config.Config) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.GetGlobalLogger(),
		pool:   NewBufferPool(),
	}

	if cfg.IsProduction() {
		auth, err := NewHtpasswdAuth(cfg.HtpasswdPath)
		if err != nil {
			return nil, fmt.Errorf("basic auth: %w", err)
		}
		s.auth = auth
	}

	return s, nil
}

// Handler builds the route table. Order does not matter for ServeMux;
// the longest registered prefix wins, which is exactly the location
// matching the site configuration relies on.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle(RouteWebSocket, s.metrics.count(&s.metrics.apiRequests,
		newWebsocketHandler(s.cfg.APIUpstream, RouteWebSocket, "/ws/", s.pool, &s.metrics.websocketUpgrades, &s.metrics.proxyErrors)))
	mux.Handle(RouteAPI, s.metrics.count(&s.metrics.apiRequests,
		newProxyHandler(s.cfg.APIUpstream, RouteAPI, "/", s.pool, &s.metrics.proxyErrors)))

	if s.cfg.IsProduction() {
		mux.Handle(RouteSupervisor, s.metrics.count(&s.metrics.supervisorRequests,
			newProxyHandler(s.cfg.SupervisorUpstream, RouteSupervisor, "/", s.pool, &s.metrics.proxyErrors)))
	}

	mux.Handle(RouteStatic, s.metrics.count(&s.metrics.staticRequests,
		newStaticHandler(s.cfg.StaticRoot)))

	var h http.Handler = mux
	if s.auth != nil {
		h = s.auth.Middleware(h, &s.metrics.authFailures)
	}
	return s.accessLog(h)
}

// Start brings up the listeners and returns once they are accepting.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.IsProduction() {
		return s.startProduction()
	}
	return s.startDocker()
}

func (s *Server) startProduction() error {
	tlsConfig, err := ServerTLSConfig(s.cfg.CertFile, s.cfg.KeyFile)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.cfg.HTTPSAddr)
	if err != nil {
		return fmt.Errorf("https listener: %w", err)
	}
	s.main = &http.Server{
		Handler:           s.Handler(),
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: 30 * time.Second,
	}
	go func() {
		if err := s.main.ServeTLS(ln, "", ""); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTPS server stopped: %v", err)
		}
	}()
	s.logger.Info("HTTPS listener started on %s", s.cfg.HTTPSAddr)

	rln, err := net.Listen("tcp", s.cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("http listener: %w", err)
	}
	s.redirect = &http.Server{
		Handler:           s.redirectHandler(),
		ReadHeaderTimeout: 30 * time.Second,
	}
	go func() {
		if err := s.redirect.Serve(rln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Redirect server stopped: %v", err)
		}
	}()
	s.logger.Info("HTTP redirect listener started on %s", s.cfg.HTTPAddr)

	return nil
}

func (s *Server) startDocker() error {
	ln, err := net.Listen("tcp", s.cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("http listener: %w", err)
	}
	s.main = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 30 * time.Second,
	}
	go func() {
		if err := s.main.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server stopped: %v", err)
		}
	}()
	s.logger.Info("HTTP listener started on %s", s.cfg.HTTPAddr)

	return nil
}

// Stop gracefully shuts down the listeners.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	if s.redirect != nil {
		if err := s.redirect.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		s.redirect = nil
	}
	if s.main != nil {
		if err := s.main.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		s.main = nil
	}

	s.logger.Info("Gateway stopped")
	return firstErr
}

// Metrics returns the gateway counters.
func (s *Server) Metrics() map[string]interface{} {
	return s.metrics.Snapshot()
}

// ReloadAuth re-reads the htpasswd file. No-op in docker mode.
func (s *Server) ReloadAuth() error {
	if s.auth == nil {
		return nil
	}
	return s.auth.Reload()
}

// redirectHandler answers every plain-HTTP request with a 301 to the
// https URL, as the port 80 server block does.
func (s *Server) redirectHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		if host == "" {
			host = s.cfg.NodeHost
		}
		target := "https://" + host + r.URL.RequestURI()
		http.Redirect(w, r, target, http.StatusMovedPermanently)
	})
}

// accessLog emits one line per request in the logger's HTTP format.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.LogHTTPRequest(r.Method, r.URL.Path, utils.RemoteIP(r), rec.status, rec.bytes, time.Since(start).String())
	})
}

// statusRecorder captures status and size for access logging while
// still allowing hijack for WebSocket upgrades.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// Hijack delegates to the underlying writer so upgrades pass through
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("underlying writer does not support hijacking")
	}
	return hj.Hijack()
}
