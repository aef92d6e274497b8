package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rzbill/logpager/internal/api"
	"github.com/rzbill/logpager/internal/runtime"
	"github.com/rzbill/logpager/internal/server/http/controllers"
	"github.com/rzbill/logpager/internal/source/local"
	"github.com/rzbill/logpager/pkg/log"
)

// Server is the logpager HTTP API.
type Server struct {
	rt     *runtime.Runtime
	srv    *http.Server
	lis    net.Listener
	logger log.Logger
}

// Option configures a Server.
type Option func(*options)

type options struct {
	gatherer prometheus.Gatherer
}

// WithGatherer sets the registry exposed on /metrics. Defaults to the
// process-wide Prometheus registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(o *options) {
		if g != nil {
			o.gatherer = g
		}
	}
}

// New builds the server and registers every route.
func New(rt *runtime.Runtime, logger log.Logger, opts ...Option) *Server {
	o := options{gatherer: prometheus.DefaultGatherer}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	logger = logger.WithComponent("http")

	src := local.New(rt.Store(), local.WithPageSize(rt.Config().PageSize), local.WithLogger(logger))
	mux := http.NewServeMux()
	controllers.NewControllerRegistry(rt, src, logger).RegisterAllRoutes(mux)
	mux.Handle(api.PathMetrics, promhttp.HandlerFor(o.gatherer, promhttp.HandlerOpts{}))

	return &Server{
		rt:     rt,
		logger: logger,
		srv:    &http.Server{Handler: cors(logRequests(logger, mux)), ReadHeaderTimeout: 10 * time.Second},
	}
}

// Handler returns the root handler, including middleware.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Addr returns the bound address once ListenAndServe has started listening.
func (s *Server) Addr() string {
	if s.lis == nil {
		return ""
	}
	return s.lis.Addr().String()
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("http listening", log.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Close closes the listener.
func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func logRequests(logger log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		logger.Debug("request",
			log.Str("method", r.Method),
			log.Str("path", r.URL.Path),
			log.Int("status", sw.status),
			log.Dur("elapsed", time.Since(start)))
	})
}
