package stats

import (
	"context"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jsfuzz/jsfuzz/internal/logging"
)

// Server exposes a Registry's metrics over HTTP at /metrics, started
// only when config.Settings.ExportStatistics is set.
type Server struct {
	http *http.Server
	log  *logging.Logger
	addr string
}

// Addr returns the server's actual bound address (useful when addr was
// passed to StartServer with a ":0" port).
func (s *Server) Addr() string { return s.addr }

// StartServer binds addr and begins serving /metrics in the background.
// A non-nil error means the listener itself failed to bind; a serve-time
// error after that is only logged, matching how the rest of jsfuzz treats
// background listeners (internal/sync's stream handler, for one) as
// best-effort once started.
func StartServer(addr string, reg *Registry, log *logging.Logger) (*Server, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg.reg, promhttp.HandlerOpts{}))

	srv := &Server{http: &http.Server{Addr: addr, Handler: mux}, log: log.Named("stats")}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv.addr = ln.Addr().String()
	go func() {
		if err := srv.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			srv.log.Error("statistics server stopped", logging.Err(err))
		}
	}()
	srv.log.Info("statistics endpoint listening", logging.String("addr", addr))
	return srv, nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
