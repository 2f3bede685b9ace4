// Package debug provides instrumentation and inspection tools for pidflame.
package debug

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewHandler serves the runtime pprof endpoints under /debug/pprof/ and the
// metrics in gatherer under /metrics.
func NewHandler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

// StartServer starts the debug HTTP server at the given address.
// Returns a stop function to gracefully shut down the server.
func StartServer(addr string, gatherer prometheus.Gatherer) (func(), error) {
	if addr == "" {
		addr = ":6060"
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("debug server failed: %w", err)
	}

	server := &http.Server{
		Handler:           NewHandler(gatherer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		fmt.Fprintf(defaultTraceWriter(), "debug server listening on %s\n", ln.Addr())
		_ = server.Serve(ln)
	}()

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}

	return stop, nil
}
