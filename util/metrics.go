package util

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/relex/bulksink/defs"
	"github.com/relex/gotils/logger"
)

func init() {
	_ = pprof.Handler // the import's init registers the /debug/pprof/ handlers
	http.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html><head><title>bulksink</title></head><body><p>bulksink diagnostics:</p>")
		for _, path := range []string{"/metrics", "/debug/pprof"} {
			fmt.Fprintf(w, "<p><a href='%s'>%s</a></p>", path, path)
		}
		fmt.Fprint(w, "</body></html>")
	})
}

// LaunchMetricsListener starts an HTTP server exposing Prometheus metrics and pprof endpoints
//
// The given gatherer is served in addition to the default registry, which only carries the
// process-wide metrics.
func LaunchMetricsListener(address string, gatherer prometheus.Gatherer) *http.Server {
	srvLogger := logger.WithField(defs.LabelComponent, "MetricsListener")
	http.Handle("/metrics", promhttp.HandlerFor(
		prometheus.Gatherers{gatherer, prometheus.DefaultGatherer},
		promhttp.HandlerOpts{},
	))
	srv := &http.Server{Addr: address}
	go func() {
		srvLogger.Infof("listening on %s for metrics...", address)
		if serveErr := srv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			srvLogger.Error("metrics listener error: ", serveErr)
		}
	}()
	return srv
}
