package exporter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// NewRouter serves /metrics from gatherer plus /healthz and /snapshot for
// the current snapshot.
func NewRouter(gatherer prometheus.Gatherer, source Source, logger *logrus.Logger) http.Handler {
	r := mux.NewRouter()

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog: logger,
	})).Methods(http.MethodGet)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if source.Current() == nil {
			http.Error(w, "no snapshot published yet", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/snapshot", func(w http.ResponseWriter, _ *http.Request) {
		snap := source.Current()
		if snap == nil {
			http.Error(w, "no snapshot published yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			logger.WithError(err).Warn("Failed to encode snapshot")
		}
	}).Methods(http.MethodGet)

	var h http.Handler = r
	h = handlers.LoggingHandler(logger.WriterLevel(logrus.DebugLevel), h)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(logger))(h)
	return h
}

// NewServer wraps handler in an http.Server listening on addr.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
