package router

import (
	"net/http"

	"github.com/ecbarko/ecbarko-db/handlers"
	"github.com/ecbarko/ecbarko-db/logging"
	"github.com/ecbarko/ecbarko-db/metrics"
	"github.com/ecbarko/ecbarko-db/middleware"
	"github.com/gorilla/mux"
)

// Options carries the cross-cutting pieces the router wires in.
type Options struct {
	AllowedOrigin  string
	Logger         *logging.Logger
	Metrics        metrics.Collector
	MetricsHandler http.Handler
}

// Router exposes the account API.
func Router(h *handlers.AccountHandler, opts Options) *mux.Router {
	if opts.Logger == nil {
		opts.Logger = logging.L()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NoOpCollector{}
	}

	r := mux.NewRouter()
	r.Use(middleware.RecoverMiddleware(opts.Logger))
	r.Use(middleware.ObserveMiddleware(opts.Logger, opts.Metrics))
	r.Use(middleware.CORSMiddleware(opts.AllowedOrigin))

	r.HandleFunc("/balance/{userId}", h.GetBalance).Methods("GET", "OPTIONS")
	r.HandleFunc("/history/{userId}", h.GetHistory).Methods("GET", "OPTIONS")
	r.HandleFunc("/load", h.LoadBalance).Methods("POST", "OPTIONS")

	r.HandleFunc("/health", handlers.Health).Methods("GET")
	if opts.MetricsHandler != nil {
		r.Handle("/metrics", opts.MetricsHandler).Methods("GET")
	}

	return r
}
