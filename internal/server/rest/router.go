package rest

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires the API routes. metrics may be nil to leave /metrics
// unrouted; limiter throttles /register per client IP.
func NewRouter(h *Handler, limiter *LimiterStore, metrics http.Handler) http.Handler {
	r := mux.NewRouter()

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeHTTPError(h.formatter, w, http.StatusNotFound,
			"The requested URL was not found on the server.")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeHTTPError(h.formatter, w, http.StatusMethodNotAllowed,
			"The method is not allowed for the requested URL.")
	})

	r.Handle("/register", h.rateLimited(limiter, http.HandlerFunc(h.register))).Methods(http.MethodPost)
	r.Handle("/get", h.authenticated(h.get)).Methods(http.MethodPost)
	r.Handle("/push", h.authenticated(h.push)).Methods(http.MethodPost)
	r.Handle("/update", h.authenticated(h.update, h.checkConfig)).Methods(http.MethodPost)
	r.HandleFunc("/", h.root).Methods(http.MethodGet, http.MethodPost)

	if metrics != nil {
		r.Handle("/metrics", metrics).Methods(http.MethodGet)
	}

	return h.logRequests(r)
}
