package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type ctxKey string

const (
	ownerIDKey   ctxKey = "ownerID"
	requestIDKey ctxKey = "requestID"
)

// OwnerIDFromContext returns the authenticated owner id set by the
// credential middleware.
func OwnerIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ownerIDKey).(string)
	return v, ok
}

// RequestIDFromContext returns the id assigned by logRequests.
func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// logRequests tags every request with an id (kept from X-Request-ID when
// the client sent one) and logs its outcome.
func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		h.logger.Info(ctx, "request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"remote", h.clientIP(r),
			"duration", time.Since(start).String(),
		)
	})
}

// rateLimited rejects callers whose bucket in store is empty.
func (h *Handler) rateLimited(store *LimiterStore, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := h.clientIP(r)
		if !store.Allow(key) {
			h.logger.Warn(r.Context(), "rate limited", "remote", key, "path", r.URL.Path)
			w.Header().Set("Retry-After", "1")
			writeHTTPError(h.formatter, w, http.StatusTooManyRequests, "Too many requests from this address, retry later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// fieldCheck validates a request field before the credential is looked up.
type fieldCheck func(r *http.Request) error

// authenticated validates the owner id and token fields, runs the extra
// checks, verifies the credential and passes the owner id on in the context.
// Shape errors answer CodeMalformed without touching storage; a failed
// verification answers CodeUnauthorized.
func (h *Handler) authenticated(next http.HandlerFunc, checks ...fieldCheck) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeEnvelope(h.formatter, w, newEnvelope(CodeMalformed, "Malformed data: "+err.Error()))
			return
		}

		ownerID := ownerIDField(r)
		token := r.PostForm.Get("token")

		if err := h.validators.ID.Validate("owner_id", ownerID); err != nil {
			h.malformed(w, err)
			return
		}
		if err := h.validators.ID.Validate("token", token); err != nil {
			h.malformed(w, err)
			return
		}
		for _, check := range checks {
			if err := check(r); err != nil {
				h.malformed(w, err)
				return
			}
		}

		if !h.credentials.Verify(r.Context(), ownerID, token) {
			h.logger.Warn(r.Context(), "unauthorized request", "remote", h.clientIP(r), "path", r.URL.Path)
			writeEnvelope(h.formatter, w, newEnvelope(CodeUnauthorized, msgUnauthorized))
			return
		}

		ctx := context.WithValue(r.Context(), ownerIDKey, ownerID)
		next(w, r.WithContext(ctx))
	})
}

// ownerIDField reads owner_id, falling back to the legacy uid field.
func ownerIDField(r *http.Request) string {
	if v := r.PostForm.Get("owner_id"); v != "" {
		return v
	}
	return r.PostForm.Get("uid")
}

func (h *Handler) malformed(w http.ResponseWriter, err error) {
	writeEnvelope(h.formatter, w, newEnvelope(CodeMalformed, "Malformed data in parameter: "+err.Error()))
}
