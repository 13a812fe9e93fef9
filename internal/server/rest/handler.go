// Package rest exposes the lease engine over form-encoded HTTP POSTs with
// JSON envelope responses.
package rest

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/slotkeeper/internal/common"
	"github.com/dmitrijs2005/slotkeeper/internal/logging"
	"github.com/dmitrijs2005/slotkeeper/internal/server/models"
	"github.com/unrolled/render"
)

type CredentialService interface {
	Register(ctx context.Context, remoteAddr string) (*models.Credential, error)
	Verify(ctx context.Context, ownerID, token string) bool
}

type LeaseService interface {
	Allocate(ctx context.Context, ownerID string) (*models.Lease, error)
	Release(ctx context.Context, ownerID, payload string) (int, error)
}

type ClientService interface {
	Heartbeat(ctx context.Context, ownerID, address string, port int) error
}

// Handler serves the client API.
type Handler struct {
	credentials CredentialService
	leases      LeaseService
	clients     ClientService
	validators  *Validators
	formatter   *render.Render
	logger      logging.Logger
	clientIP    func(r *http.Request) string
}

func NewHandler(cs CredentialService, ls LeaseService, cl ClientService, v *Validators, l logging.Logger, trustXFF bool) *Handler {
	return &Handler{
		credentials: cs,
		leases:      ls,
		clients:     cl,
		validators:  v,
		formatter:   render.New(),
		logger:      l.With("module", "rest"),
		clientIP:    ClientIPFunc(trustXFF),
	}
}

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(h.formatter, w, newEnvelope(CodeOK, msgOK))
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	ip := h.clientIP(r)

	cred, err := h.credentials.Register(r.Context(), ip)
	if err != nil {
		h.logger.Error(r.Context(), "registration failed", "remote", ip, "error", err)
		e := newEnvelope(CodeInternal, msgInternal)
		e["uid"], e["token"] = "", ""
		writeEnvelope(h.formatter, w, e)
		return
	}

	e := newEnvelope(CodeOK, msgOK)
	e["uid"], e["token"] = cred.OwnerID, cred.Token
	writeEnvelope(h.formatter, w, e)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := OwnerIDFromContext(r.Context())

	lease, err := h.leases.Allocate(r.Context(), ownerID)
	if err != nil {
		msg := msgInternal
		if errors.Is(err, common.ErrorNoCapacity) {
			msg = "Internal error: can't choose server"
			h.logger.Warn(r.Context(), "no free slot", "owner_id", ownerID)
		} else {
			h.logger.Error(r.Context(), "allocation failed", "owner_id", ownerID, "error", err)
		}
		e := newEnvelope(CodeInternal, msg)
		e["config"] = ""
		writeEnvelope(h.formatter, w, e)
		return
	}

	e := newEnvelope(CodeOK, msgOK)
	e["config"] = base64.StdEncoding.EncodeToString(lease.Blob)
	writeEnvelope(h.formatter, w, e)
}

const msgBadPort = "Malformed data: port value is invalid or null"

func (h *Handler) push(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := OwnerIDFromContext(r.Context())

	port, err := h.validators.Port("port", r.PostForm.Get("port"))
	if err != nil {
		writeEnvelope(h.formatter, w, newEnvelope(CodeMalformed, msgBadPort))
		return
	}

	if err := h.clients.Heartbeat(r.Context(), ownerID, h.clientIP(r), port); err != nil {
		if errors.Is(err, common.ErrorValidation) {
			writeEnvelope(h.formatter, w, newEnvelope(CodeMalformed, msgBadPort))
			return
		}
		h.logger.Error(r.Context(), "heartbeat failed", "owner_id", ownerID, "error", err)
		writeEnvelope(h.formatter, w, newEnvelope(CodeInternal, msgInternal))
		return
	}

	writeEnvelope(h.formatter, w, newEnvelope(CodeOK, msgOK))
}

func (h *Handler) checkConfig(r *http.Request) error {
	return h.validators.Config.Validate("config", r.PostForm.Get("config"))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := OwnerIDFromContext(r.Context())

	_, err := h.leases.Release(r.Context(), ownerID, r.PostForm.Get("config"))
	switch {
	case err == nil:
		writeEnvelope(h.formatter, w, newEnvelope(CodeOK, msgOK))
	case errors.Is(err, common.ErrorDecode):
		writeEnvelope(h.formatter, w, newEnvelope(CodeMalformed, "Could not decode base64 config"))
	case errors.Is(err, common.ErrorNoActiveLease):
		writeEnvelope(h.formatter, w, newEnvelope(CodeMalformed, "All config slots are unused"))
	default:
		h.logger.Error(r.Context(), "release failed", "owner_id", ownerID, "error", err)
		writeEnvelope(h.formatter, w, newEnvelope(CodeInternal, msgInternal))
	}
}
