package rest

import (
	"net/http"

	"github.com/unrolled/render"
)

// Response codes carried in the envelope "code" field.
const (
	CodeOK           = 0
	CodeUnauthorized = 1
	CodeMalformed    = 2
	CodeInternal     = 3
)

const (
	msgOK           = "OK"
	msgUnauthorized = "Unauthorized"
	msgInternal     = "Internal error"
)

// httpError is the msg body used when the request never reached a handler.
type httpError struct {
	Code        int    `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type envelope map[string]any

func newEnvelope(code int, msg any) envelope {
	return envelope{"code": code, "msg": msg}
}

// writeEnvelope sends the application envelope. Application outcomes are
// always 200; the envelope code carries the result.
func writeEnvelope(formatter *render.Render, w http.ResponseWriter, e envelope) {
	_ = formatter.JSON(w, http.StatusOK, e)
}

// writeHTTPError sends a transport level failure (unknown route, wrong
// method, throttling) with its real status code.
func writeHTTPError(formatter *render.Render, w http.ResponseWriter, status int, description string) {
	_ = formatter.JSON(w, status, newEnvelope(CodeMalformed, httpError{
		Code:        status,
		Name:        http.StatusText(status),
		Description: description,
	}))
}
