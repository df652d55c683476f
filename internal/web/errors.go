package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged with its technical detail and the request id, then
// mapped through core.MapErrorLang to a localized message the user can act
// on. The response format follows the request: an HTML fragment for the page
// script (HX-Request), JSON for the API, a full page otherwise.

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/tamween/internal/core"
	"github.com/JonMunkholm/tamween/internal/logging"
	"github.com/JonMunkholm/tamween/internal/web/templates"
)

// ErrorResponse is the JSON body of API errors. Code is the catalog code.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

func errorResponse(msg core.UserMessage) ErrorResponse {
	return ErrorResponse{Error: msg.Message, Message: msg.Message, Action: msg.Action, Code: msg.Code}
}

// statusFor picks the HTTP status for an error from the core catalog.
func statusFor(err error) int {
	var (
		pe *core.ParseError
		ve *core.ValidationError
	)
	switch {
	case errors.As(err, &pe), errors.As(err, &ve),
		errors.Is(err, core.ErrInvalidPolicy), errors.Is(err, core.ErrNoFile),
		errors.Is(err, core.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrEmptyCollection):
		return http.StatusNotFound
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrConfirmationRequired):
		return http.StatusPreconditionRequired
	case core.IsWriteWarning(err):
		return http.StatusInsufficientStorage
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes the user-facing response. A zero status
// is derived from the error.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	if status == 0 {
		status = statusFor(err)
	}
	lang := s.lang(r)
	msg := core.MapErrorLang(err, lang)

	log := logging.FromContext(r.Context()).Warn
	if status >= http.StatusInternalServerError {
		log = logging.FromContext(r.Context()).Error
	}
	log("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	switch {
	case isHTMX(r):
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_ = templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
	case wantsJSON(r):
		writeJSON(w, status, errorResponse(msg))
	default:
		s.renderStatus(w, r, status, templates.ErrorPage(lang, msg))
	}
}

// warning maps a non-fatal write failure for the response, or returns nil.
func (s *Server) warning(r *http.Request, err error) *core.UserMessage {
	if err == nil || !core.IsWriteWarning(err) {
		return nil
	}
	msg := core.MapErrorLang(err, s.lang(r))
	return &msg
}

// isHTMX reports a fragment request from the page script.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	return isAPI(r) || acceptsJSON(r)
}
