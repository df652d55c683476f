package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/tamween/internal/core"
	"github.com/JonMunkholm/tamween/internal/logging"
)

// maxJSONBody caps API request bodies other than imports.
const maxJSONBody = 1 << 20

// multipartOverhead is allowed on top of the import limit for form fields
// and multipart framing. The Service enforces the file limit exactly.
const multipartOverhead = 1 << 20

const langCookie = "lang"

// lang picks the language of a response: an explicit ?lang=, then the lang
// cookie, then Accept-Language for API clients, then UI_LANG.
func (s *Server) lang(r *http.Request) string {
	fallback := s.cfg.UI.Lang
	if l := r.URL.Query().Get("lang"); l != "" {
		return core.MatchLanguage(l, fallback)
	}
	if c, err := r.Cookie(langCookie); err == nil && c.Value != "" {
		return core.MatchLanguage(c.Value, fallback)
	}
	if isAPI(r) {
		return core.MatchLanguage(r.Header.Get("Accept-Language"), fallback)
	}
	return core.MatchLanguage("", fallback)
}

// rememberLang stores an explicit ?lang= choice in a cookie.
func (s *Server) rememberLang(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("lang") == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     langCookie,
		Value:    s.lang(r),
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// confirmed reports an explicit confirmation in the request: confirm=yes from
// a form, or any true value of strconv.ParseBool from an API client.
func confirmed(r *http.Request) bool {
	v := strings.TrimSpace(r.FormValue("confirm"))
	if strings.EqualFold(v, "yes") {
		return true
	}
	ok, _ := strconv.ParseBool(v)
	return ok
}

func acceptsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// render writes an HTML component with status 200.
func (s *Server) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	s.renderStatus(w, r, http.StatusOK, c)
}

func (s *Server) renderStatus(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	s.rememberLang(w, r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render failed", "path", r.URL.Path, "error", err)
	}
}

// writeJSON encodes v as JSON with the given status.
// Encoding errors are only logged since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// decodeBody reads a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidRequest, err)
	}
	return nil
}

// sendExport writes a produced file as a download.
func sendExport(w http.ResponseWriter, exp core.Export) {
	w.Header().Set("Content-Type", exp.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": exp.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(exp.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(exp.Data)
}

// uploadSource returns the import file of a request: the multipart "file"
// field, or for API clients the raw body. The caller closes it.
func (s *Server) uploadSource(w http.ResponseWriter, r *http.Request, allowRaw bool) (io.ReadCloser, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize+multipartOverhead)

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct != "multipart/form-data" {
		if !allowRaw {
			return nil, core.ErrNoFile
		}
		return r.Body, nil
	}

	if err := r.ParseMultipartForm(32 << 10); err != nil {
		return nil, uploadError(err)
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, core.ErrNoFile
		}
		return nil, uploadError(err)
	}
	return file, nil
}

// uploadError classifies a multipart failure. The multipart reader does not
// always wrap *http.MaxBytesError, so the message is checked as well.
func uploadError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large") {
		return fmt.Errorf("%w: %v", core.ErrFileTooLarge, err)
	}
	return fmt.Errorf("%w: %v", core.ErrInvalidRequest, err)
}
