package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/tamween/internal/core"
	"github.com/JonMunkholm/tamween/internal/logging"
	"github.com/JonMunkholm/tamween/internal/web/templates"
)

// handleExport serves /export/{format} and /api/export/{format}.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var (
		exp core.Export
		err error
	)
	switch chi.URLParam(r, "format") {
	case "json":
		exp, err = s.service.ExportJSON()
	case "csv":
		exp, err = s.service.ExportCSV()
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	logging.FromContext(r.Context()).Info("export", "file", exp.Filename, "bytes", len(exp.Data))
	sendExport(w, exp)
}

func (s *Server) handleImportForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, templates.ImportPage(templates.ImportData{
		Lang:    s.lang(r),
		Current: s.service.Len(),
	}))
}

// handleImport restores a backup from the import form. The form must carry a
// file, an explicit policy and the confirmation checkbox.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	lang := s.lang(r)
	data := templates.ImportData{Lang: lang}

	fail := func(err error) {
		s.importFailed(r, err)
		msg := core.MapErrorLang(err, lang)
		data.Error = &msg
		data.Current = s.service.Len()
		s.renderStatus(w, r, statusFor(err), templates.ImportPage(data))
	}

	file, err := s.uploadSource(w, r, false)
	if err != nil {
		fail(err)
		return
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	policy, err := core.ParseImportPolicy(r.FormValue("policy"))
	if err != nil {
		fail(err)
		return
	}
	data.Policy = policy
	if !confirmed(r) {
		fail(core.ErrConfirmationRequired)
		return
	}

	result, err := s.service.Import(r.Context(), file, policy)
	if err != nil && !core.IsWriteWarning(err) {
		fail(err)
		return
	}
	s.importDone(r, result)
	data.Result = &result
	data.Warning = s.warning(r, err)
	s.render(w, r, templates.ImportPage(data))
}

// handleAPIImport restores a backup from a multipart "file" field or a raw
// JSON body. The policy query parameter is required.
func (s *Server) handleAPIImport(w http.ResponseWriter, r *http.Request) {
	policy, err := core.ParseImportPolicy(r.URL.Query().Get("policy"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	file, err := s.uploadSource(w, r, true)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	result, err := s.service.Import(r.Context(), file, policy)
	if err != nil && !core.IsWriteWarning(err) {
		s.respondError(w, r, err, 0)
		return
	}
	s.importDone(r, result)
	writeJSON(w, http.StatusOK, importResponse{ImportResult: result, Warning: s.warning(r, err)})
}

type importResponse struct {
	core.ImportResult
	Warning *core.UserMessage `json:"warning,omitempty"`
}

func (s *Server) importDone(r *http.Request, res core.ImportResult) {
	logging.FromContext(r.Context()).Info("import complete",
		"policy", res.Policy,
		"imported", res.Imported,
		"duplicates", res.Duplicates,
		"total", res.Total,
	)
}

func (s *Server) importFailed(r *http.Request, err error) {
	logging.FromContext(r.Context()).Warn("import rejected", "error", err)
}
