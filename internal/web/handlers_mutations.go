package web

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/tamween/internal/core"
	"github.com/JonMunkholm/tamween/internal/logging"
	"github.com/JonMunkholm/tamween/internal/web/templates"
)

// formCandidate reads the customer form. An empty or invalid family count
// becomes 1.
func formCandidate(r *http.Request) core.Candidate {
	return core.Candidate{
		Name:        r.FormValue("name"),
		PageNumber:  r.FormValue("pageNumber"),
		FamilyCount: core.ParseFamilyCount(r.FormValue("familyCount")),
		SecretPin:   r.FormValue("secretPin"),
	}
}

// handleCreate adds a customer from the form.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	c := formCandidate(r)
	rec, err := s.service.Add(r.Context(), c)
	if s.formFailed(w, r, err, templates.FormData{Action: "/customers", Values: c}) {
		return
	}
	logging.FromContext(r.Context()).Info("customer added", "id", rec.ID)
	s.redirectHome(w, r, err)
}

// handleUpdate saves the edit form over an existing customer.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c := formCandidate(r)
	_, err := s.service.Update(r.Context(), id, core.PatchFrom(c))
	if s.formFailed(w, r, err, templates.FormData{Action: templates.CustomerPath(id, ""), Edit: true, Values: c}) {
		return
	}
	logging.FromContext(r.Context()).Info("customer updated", "id", id)
	s.redirectHome(w, r, err)
}

// handleDelete removes a customer after the confirmation page.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !confirmed(r) {
		s.respondError(w, r, core.ErrConfirmationRequired, 0)
		return
	}
	err := s.service.Delete(r.Context(), id)
	if err != nil && !core.IsWriteWarning(err) {
		s.respondError(w, r, err, 0)
		return
	}
	logging.FromContext(r.Context()).Info("customer deleted", "id", id)
	s.redirectHome(w, r, err)
}

// formFailed handles a failed form submission and reports whether it wrote
// the response. Validation errors re-render the form with the submitted
// values; write warnings are not failures.
func (s *Server) formFailed(w http.ResponseWriter, r *http.Request, err error, form templates.FormData) bool {
	if err == nil || core.IsWriteWarning(err) {
		return false
	}
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		msg := core.MapErrorLang(err, s.lang(r))
		form.Lang = s.lang(r)
		form.Error = &msg
		s.renderStatus(w, r, http.StatusUnprocessableEntity, templates.CustomerForm(form))
		return true
	}
	s.respondError(w, r, err, 0)
	return true
}

// redirectHome sends the browser back to the list, carrying the code of a
// write warning so the list can show it.
func (s *Server) redirectHome(w http.ResponseWriter, r *http.Request, err error) {
	target := "/"
	if msg := s.warning(r, err); msg != nil {
		target = "/?warning=" + url.QueryEscape(msg.Code)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
