package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/tamween/internal/core"
)

// mutationResponse is the body of successful API mutations. Warning is set
// when the change was applied but not saved.
type mutationResponse struct {
	Customer *core.Customer    `json:"customer,omitempty"`
	Deleted  string            `json:"deleted,omitempty"`
	Total    int               `json:"total"`
	Warning  *core.UserMessage `json:"warning,omitempty"`
}

func (s *Server) handleAPIList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, s.service.View(core.Query{
		Search: q.Get("q"),
		Sort:   core.ParseSortOrder(q.Get("sort")),
	}))
}

func (s *Server) handleAPIGet(w http.ResponseWriter, r *http.Request) {
	c, err := s.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleAPICreate(w http.ResponseWriter, r *http.Request) {
	var c core.Candidate
	if err := decodeBody(w, r, &c); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	rec, err := s.service.Add(r.Context(), c)
	if err != nil && !core.IsWriteWarning(err) {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusCreated, mutationResponse{Customer: &rec, Total: s.service.Len(), Warning: s.warning(r, err)})
}

// handleAPIUpdate applies a partial update; absent fields are kept.
func (s *Server) handleAPIUpdate(w http.ResponseWriter, r *http.Request) {
	var p core.Patch
	if err := decodeBody(w, r, &p); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	rec, err := s.service.Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil && !core.IsWriteWarning(err) {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{Customer: &rec, Total: s.service.Len(), Warning: s.warning(r, err)})
}

// handleAPIDelete requires ?confirm=true.
func (s *Server) handleAPIDelete(w http.ResponseWriter, r *http.Request) {
	if !confirmed(r) {
		s.respondError(w, r, core.ErrConfirmationRequired, 0)
		return
	}
	id := chi.URLParam(r, "id")
	err := s.service.Delete(r.Context(), id)
	if err != nil && !core.IsWriteWarning(err) {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{Deleted: id, Total: s.service.Len(), Warning: s.warning(r, err)})
}

func (s *Server) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Stats())
}

// handleAPIReset removes every record. It requires ?confirm=true.
func (s *Server) handleAPIReset(w http.ResponseWriter, r *http.Request) {
	if !confirmed(r) {
		s.respondError(w, r, core.ErrConfirmationRequired, 0)
		return
	}
	err := s.service.Reset(r.Context())
	if err != nil && !core.IsWriteWarning(err) {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{Total: s.service.Len(), Warning: s.warning(r, err)})
}

// handleChanges returns the recent change history, newest first.
func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Changes(parseIntParam(r, "limit", 50)))
}
