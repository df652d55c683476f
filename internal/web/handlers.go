package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/tamween/internal/core"
	"github.com/JonMunkholm/tamween/internal/web/templates"
)

// handleHealth reports liveness and the register size.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "records": s.service.Len()})
}

// handleIndex renders the register. The page script asks for the list body
// alone with an HX-Request header.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := core.Query{Search: q.Get("q"), Sort: core.ParseSortOrder(q.Get("sort"))}
	view := s.service.View(query)
	lang := s.lang(r)

	dates := s.service.Dates()
	rows := make([]templates.Row, len(view.Records))
	for i, c := range view.Records {
		rows[i] = templates.Row{Customer: c, Created: dates.Format(c.CreatedAt)}
	}

	data := templates.ListData{
		Lang:   lang,
		Search: query.Search,
		Sort:   query.Sort,
		Rows:   rows,
		Stats:  view.Stats,
		Total:  view.Total,
	}
	if code := q.Get("warning"); code != "" {
		if msg, ok := core.MessageForCode(code, lang); ok {
			data.Warning = &msg
		}
	}

	if isHTMX(r) {
		s.render(w, r, templates.ListBody(data))
		return
	}
	s.render(w, r, templates.ListPage(data))
}

func (s *Server) handleNewForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, templates.CustomerForm(templates.FormData{
		Lang:   s.lang(r),
		Action: "/customers",
		Values: core.Candidate{FamilyCount: 1},
	}))
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := s.service.Get(id)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	s.render(w, r, templates.CustomerForm(templates.FormData{
		Lang:   s.lang(r),
		Action: templates.CustomerPath(id, ""),
		Edit:   true,
		Values: core.Candidate{
			Name:        c.Name,
			PageNumber:  c.PageNumber,
			FamilyCount: c.FamilyCount,
			SecretPin:   c.SecretPin,
		},
	}))
}

func (s *Server) handleDeleteConfirm(w http.ResponseWriter, r *http.Request) {
	c, err := s.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	s.render(w, r, templates.ConfirmDelete(s.lang(r), c))
}
