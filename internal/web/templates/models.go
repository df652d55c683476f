// Package templates holds the HTML components of the web UI. The components
// are written in templ; after editing a .templ file run `templ generate` from
// the module root and commit the regenerated *_templ.go next to it.
package templates

import (
	"net/url"
	"strconv"

	"github.com/JonMunkholm/tamween/internal/core"
)

// Page is the document shell around a page body. Notice, when set, is shown
// above the body.
type Page struct {
	Lang   string
	Title  string
	Notice *core.UserMessage
}

func (p Page) documentTitle() string {
	if p.Title == "" {
		return T(p.Lang, "app.title")
	}
	return p.Title + " | " + T(p.Lang, "app.title")
}

// Row is a customer prepared for display.
type Row struct {
	core.Customer
	Created string
}

// ListData is the model of the register page.
type ListData struct {
	Lang    string
	Search  string
	Sort    core.SortOrder
	Rows    []Row
	Stats   core.Stats
	Total   int // records in the register, before filtering
	Warning *core.UserMessage
}

var sortOrders = []core.SortOrder{core.SortLatest, core.SortAlphabetical, core.SortFamilyCount}

// FormData is the model of the add and edit forms.
type FormData struct {
	Lang   string
	Action string // form target
	Edit   bool
	Values core.Candidate
	Error  *core.UserMessage
}

func (d FormData) title() string {
	if d.Edit {
		return T(d.Lang, "form.edit")
	}
	return T(d.Lang, "form.add")
}

// family is the household size to prefill; a new form starts at 1.
func (d FormData) family() int {
	return max(d.Values.FamilyCount, 1)
}

// ImportData is the model of the import page.
type ImportData struct {
	Lang    string
	Current int
	Policy  core.ImportPolicy // preselected policy after a failed attempt
	Error   *core.UserMessage
	Result  *core.ImportResult
	Warning *core.UserMessage
}

// CustomerPath builds /customers/{id}[/suffix] with the id escaped.
func CustomerPath(id, suffix string) string {
	p := "/customers/" + url.PathEscape(id)
	if suffix != "" {
		p += "/" + suffix
	}
	return p
}

func itoa(n int) string { return strconv.Itoa(n) }
