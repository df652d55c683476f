package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/tamween/internal/config"
	"github.com/JonMunkholm/tamween/internal/core"
	"github.com/JonMunkholm/tamween/internal/storage"
)

type testEnv struct {
	srv  *Server
	svc  *core.Service
	slot storage.Slot
}

func newTestEnv(t *testing.T, slot storage.Slot, tweak ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg, err := config.LoadFrom(func(key string) (string, bool) {
		switch key {
		case "UI_LANG":
			return "en", true
		case "STORAGE_BACKEND":
			return "memory", true
		}
		return "", false
	})
	require.NoError(t, err)
	for _, fn := range tweak {
		fn(cfg)
	}

	if slot == nil {
		slot = storage.NewMemorySlot("tamween_customers")
	}
	svc := core.NewService(slot,
		core.WithDateFormatter(core.NewDateFormatter("en-US", time.UTC)),
		core.WithMaxImportSize(cfg.Import.MaxFileSize),
	)
	svc.Load(context.Background())

	srv := NewServer(svc, nil, cfg)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, svc: svc, slot: slot}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (e *testEnv) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req)
}

func (e *testEnv) sendJSON(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

func (e *testEnv) seed(t *testing.T, names ...string) []core.Customer {
	t.Helper()
	var out []core.Customer
	for _, n := range names {
		c, err := e.svc.Add(context.Background(), core.Candidate{Name: n, PageNumber: "1", FamilyCount: 2, SecretPin: "9"})
		require.NoError(t, err)
		out = append(out, c)
	}
	return out
}

func multipartBody(t *testing.T, file string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if file != "" {
		fw, err := mw.CreateFormFile("file", "backup.json")
		require.NoError(t, err)
		_, err = fw.Write([]byte(file))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestIndex_Empty(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.get("/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No customers yet")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestIndex_SearchAndFragment(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seed(t, "Amina", "Bilal")

	rec := env.get("/?q=ami")
	body := rec.Body.String()
	assert.Contains(t, body, "Amina")
	assert.NotContains(t, body, "Bilal")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("HX-Request", "true")
	frag := env.do(req).Body.String()
	assert.NotContains(t, frag, "<!doctype html>")
	assert.Contains(t, frag, "Bilal")
}

func TestIndex_LanguageSwitch(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.get("/?lang=ar")

	assert.Contains(t, rec.Body.String(), `dir="rtl"`)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "ar", cookies[0].Value)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	assert.Contains(t, env.do(req).Body.String(), `lang="ar"`)
}

func TestCreate_Form(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.postForm("/customers", url.Values{
		"name": {"Amina"}, "pageNumber": {"007"}, "familyCount": {"abc"}, "secretPin": {"1234"},
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	list := env.svc.List(core.Query{})
	require.Len(t, list, 1)
	assert.Equal(t, "007", list[0].PageNumber)
	assert.Equal(t, 1, list[0].FamilyCount)

	data, err := env.slot.Read(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Amina"`)
}

func TestCreate_MissingFields(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.postForm("/customers", url.Values{"name": {"Amina"}})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "VAL001")
	assert.Contains(t, rec.Body.String(), `value="Amina"`)
	assert.Equal(t, 0, env.svc.Len())
}

func TestCreate_WriteWarningKeepsRecord(t *testing.T) {
	env := newTestEnv(t, storage.WithQuota(storage.NewMemorySlot("k"), 10))
	rec := env.postForm("/customers", url.Values{
		"name": {"Amina"}, "pageNumber": {"1"}, "secretPin": {"1"},
	})

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?warning=STO002", rec.Header().Get("Location"))
	assert.Equal(t, 1, env.svc.Len())

	page := env.get("/?warning=STO002").Body.String()
	assert.Contains(t, page, "Storage is full")
}

func TestUpdate_Form(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.seed(t, "Amina")[0]

	assert.Equal(t, http.StatusOK, env.get("/customers/"+c.ID+"/edit").Code)

	rec := env.postForm("/customers/"+c.ID, url.Values{
		"name": {"Amina B"}, "pageNumber": {"2"}, "familyCount": {"5"}, "secretPin": {"9"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	got, err := env.svc.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Amina B", got.Name)
	assert.Equal(t, 5, got.FamilyCount)
	assert.Equal(t, c.CreatedAt, got.CreatedAt)
}

func TestUnknownCustomer(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.get("/customers/nope/edit")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "REC001")

	rec = env.postForm("/customers/nope", url.Values{"name": {"a"}, "pageNumber": {"1"}, "secretPin": {"1"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, env.svc.Len())
}

func TestDelete_RequiresConfirmation(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.seed(t, "Amina")[0]

	page := env.get("/customers/" + c.ID + "/delete")
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), `name="confirm" value="yes"`)

	rec := env.postForm("/customers/"+c.ID+"/delete", url.Values{})
	assert.Equal(t, http.StatusPreconditionRequired, rec.Code)
	assert.Contains(t, rec.Body.String(), "REQ001")
	assert.Equal(t, 1, env.svc.Len())

	rec = env.postForm("/customers/"+c.ID+"/delete", url.Values{"confirm": {"yes"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, 0, env.svc.Len())
}

func TestAPI_CustomerLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.sendJSON(http.MethodPost, "/api/customers",
		`{"name":"Amina","pageNumber":"3","familyCount":4,"secretPin":"77"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created mutationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotNil(t, created.Customer)
	id := created.Customer.ID
	assert.Nil(t, created.Warning)
	assert.Equal(t, 1, created.Total)

	rec = env.sendJSON(http.MethodPut, "/api/customers/"+id, `{"secretPin":"88"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	got := env.get("/api/customers/" + id)
	var c core.Customer
	require.NoError(t, json.Unmarshal(got.Body.Bytes(), &c))
	assert.Equal(t, "88", c.SecretPin)
	assert.Equal(t, "Amina", c.Name)

	var view core.View
	require.NoError(t, json.Unmarshal(env.get("/api/customers?sort=alphabetical").Body.Bytes(), &view))
	assert.Equal(t, 1, view.Total)
	assert.Equal(t, "4.0", view.Stats.Average)

	rec = env.sendJSON(http.MethodDelete, "/api/customers/"+id, "")
	assert.Equal(t, http.StatusPreconditionRequired, rec.Code)
	assert.Equal(t, "REQ001", decodeError(t, rec).Code)

	rec = env.sendJSON(http.MethodDelete, "/api/customers/"+id+"?confirm=true", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, env.svc.Len())

	rec = env.sendJSON(http.MethodDelete, "/api/customers/"+id+"?confirm=true", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "REC001", decodeError(t, rec).Code)
}

func TestAPI_BadRequests(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.sendJSON(http.MethodPost, "/api/customers", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "REQ002", decodeError(t, rec).Code)

	rec = env.sendJSON(http.MethodPost, "/api/customers", `{"name":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VAL001", decodeError(t, rec).Code)
	assert.Equal(t, 0, env.svc.Len())
}

func TestAPI_ErrorLanguage(t *testing.T) {
	env := newTestEnv(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/customers/none", nil)
	req.Header.Set("Accept-Language", "ar-EG,ar;q=0.9")

	resp := decodeError(t, env.do(req))
	assert.Equal(t, "REC001", resp.Code)
	assert.Equal(t, "العميل غير موجود", resp.Message)
}

func TestExport_Empty(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.get("/api/export/json")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "EXP001", decodeError(t, rec).Code)

	rec = env.get("/export/csv")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Nothing to export")
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
}

func TestExport_Files(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seed(t, "Amina")

	rec := env.get("/export/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "filename=tamween_backup_")
	records, err := core.DecodeJSON(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, env.svc.List(core.Query{}), records)

	rec = env.get("/api/export/csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "filename=tamween_customers_")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\ufeffName,"))

	assert.Equal(t, http.StatusNotFound, env.get("/export/xml").Code)
}

func TestImport_FormMerge(t *testing.T) {
	env := newTestEnv(t, nil)
	existing := env.seed(t, "Amina")[0]

	file := `[{"id":"` + existing.ID + `","name":"Other"},{"id":"new","name":"Bilal","pageNumber":"5","familyCount":3,"secretPin":"1","createdAt":1}]`
	body, ct := multipartBody(t, file, map[string]string{"policy": "merge", "confirm": "yes"})
	req := httptest.NewRequest(http.MethodPost, "/import", body)
	req.Header.Set("Content-Type", ct)
	rec := env.do(req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Import complete")

	list := env.svc.List(core.Query{})
	require.Len(t, list, 2)
	got, err := env.svc.Get(existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Amina", got.Name, "current record wins on merge")
}

func TestImport_FormRejections(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		fields map[string]string
		status int
		code   string
	}{
		{"no file", "", map[string]string{"policy": "merge", "confirm": "yes"}, http.StatusBadRequest, "IMP004"},
		{"no policy", `[]`, map[string]string{"confirm": "yes"}, http.StatusBadRequest, "IMP002"},
		{"not confirmed", `[]`, map[string]string{"policy": "replace"}, http.StatusPreconditionRequired, "REQ001"},
		{"not an array", `{"id":"x"}`, map[string]string{"policy": "replace", "confirm": "yes"}, http.StatusBadRequest, "IMP001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			env.seed(t, "Amina")

			body, ct := multipartBody(t, tt.file, tt.fields)
			req := httptest.NewRequest(http.MethodPost, "/import", body)
			req.Header.Set("Content-Type", ct)
			rec := env.do(req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.code)
			assert.Equal(t, 1, env.svc.Len(), "a rejected import changes nothing")
		})
	}
}

func TestImport_APIRawReplace(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seed(t, "Amina", "Bilal")

	rec := env.sendJSON(http.MethodPost, "/api/import?policy=replace", `[{"id":"b","name":"X"},{"id":"c","name":"C"}]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp importResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, core.PolicyReplace, resp.Policy)
	assert.Equal(t, 2, resp.Total)

	ids := []string{}
	for _, c := range env.svc.List(core.Query{}) {
		ids = append(ids, c.ID)
	}
	assert.ElementsMatch(t, []string{"b", "c"}, ids)
}

func TestImport_APIRequiresPolicy(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.sendJSON(http.MethodPost, "/api/import", `[]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "IMP002", decodeError(t, rec).Code)
}

func TestImport_APITooLarge(t *testing.T) {
	env := newTestEnv(t, nil, func(c *config.Config) { c.Import.MaxFileSize = 16 })
	rec := env.sendJSON(http.MethodPost, "/api/import?policy=merge", `[{"id":"a","name":"long enough to exceed"}]`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "IMP003", decodeError(t, rec).Code)
}

func TestAPI_ResetAndChanges(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.sendJSON(http.MethodPost, "/api/customers", `{"name":"A","pageNumber":"1","secretPin":"1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, http.StatusPreconditionRequired, env.sendJSON(http.MethodPost, "/api/reset", "").Code)
	assert.Equal(t, http.StatusOK, env.sendJSON(http.MethodPost, "/api/reset?confirm=true", "").Code)
	assert.Equal(t, 0, env.svc.Len())

	var changes []core.Change
	require.NoError(t, json.Unmarshal(env.get("/api/changes").Body.Bytes(), &changes))
	require.Len(t, changes, 2)
	assert.Equal(t, core.ActionReset, changes[0].Action)
	assert.Equal(t, core.ActionAdd, changes[1].Action)
	assert.Equal(t, "api", changes[1].Source.Origin)
}

func TestAPI_RateLimit(t *testing.T) {
	env := newTestEnv(t, nil, func(c *config.Config) { c.Server.RateLimit = 2 })

	assert.Equal(t, http.StatusOK, env.get("/api/stats").Code)
	assert.Equal(t, http.StatusOK, env.get("/api/stats").Code)
	rec := env.get("/api/stats")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Pages are not limited.
	assert.Equal(t, http.StatusOK, env.get("/").Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","records":0}`, rec.Body.String())
}
