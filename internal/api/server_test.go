package api

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/PawornpratKongdaeng/shodaiev/internal/audit"
	"github.com/PawornpratKongdaeng/shodaiev/internal/auth"
	"github.com/PawornpratKongdaeng/shodaiev/internal/infrastructure/config"
	"github.com/PawornpratKongdaeng/shodaiev/internal/infrastructure/logging"
	"github.com/PawornpratKongdaeng/shodaiev/internal/metrics"
	"github.com/PawornpratKongdaeng/shodaiev/internal/siteconfig"
	"github.com/PawornpratKongdaeng/shodaiev/internal/upload"
)

const (
	testUser   = "admin"
	testPass   = "correct horse battery staple"
	testSecret = "0123456789abcdef0123456789abcdef-test"
)

// pngHeader is enough for http.DetectContentType to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

type memAudit struct {
	mu      sync.Mutex
	entries []*audit.Entry
}

func (m *memAudit) Create(_ context.Context, e *audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memAudit) List(_ context.Context, _ audit.Filter) (*audit.ListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &audit.ListResult{Entries: m.entriesCopy(), Total: len(m.entries), Limit: 50}, nil
}

func (m *memAudit) entriesCopy() []audit.Entry {
	out := make([]audit.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, *e)
	}
	return out
}

type failingChecker struct{}

func (failingChecker) HealthCheck(context.Context) error { return errors.New("broker unreachable") }

type testEnv struct {
	srv       *Server
	handler   http.Handler
	backend   *siteconfig.MemoryBackend
	uploadDir string
	cookie    *http.Cookie
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	backend := siteconfig.NewMemoryBackend(nil)
	store := siteconfig.NewStore(backend, siteconfig.Options{CacheTTL: -1})

	gate, err := auth.NewGate(auth.GateConfig{Username: testUser, Password: testPass, Secret: testSecret})
	if err != nil {
		t.Fatalf("NewGate() error = %v", err)
	}

	dir := t.TempDir()
	uploader, err := upload.NewLocal(dir, "/uploads", 1<<20)
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}

	srv, err := New(Deps{
		Config:   config.APIConfig{MaxBodyBytes: 1 << 20},
		Site:     config.SiteConfig{Name: "ShodaiEV", URL: "https://shodaiev.example/"},
		Upload:   config.UploadConfig{Dir: dir, PublicPrefix: "/uploads", MaxBytes: 1 << 20, Concurrency: 2},
		Logger:   logging.Discard(),
		Store:    store,
		Gate:     gate,
		Uploader: uploader,
		Audit:    &memAudit{},
		Metrics:  metrics.New(),
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &testEnv{srv: srv, handler: srv.Handler(), backend: backend, uploadDir: dir}
}

// login authenticates the env and keeps the session cookie for later calls.
func (e *testEnv) login(t *testing.T) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/admin/api/login", map[string]string{"username": testUser, "password": testPass})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", w.Code, w.Body)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName {
			e.cookie = c
		}
	}
	if e.cookie == nil {
		t.Fatal("login did not set the session cookie")
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return e.send(req)
}

func (e *testEnv) send(req *http.Request) *httptest.ResponseRecorder {
	if e.cookie != nil {
		req.AddCookie(e.cookie)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) site(t *testing.T) *siteconfig.SiteConfig {
	t.Helper()
	w := e.do(t, http.MethodGet, "/admin/api/site", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET site status = %d, body = %s", w.Code, w.Body)
	}
	var cfg siteconfig.SiteConfig
	decode(t, w, &cfg)
	return &cfg
}

// drainAudit returns the entries queued since the last call.
func (e *testEnv) drainAudit() []*audit.Entry {
	var out []*audit.Entry
	for {
		select {
		case entry := <-e.srv.auditCh:
			out = append(out, entry)
		default:
			return out
		}
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding %q: %v", w.Body.String(), err)
	}
}

func multipartUpload(t *testing.T, fields map[string]string, fileField string, files map[string][]byte) *http.Request {
	t.Helper()
	named := make([]namedFile, 0, len(files))
	for name, data := range files {
		named = append(named, namedFile{name: name, data: data})
	}
	return multipartUploadFiles(t, fields, fileField, named)
}

type namedFile struct {
	name string
	data []byte
}

// multipartUploadFiles builds an upload request with files in the given order.
func multipartUploadFiles(t *testing.T, fields map[string]string, fileField string, files []namedFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(fileField, f.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(f.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/admin/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestNewRequiresDependencies(t *testing.T) {
	store := siteconfig.NewStore(siteconfig.NewMemoryBackend(nil), siteconfig.Options{})
	gate, err := auth.NewGate(auth.GateConfig{Username: testUser, Password: testPass, Secret: testSecret})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		deps Deps
	}{
		{"no logger", Deps{Store: store, Gate: gate}},
		{"no store", Deps{Logger: logging.Discard(), Gate: gate}},
		{"no gate", Deps{Logger: logging.Discard(), Store: store}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.deps); err == nil {
				t.Error("New() error = nil, want error")
			}
		})
	}
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCookie bool
	}{
		{"empty credentials", map[string]string{}, http.StatusBadRequest, false},
		{"wrong password", map[string]string{"username": testUser, "password": "nope"}, http.StatusUnauthorized, false},
		{"wrong user", map[string]string{"username": "root", "password": testPass}, http.StatusUnauthorized, false},
		{"valid", map[string]string{"username": testUser, "password": testPass}, http.StatusOK, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			w := env.do(t, http.MethodPost, "/admin/api/login", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body)
			}

			var cookie *http.Cookie
			for _, c := range w.Result().Cookies() {
				if c.Name == sessionCookieName {
					cookie = c
				}
			}
			if (cookie != nil) != tt.wantCookie {
				t.Fatalf("cookie set = %v, want %v", cookie != nil, tt.wantCookie)
			}
			if cookie == nil {
				return
			}
			if cookie.Path != "/admin" {
				t.Errorf("cookie path = %q, want /admin", cookie.Path)
			}
			if !cookie.HttpOnly {
				t.Error("cookie is not HttpOnly")
			}
			if cookie.SameSite != http.SameSiteLaxMode {
				t.Errorf("cookie SameSite = %v, want Lax", cookie.SameSite)
			}
		})
	}
}

func TestLoginRecordsAudit(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	entries := env.drainAudit()
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(entries))
	}
	if entries[0].Action != audit.ActionLogin || entries[0].Username != testUser {
		t.Errorf("entry = %+v, want login by %s", entries[0], testUser)
	}
}

func TestAdminGate(t *testing.T) {
	env := newTestEnv(t)

	// API calls without a session answer 401.
	w := env.do(t, http.MethodGet, "/admin/api/hero", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("API without session: status = %d, want 401", w.Code)
	}

	// Console pages redirect to the login page.
	w = env.do(t, http.MethodGet, "/admin/", nil)
	if w.Code != http.StatusFound {
		t.Fatalf("page without session: status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/admin/login" {
		t.Errorf("Location = %q, want /admin/login", loc)
	}

	// The login page itself is public.
	w = env.do(t, http.MethodGet, "/admin/login", nil)
	if w.Code != http.StatusOK {
		t.Errorf("login page: status = %d, want 200", w.Code)
	}

	env.login(t)

	w = env.do(t, http.MethodGet, "/admin/", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "<!DOCTYPE html>") {
		t.Errorf("console with session: status = %d", w.Code)
	}
	w = env.do(t, http.MethodGet, "/admin/login", nil)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/admin/" {
		t.Errorf("login page with session: status = %d, Location = %q", w.Code, w.Header().Get("Location"))
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	w := env.do(t, http.MethodGet, "/admin/api/session", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("session status = %d", w.Code)
	}
	var sess sessionResponse
	decode(t, w, &sess)
	if sess.Username != testUser {
		t.Errorf("session username = %q", sess.Username)
	}

	w = env.do(t, http.MethodPost, "/admin/api/logout", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("logout status = %d", w.Code)
	}

	// The old cookie value no longer works even if the browser keeps it.
	w = env.do(t, http.MethodGet, "/admin/api/session", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("session after logout: status = %d, want 401", w.Code)
	}
}

func TestHeroRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	w := env.do(t, http.MethodGet, "/admin/api/hero", nil)
	var hero heroPayload
	decode(t, w, &hero)
	if hero.HeroTitle == nil || *hero.HeroTitle != siteconfig.DefaultHeroTitle {
		t.Fatalf("seeded hero title = %v, want %q", hero.HeroTitle, siteconfig.DefaultHeroTitle)
	}

	w = env.do(t, http.MethodPost, "/admin/api/hero", map[string]string{"heroTitle": "ร้านโชได", "phone": "081-234-5678"})
	if w.Code != http.StatusOK {
		t.Fatalf("save hero status = %d, body = %s", w.Code, w.Body)
	}
	var saved savedResponse
	decode(t, w, &saved)
	if !saved.OK || saved.Revision == "" {
		t.Errorf("saved = %+v", saved)
	}
	if got := w.Header().Get("ETag"); got != `"`+saved.Revision+`"` {
		t.Errorf("ETag = %q, want quoted revision", got)
	}

	cfg := env.site(t)
	if cfg.HeroTitle != "ร้านโชได" || cfg.Phone != "081-234-5678" {
		t.Errorf("hero not saved: title %q phone %q", cfg.HeroTitle, cfg.Phone)
	}
	if cfg.HeroSubtitle != siteconfig.DefaultHeroSubtitle {
		t.Errorf("absent subtitle changed to %q", cfg.HeroSubtitle)
	}
}

func TestThemeMergesChannels(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	w := env.do(t, http.MethodPost, "/admin/api/theme", map[string]any{"theme": map[string]string{"primary": "#112233", "accent": ""}})
	if w.Code != http.StatusOK {
		t.Fatalf("save theme status = %d, body = %s", w.Code, w.Body)
	}

	cfg := env.site(t)
	want := siteconfig.DefaultTheme
	want.Primary = "#112233"
	if cfg.Theme != want {
		t.Errorf("theme = %+v, want %+v", cfg.Theme, want)
	}

	tests := []struct {
		name string
		body any
	}{
		{"missing theme", map[string]any{}},
		{"not a colour", map[string]any{"theme": map[string]string{"text": "black"}}},
		{"wrong type", map[string]any{"theme": "dark"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := env.do(t, http.MethodPost, "/admin/api/theme", tt.body); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestSaveTopicsAssignsIDs(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	body := map[string]any{"topics": []map[string]string{
		{"title": "ติดตั้ง ที่ชาร์จ"},
		{"title": "!!!"},
		{"title": "???"},
		{"id": "Wall Box", "title": "ignored for id"},
	}}
	w := env.do(t, http.MethodPost, "/admin/api/topics", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}

	cfg := env.site(t)
	want := []string{"ติดตั้ง-ที่ชาร์จ", "service", "service-2", "wall-box"}
	if len(cfg.Topics) != len(want) {
		t.Fatalf("topics = %d, want %d", len(cfg.Topics), len(want))
	}
	for i, id := range want {
		if cfg.Topics[i].ID != id {
			t.Errorf("topics[%d].id = %q, want %q", i, cfg.Topics[i].ID, id)
		}
	}
}

func TestTopicLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	w := env.do(t, http.MethodPost, "/admin/api/topics/items", map[string]string{"title": "Home Charger"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body)
	}
	var created topicResponse
	decode(t, w, &created)
	if created.Topic.ID != "home-charger" {
		t.Fatalf("created id = %q", created.Topic.ID)
	}

	// A detail edit requires an existing topic.
	if w := env.do(t, http.MethodPut, "/admin/api/serviceDetail/nope/", map[string]string{"title": "x"}); w.Code != http.StatusNotFound {
		t.Errorf("detail for missing topic: status = %d, want 404", w.Code)
	}
	if w := env.do(t, http.MethodPut, "/admin/api/serviceDetail/home-charger/", map[string]string{"title": "Detail"}); w.Code != http.StatusOK {
		t.Fatalf("upsert detail status = %d, body = %s", w.Code, w.Body)
	}

	// Renaming the id carries the service detail along.
	w = env.do(t, http.MethodPut, "/admin/api/topics/items/home-charger", map[string]string{"id": "wallbox", "title": "Wallbox"})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body)
	}
	cfg := env.site(t)
	if len(cfg.ServiceDetails) != 1 || cfg.ServiceDetails[0].TopicID != "wallbox" {
		t.Errorf("service details after rename = %+v", cfg.ServiceDetails)
	}

	if w := env.do(t, http.MethodPut, "/admin/api/topics/items/home-charger", map[string]string{"title": "Gone"}); w.Code != http.StatusNotFound {
		t.Errorf("update old id: status = %d, want 404", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/admin/api/topics/items", map[string]string{"title": "  "}); w.Code != http.StatusBadRequest {
		t.Errorf("create without title: status = %d, want 400", w.Code)
	}

	if w := env.do(t, http.MethodDelete, "/admin/api/topics/items/wallbox", nil); w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	cfg = env.site(t)
	if len(cfg.Topics) != 0 || len(cfg.ServiceDetails) != 0 {
		t.Errorf("after delete: topics %d, details %d", len(cfg.Topics), len(cfg.ServiceDetails))
	}
}

func TestDetailSections(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.do(t, http.MethodPost, "/admin/api/topics/items", map[string]string{"title": "Battery"})

	w := env.do(t, http.MethodPost, "/admin/api/serviceDetail/battery/sections", map[string]string{"title": "Check"})
	if w.Code != http.StatusOK {
		t.Fatalf("add section status = %d, body = %s", w.Code, w.Body)
	}
	var resp detailResponse
	decode(t, w, &resp)
	if resp.SectionID == "" || len(resp.ServiceDetail.Sections) != 1 {
		t.Fatalf("add section response = %+v", resp)
	}
	base := "/admin/api/serviceDetail/battery/sections/" + resp.SectionID

	if w := env.do(t, http.MethodPost, base+"/images", map[string]any{"urls": []string{"/uploads/a.png", "", "/uploads/b.png"}}); w.Code != http.StatusOK {
		t.Fatalf("append images status = %d", w.Code)
	}
	if w := env.do(t, http.MethodDelete, base+"/images", map[string]string{"url": "/uploads/a.png"}); w.Code != http.StatusOK {
		t.Fatalf("remove image status = %d", w.Code)
	}
	w = env.do(t, http.MethodPut, base+"/", map[string]string{"description": "Yearly"})
	if w.Code != http.StatusOK {
		t.Fatalf("update section status = %d", w.Code)
	}
	decode(t, w, &resp)
	sec := resp.ServiceDetail.Sections[0]
	if sec.Title != "Check" || sec.Description != "Yearly" {
		t.Errorf("section = %+v", sec)
	}
	if len(sec.Images) != 1 || sec.Images[0] != "/uploads/b.png" {
		t.Errorf("section images = %v", sec.Images)
	}

	if w := env.do(t, http.MethodDelete, "/admin/api/serviceDetail/battery/sections/missing/", nil); w.Code != http.StatusNotFound {
		t.Errorf("remove missing section: status = %d, want 404", w.Code)
	}
	if w := env.do(t, http.MethodDelete, base+"/", nil); w.Code != http.StatusOK {
		t.Errorf("remove section: status = %d", w.Code)
	}
}

func TestSaveDetailsRejectsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	body := map[string]any{"serviceDetails": []map[string]string{{"topicId": "a"}, {"topicId": "a"}}}
	if w := env.do(t, http.MethodPost, "/admin/api/serviceDetail/", body); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGalleryEdits(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	gallery := func(w *httptest.ResponseRecorder) []string {
		t.Helper()
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body)
		}
		var g galleryPayload
		decode(t, w, &g)
		return g.HomeGallery
	}

	got := gallery(env.do(t, http.MethodPost, "/admin/api/homeGallery/images", map[string]any{"urls": []string{"a", "b", "a", "c"}}))
	if strings.Join(got, ",") != "a,b,a,c" {
		t.Fatalf("after append = %v", got)
	}
	got = gallery(env.do(t, http.MethodPost, "/admin/api/homeGallery/move", map[string]any{"index": 3, "direction": "up"}))
	if strings.Join(got, ",") != "a,b,c,a" {
		t.Errorf("after move = %v", got)
	}
	got = gallery(env.do(t, http.MethodPost, "/admin/api/homeGallery/move", map[string]any{"index": 0, "direction": "up"}))
	if strings.Join(got, ",") != "a,b,c,a" {
		t.Errorf("move first up should be a no-op, got %v", got)
	}
	got = gallery(env.do(t, http.MethodDelete, "/admin/api/homeGallery/images", map[string]string{"url": "a"}))
	if strings.Join(got, ",") != "b,c" {
		t.Errorf("after remove = %v", got)
	}

	tests := []struct {
		name string
		body any
	}{
		{"index out of range", map[string]any{"index": 9, "direction": "down"}},
		{"bad direction", map[string]any{"index": 0, "direction": "left"}},
		{"missing index", map[string]any{"direction": "down"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := env.do(t, http.MethodPost, "/admin/api/homeGallery/move", tt.body); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestPutSiteIfMatch(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	w := env.do(t, http.MethodGet, "/admin/api/site", nil)
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("GET site has no ETag")
	}
	var doc map[string]any
	decode(t, w, &doc)
	doc["heroTitle"] = "First"

	w = env.do(t, http.MethodPut, "/admin/api/site", doc, "If-Match", etag)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT with fresh ETag status = %d, body = %s", w.Code, w.Body)
	}
	if w.Header().Get("ETag") == etag {
		t.Error("ETag did not change after write")
	}

	// The stale tag now loses.
	doc["heroTitle"] = "Second"
	w = env.do(t, http.MethodPut, "/admin/api/site", doc, "If-Match", etag)
	if w.Code != http.StatusPreconditionFailed {
		t.Fatalf("PUT with stale ETag status = %d, want 412", w.Code)
	}
	if cfg := env.site(t); cfg.HeroTitle != "First" {
		t.Errorf("stale write landed: heroTitle = %q", cfg.HeroTitle)
	}

	// Without If-Match the write is unconditional.
	if w := env.do(t, http.MethodPut, "/admin/api/site", doc); w.Code != http.StatusOK {
		t.Errorf("PUT without If-Match status = %d", w.Code)
	}
}

func TestPutSiteRejectsBadDocuments(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	tests := []struct {
		name string
		body any
	}{
		{"type mismatch", map[string]any{"heroTitle": 42}},
		{"duplicate details", map[string]any{"serviceDetails": []map[string]string{{"topicId": "x"}, {"topicId": "x"}}}},
		{"bad colour", map[string]any{"theme": map[string]string{"primary": "orange"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := env.do(t, http.MethodPut, "/admin/api/site", tt.body); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", w.Code, w.Body)
			}
		})
	}
}

func TestStorageFailureAnswers503(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.site(t) // seed

	env.backend.WriteErr = errors.New("disk full")
	w := env.do(t, http.MethodPost, "/admin/api/hero", map[string]string{"heroTitle": "x"})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	var resp Error
	decode(t, w, &resp)
	if resp.Message != "save failed, retry" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestSaveRecordsChangedFields(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.site(t)
	env.drainAudit()

	env.do(t, http.MethodPost, "/admin/api/contact", map[string]string{"businessName": "Shodai"})

	entries := env.drainAudit()
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Action != audit.ActionSave || e.Section != sectionContact || e.Username != testUser {
		t.Errorf("entry = %+v", e)
	}
	if len(e.Fields) != 1 || e.Fields[0] != "businessName" {
		t.Errorf("fields = %v, want [businessName]", e.Fields)
	}
	if e.Revision == "" {
		t.Error("entry has no revision")
	}
}

func TestUploadSingleToGallery(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	req := multipartUpload(t, map[string]string{"target": "homeGallery"}, "file", map[string][]byte{"Front Shop.png": pngHeader})
	w := env.send(req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	var resp uploadResponse
	decode(t, w, &resp)
	if !resp.OK || !strings.HasPrefix(resp.URL, "/uploads/front-shop-") || resp.Revision == "" {
		t.Fatalf("response = %+v", resp)
	}

	if cfg := env.site(t); len(cfg.HomeGallery) != 1 || cfg.HomeGallery[0] != resp.URL {
		t.Errorf("gallery = %v, want [%s]", cfg.HomeGallery, resp.URL)
	}

	// The stored file is served back under the public prefix.
	w = env.do(t, http.MethodGet, resp.URL, nil)
	if w.Code != http.StatusOK || !bytes.Equal(w.Body.Bytes(), pngHeader) {
		t.Errorf("GET %s: status = %d", resp.URL, w.Code)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := w.Header().Get("Content-Security-Policy"); !strings.Contains(got, "sandbox") {
		t.Errorf("Content-Security-Policy = %q, want sandbox", got)
	}
}

func TestUploadBatchIsolatesFailures(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.do(t, http.MethodPost, "/admin/api/topics/items", map[string]string{"title": "Charger"})

	req := multipartUpload(t,
		map[string]string{"target": "serviceDetail", "topicId": "charger"},
		"files",
		map[string][]byte{"one.png": pngHeader, "two.png": pngHeader, "notes.txt": []byte("plain text")},
	)
	w := env.send(req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	var resp batchResponse
	decode(t, w, &resp)
	if resp.OK {
		t.Error("ok = true with a rejected file")
	}
	if len(resp.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(resp.Results))
	}
	var okCount int
	for _, r := range resp.Results {
		if r.OK {
			okCount++
		} else if r.Name != "notes.txt" {
			t.Errorf("unexpected failure for %s: %s", r.Name, r.Error)
		}
	}
	if okCount != 2 {
		t.Errorf("stored = %d, want 2", okCount)
	}

	cfg := env.site(t)
	if len(cfg.ServiceDetails) != 1 || len(cfg.ServiceDetails[0].Images) != 2 {
		t.Errorf("service details = %+v", cfg.ServiceDetails)
	}
	entries, err := os.ReadDir(env.uploadDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("files on disk = %d, want 2", len(entries))
	}
}

func TestUploadBatchKeepsInputOrder(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	huge := append(bytes.Clone(pngHeader), make([]byte, 1<<20)...)
	req := multipartUploadFiles(t, nil, "files", []namedFile{
		{name: "one.png", data: pngHeader},
		{name: "huge.png", data: huge},
		{name: "two.png", data: pngHeader},
		{name: "notes.txt", data: []byte("plain text")},
	})
	w := env.send(req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	var resp batchResponse
	decode(t, w, &resp)

	want := []struct {
		name string
		ok   bool
	}{{"one.png", true}, {"huge.png", false}, {"two.png", true}, {"notes.txt", false}}
	if len(resp.Results) != len(want) {
		t.Fatalf("results = %+v", resp.Results)
	}
	for i, wr := range want {
		if got := resp.Results[i]; got.Name != wr.name || got.OK != wr.ok {
			t.Errorf("results[%d] = {%s ok=%v}, want {%s ok=%v}", i, got.Name, got.OK, wr.name, wr.ok)
		}
	}
}

func TestUploadUnknownDetailTargetWritesNoFile(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.do(t, http.MethodPost, "/admin/api/topics/items", map[string]string{"title": "Charger"})

	tests := []struct {
		name   string
		fields map[string]string
	}{
		{"unknown topic", map[string]string{"target": "serviceDetail", "topicId": "missing"}},
		{"unknown section", map[string]string{"target": "serviceDetail", "topicId": "charger", "sectionId": "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, field := range []string{"file", "files"} {
				w := env.send(multipartUpload(t, tt.fields, field, map[string][]byte{"a.png": pngHeader}))
				if w.Code != http.StatusNotFound {
					t.Errorf("%s: status = %d, want 404 (body %s)", field, w.Code, w.Body)
				}
			}
			entries, err := os.ReadDir(env.uploadDir)
			if err != nil {
				t.Fatal(err)
			}
			if len(entries) != 0 {
				t.Errorf("files on disk = %d, want 0", len(entries))
			}
		})
	}
}

func TestUploadRemovesFilesWhenTargetSaveFails(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.backend.WriteErr = errors.New("disk full")

	req := multipartUpload(t, map[string]string{"target": "homeGallery"}, "files",
		map[string][]byte{"one.png": pngHeader, "two.png": pngHeader})
	if w := env.send(req); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 (body %s)", w.Code, w.Body)
	}
	entries, err := os.ReadDir(env.uploadDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("files on disk = %d, want 0", len(entries))
	}
}

func TestUploadRejects(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{
			name:   "no file",
			req:    multipartUpload(t, nil, "file", nil),
			status: http.StatusBadRequest,
		},
		{
			name:   "not an image",
			req:    multipartUpload(t, nil, "file", map[string][]byte{"a.png": []byte("hello")}),
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown target",
			req:    multipartUpload(t, map[string]string{"target": "footer"}, "file", map[string][]byte{"a.png": pngHeader}),
			status: http.StatusBadRequest,
		},
		{
			name:   "detail target without topic",
			req:    multipartUpload(t, map[string]string{"target": "serviceDetail"}, "file", map[string][]byte{"a.png": pngHeader}),
			status: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := env.send(tt.req); w.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.status, w.Body)
			}
		})
	}
}

func TestPublicSite(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/site", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("no ETag")
	}
	if got := w.Header().Get("Cache-Control"); got != "no-cache" {
		t.Errorf("Cache-Control = %q", got)
	}

	w = env.do(t, http.MethodGet, "/api/site", nil, "If-None-Match", etag)
	if w.Code != http.StatusNotModified {
		t.Errorf("conditional GET status = %d, want 304", w.Code)
	}
}

func TestSitemap(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.do(t, http.MethodPost, "/admin/api/topics", map[string]any{"topics": []map[string]string{{"title": "ติดตั้ง"}, {"title": "Repair"}}})

	w := env.do(t, http.MethodGet, "/sitemap.xml", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var set urlSet
	if err := xml.Unmarshal(w.Body.Bytes(), &set); err != nil {
		t.Fatalf("parse sitemap: %v", err)
	}
	want := []string{
		"https://shodaiev.example",
		"https://shodaiev.example/page/product",
		"https://shodaiev.example/page/product/" + url.PathEscape(siteconfig.Slugify("ติดตั้ง")),
		"https://shodaiev.example/page/product/repair",
	}
	if len(set.URLs) != len(want) {
		t.Fatalf("urls = %d, want %d", len(set.URLs), len(want))
	}
	for i, loc := range want {
		if set.URLs[i].Loc != loc {
			t.Errorf("url[%d] = %q, want %q", i, set.URLs[i].Loc, loc)
		}
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	decode(t, w, &body)
	if body["status"] != "ok" || body["backend"] != "memory" {
		t.Errorf("health = %v", body)
	}

	env.srv.checks = map[string]HealthChecker{"mqtt": failingChecker{}}
	w = env.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("degraded status = %d, want 503", w.Code)
	}
}

func TestCORSAllowsOnlyReads(t *testing.T) {
	env := newTestEnv(t)
	env.srv.cfg.CORS.AllowedOrigins = []string{"https://shodaiev.example"}

	req := httptest.NewRequest(http.MethodOptions, "/api/site", nil)
	req.Header.Set("Origin", "https://shodaiev.example")
	w := env.send(req)
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); strings.Contains(got, "POST") {
		t.Errorf("Allow-Methods = %q, want reads only", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/site", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = env.send(req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin for unknown origin = %q", got)
	}
}

func TestListAudit(t *testing.T) {
	env := newTestEnv(t)
	repo := env.srv.auditRepo.(*memAudit)
	if err := repo.Create(context.Background(), &audit.Entry{Action: audit.ActionSave, Section: "hero"}); err != nil {
		t.Fatal(err)
	}
	env.login(t)

	w := env.do(t, http.MethodGet, "/admin/api/audit?limit=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var result audit.ListResult
	decode(t, w, &result)
	if result.Total != 1 || result.Entries[0].Section != "hero" {
		t.Errorf("result = %+v", result)
	}
}

func TestBodyLimit(t *testing.T) {
	env := newTestEnv(t)
	env.srv.cfg.MaxBodyBytes = 128
	env.handler = env.srv.Handler()
	env.login(t)

	big := map[string]string{"heroTitle": strings.Repeat("x", 256)}
	if w := env.do(t, http.MethodPost, "/admin/api/hero", big); w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}

func TestUploadsHandlerHidesDirectories(t *testing.T) {
	env := newTestEnv(t)
	if err := os.WriteFile(filepath.Join(env.uploadDir, "x.png"), pngHeader, 0o644); err != nil {
		t.Fatal(err)
	}

	if w := env.do(t, http.MethodGet, "/uploads/", nil); w.Code != http.StatusNotFound {
		t.Errorf("directory listing status = %d, want 404", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/uploads/x.png", nil); w.Code != http.StatusOK {
		t.Errorf("file status = %d, want 200", w.Code)
	}
}
