package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/claude/wlog/internal/auth"
	"github.com/claude/wlog/internal/metrics"
	"github.com/claude/wlog/internal/models"
	"github.com/claude/wlog/internal/notion"
	"github.com/claude/wlog/internal/storage"
	"github.com/claude/wlog/internal/workout"
	"github.com/google/go-cmp/cmp"
)

// remoteStub is a minimal stand-in for the remote API.
type remoteStub struct {
	mu      sync.Mutex
	pages   map[string][]notion.Page
	created []notion.CreatePageRequest
	status  int
}

func (rs *remoteStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	if rs.status != 0 {
		w.WriteHeader(rs.status)
		json.NewEncoder(w).Encode(notion.APIError{Status: rs.status, Code: "stub_error", Message: "stubbed failure"})
		return
	}
	switch {
	case strings.HasPrefix(r.URL.Path, "/v1/databases/"):
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(notion.APIError{Status: 404, Code: "object_not_found", Message: "not a database"})
	case strings.HasSuffix(r.URL.Path, "/query"):
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/data_sources/"), "/query")
		json.NewEncoder(w).Encode(map[string]any{"results": rs.pages[id], "has_more": false})
	case r.URL.Path == "/v1/pages" && r.Method == http.MethodPost:
		var req notion.CreatePageRequest
		json.NewDecoder(r.Body).Decode(&req)
		rs.created = append(rs.created, req)
		json.NewEncoder(w).Encode(notion.Page{ID: "new-page"})
	case strings.HasPrefix(r.URL.Path, "/v1/pages/") && r.Method == http.MethodPatch:
		json.NewEncoder(w).Encode(notion.Page{ID: strings.TrimPrefix(r.URL.Path, "/v1/pages/"), Archived: true})
	case r.URL.Path == "/v1/users":
		json.NewEncoder(w).Encode(map[string]any{"results": []notion.User{{ID: "u1", Type: "person", Name: "Ada"}}})
	case r.URL.Path == "/v1/search":
		json.NewEncoder(w).Encode(map[string]any{"results": []notion.DataSource{{ID: "d1", Name: "Workouts"}}})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type testEnv struct {
	srv      *Server
	store    storage.Sessions
	remote   *remoteStub
	metrics  *metrics.Manager
	cookie   *http.Cookie
	tokenURL string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	stub := &remoteStub{pages: map[string][]notion.Page{}}
	api := httptest.NewServer(stub)
	t.Cleanup(api.Close)

	store, err := storage.Open(context.Background(), storage.DriverSQLite, filepath.Join(t.TempDir(), "wlog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	m, reg := metrics.NewTestManagerAndRegistry()
	client := notion.New(api.URL, "", notion.WithMetrics(m), notion.WithBackOff(func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 0)
	}))
	svc := workout.NewService(workout.ClientFactory(client), notion.NewDataSourceCache(time.Hour, log), m, log)
	authn := auth.New(auth.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "https://wlog.example.com/api/auth/callback",
		BaseURL:      api.URL,
	}, store, log)

	sess := &storage.Session{
		ID:          "sess-1",
		AccessToken: "tok",
		Databases:   models.DatabaseConfig{WorkoutDBID: "workouts", LogDBID: "logs", RoutineDBID: "routines"},
		CreatedAt:   time.Now(),
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	if err := store.CreateSession(context.Background(), sess); err != nil {
		t.Fatal(err)
	}

	return &testEnv{
		srv:     New(svc, authn, store, Options{Metrics: m, Gatherer: reg, CORSOrigins: []string{"https://ui.example.com"}}, log),
		store:   store,
		remote:  stub,
		metrics: m,
		cookie:  &http.Cookie{Name: auth.SessionCookie, Value: sess.ID},
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.AddCookie(e.cookie)
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return v
}

// TestHealth verifies the health endpoint needs no session.
func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

// TestAPIRequiresSession verifies requests without a live session get a JSON 401.
func TestAPIRequiresSession(t *testing.T) {
	env := newTestEnv(t)
	for _, c := range []*http.Cookie{nil, {Name: auth.SessionCookie, Value: "unknown"}} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/exercises", nil)
		if c != nil {
			req.AddCookie(c)
		}
		rec := httptest.NewRecorder()
		env.srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
		if got := decodeJSON[map[string]string](t, rec)["error"]; got == "" {
			t.Error("missing error message")
		}
	}
}

func TestHandleMe(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/me", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := decodeJSON[map[string]any](t, rec)["name"]; got != "Ada" {
		t.Errorf("name = %v, want Ada", got)
	}
}

func TestConfigLifecycle(t *testing.T) {
	env := newTestEnv(t)

	got := decodeJSON[map[string]any](t, env.do(t, http.MethodGet, "/api/v1/config", ""))
	if got["isConfigured"] != true || got["routineDbId"] != "routines" {
		t.Errorf("config = %v", got)
	}

	rec := env.do(t, http.MethodPut, "/api/v1/config", `{"workoutDbId":"w2","logDbId":"l2"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d: %s", rec.Code, rec.Body)
	}
	sess, err := env.store.GetSession(context.Background(), "sess-1")
	if err != nil {
		t.Fatal(err)
	}
	want := models.DatabaseConfig{WorkoutDBID: "w2", LogDBID: "l2", RoutineDBID: "routines"}
	if diff := cmp.Diff(want, sess.Databases); diff != "" {
		t.Errorf("stored config mismatch (-want +got):\n%s", diff)
	}

	if rec := env.do(t, http.MethodPut, "/api/v1/config", `{"workoutDbId":"w2"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("incomplete config status = %d, want 400", rec.Code)
	}

	if rec := env.do(t, http.MethodDelete, "/api/v1/config", ""); rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d", rec.Code)
	}
	got = decodeJSON[map[string]any](t, env.do(t, http.MethodGet, "/api/v1/config", ""))
	if got["isConfigured"] != false {
		t.Errorf("config after clear = %v", got)
	}
}

func TestListExercisesHandler(t *testing.T) {
	env := newTestEnv(t)
	env.remote.pages["workouts"] = []notion.Page{{ID: "e1", Properties: map[string]notion.Property{
		"Name": {Title: []notion.RichText{{PlainText: "Bench"}}},
	}}}

	rec := env.do(t, http.MethodGet, "/api/v1/exercises", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	got := decodeJSON[[]models.Exercise](t, rec)
	want := []models.Exercise{{ID: "e1", Name: "Bench", Type: "Strength", Target: "Body"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("exercises mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateExerciseValidation(t *testing.T) {
	env := newTestEnv(t)
	if rec := env.do(t, http.MethodPost, "/api/v1/exercises", `{"name":""}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty name status = %d, want 400", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/v1/exercises", `{not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad JSON status = %d, want 400", rec.Code)
	}
	rec := env.do(t, http.MethodPost, "/api/v1/exercises", `{"name":"Squat","type":"Strength"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if got := decodeJSON[models.Exercise](t, rec); got.ID != "new-page" || got.Target != "Body" {
		t.Errorf("created = %+v", got)
	}
}

func TestSubmitLogHandler(t *testing.T) {
	env := newTestEnv(t)
	body := `[{"exerciseId":"e1","exerciseName":"Bench","date":"2024-05-01","sets":[{"weight":"50","reps":10},{"weight":55,"reps":""}]}]`
	rec := env.do(t, http.MethodPost, "/api/v1/logs", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if got := decodeJSON[map[string]any](t, rec); got["count"] != float64(2) || got["success"] != true {
		t.Errorf("response = %v", got)
	}
	if len(env.remote.created) != 2 {
		t.Errorf("created %d pages, want 2", len(env.remote.created))
	}
}

func TestRoutinesHandlers(t *testing.T) {
	env := newTestEnv(t)
	env.remote.pages["routines"] = []notion.Page{{ID: "r1", Properties: map[string]notion.Property{
		"Name": {Title: []notion.RichText{{PlainText: "Legs"}}},
		"Data": {RichText: []notion.RichText{{PlainText: `{"ex1":{"sets":2,"reps":5}}`}}},
	}}}

	rec := env.do(t, http.MethodGet, "/api/v1/routines", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	routines := decodeJSON[[]models.Routine](t, rec)
	if len(routines) != 1 || len(routines[0].Items) != 1 || len(routines[0].Items[0].Sets) != 2 {
		t.Fatalf("routines = %+v", routines)
	}
	if routines[0].Exercises == nil {
		t.Error("exercises should encode as an empty list, not null")
	}

	rec = env.do(t, http.MethodPost, "/api/v1/routines", `{"name":"Push","items":[{"id":"ex1","sets":[{"id":"s1","reps":5}]}]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("save status = %d: %s", rec.Code, rec.Body)
	}
	data := notion.PlainText(env.remote.created[0].Properties["Data"].RichText)
	if data != `[{"id":"ex1","sets":[{"id":"s1","reps":5}]}]` {
		t.Errorf("stored data = %s", data)
	}

	if rec := env.do(t, http.MethodDelete, "/api/v1/routines/r1", ""); rec.Code != http.StatusOK {
		t.Errorf("delete status = %d", rec.Code)
	}
}

func TestRemoteErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		remote int
		want   int
	}{
		{http.StatusUnauthorized, http.StatusUnauthorized},
		{http.StatusNotFound, http.StatusNotFound},
		{http.StatusBadRequest, http.StatusBadGateway},
		{http.StatusServiceUnavailable, http.StatusBadGateway},
	}
	for _, tt := range tests {
		env := newTestEnv(t)
		env.remote.status = tt.remote
		if rec := env.do(t, http.MethodGet, "/api/v1/routines", ""); rec.Code != tt.want {
			t.Errorf("remote %d: status = %d, want %d", tt.remote, rec.Code, tt.want)
		}
	}
}

func TestExerciseOptionsFallback(t *testing.T) {
	env := newTestEnv(t)
	env.remote.status = http.StatusBadGateway
	rec := env.do(t, http.MethodGet, "/api/v1/exercises/options", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeJSON[models.PropertyOptions](t, rec); len(got.Targets) != 9 {
		t.Errorf("targets = %v, want fallback list", got.Targets)
	}
}

func TestLoginRedirect(t *testing.T) {
	env := newTestEnv(t)
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "/v1/oauth/authorize") || !strings.Contains(loc, "state=") {
		t.Errorf("location = %s", loc)
	}
	var found bool
	for _, c := range rec.Result().Cookies() {
		found = found || c.Name == auth.StateCookie
	}
	if !found {
		t.Error("state cookie not set")
	}
}

func TestCallbackRejectsBadRequests(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{
		"/api/auth/callback?error=access_denied",
		"/api/auth/callback",
		"/api/auth/callback?code=abc&state=forged",
	} {
		rec := httptest.NewRecorder()
		env.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, rec.Code)
		}
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	if rec := env.do(t, http.MethodPost, "/api/auth/logout", ""); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/me", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("after logout status = %d, want 401", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/api/v1/config", "")

	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "wlog_test_requests_total") {
		t.Error("request counter missing from /metrics")
	}
}
