package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/claude/wlog/internal/auth"
	"github.com/claude/wlog/internal/models"
)

// newTestServer creates an httptest server that routes requests to handler functions
// keyed by path and checks the session cookie on every request.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(auth.SessionCookie); err != nil || c.Value != "sess-1" {
			t.Errorf("session cookie missing on %s", r.URL.Path)
		}
		h, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

func TestHTTPClientListExercises(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/exercises": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, []models.Exercise{{ID: "e1", Name: "Squat", Type: "Strength", Target: "Legs"}})
		},
	})

	got, err := NewHTTPClient(ts.URL+"/", "sess-1").ListExercises(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "Squat" {
		t.Errorf("exercises = %+v", got)
	}
}

func TestHTTPClientRoutinesAndOptions(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/routines": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[{"id":"r1","label":"Legs","exercises":["e1"],"items":[{"id":"e1","sets":[{"id":"s1","weight":100,"reps":5}]}]}]`))
		},
		"/api/v1/exercises/options": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, models.PropertyOptions{Types: []string{"Strength"}, Targets: []string{"Legs"}})
		},
		"/api/v1/databases": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, []models.DataSourceSummary{{ID: "ds1", Title: "Workouts"}})
		},
	})
	c := NewHTTPClient(ts.URL, "sess-1")
	ctx := context.Background()

	routines, err := c.ListRoutines(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(routines) != 1 || len(routines[0].Items) != 1 || routines[0].Items[0].Sets[0].Weight != 100 {
		t.Errorf("routines = %+v", routines)
	}

	opts, err := c.ExerciseOptions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(opts.Types) != 1 || opts.Targets[0] != "Legs" {
		t.Errorf("options = %+v", opts)
	}

	dbs, err := c.SearchDatabases(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(dbs) != 1 || dbs[0].ID != "ds1" {
		t.Errorf("databases = %+v", dbs)
	}
}

// TestHTTPClientServerError verifies non-200 responses carry the status
// and body.
func TestHTTPClientServerError(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/exercises": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"not signed in"}`, http.StatusUnauthorized)
		},
	})

	_, err := NewHTTPClient(ts.URL, "sess-1").ListExercises(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "401") || !strings.Contains(err.Error(), "not signed in") {
		t.Errorf("error = %v, want status and body", err)
	}
}
