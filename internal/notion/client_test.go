package notion

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf16"

	"github.com/cenkalti/backoff/v4"
	"github.com/claude/wlog/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// newTestServer routes requests to handler functions keyed by "METHOD path".
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.Method+" "+r.URL.Path]
		if !ok {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
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

func noRetry() backoff.BackOff {
	return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 0)
}

// TestClientHeaders verifies auth and version headers on every call.
func TestClientHeaders(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"GET /v1/users": func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer secret" {
				t.Errorf("Authorization=%q, want 'Bearer secret'", got)
			}
			if got := r.Header.Get("Notion-Version"); got != DefaultVersion {
				t.Errorf("Notion-Version=%q, want %s", got, DefaultVersion)
			}
			writeTestJSON(t, w, map[string]any{
				"results": []User{{ID: "u1", Type: "person", Name: "Ada"}},
			})
		},
	})

	users, err := New(ts.URL, "secret").ListUsers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].Name != "Ada" {
		t.Errorf("users = %+v, want one user named Ada", users)
	}
}

// TestWithTokenCopies verifies WithToken does not mutate the original client.
func TestWithTokenCopies(t *testing.T) {
	base := New("http://example.invalid", "a")
	other := base.WithToken("b")
	if base.token != "a" || other.token != "b" {
		t.Errorf("tokens = %q/%q, want a/b", base.token, other.token)
	}
}

// TestQueryDataSourcePaginates verifies cursors are followed until has_more is false.
func TestQueryDataSourcePaginates(t *testing.T) {
	var calls int32
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"POST /v1/data_sources/ds1/query": func(w http.ResponseWriter, r *http.Request) {
			var req QueryRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatal(err)
			}
			if len(req.Sorts) != 1 || req.Sorts[0].Property != "Name" {
				t.Errorf("sorts = %+v, want Name", req.Sorts)
			}
			switch atomic.AddInt32(&calls, 1) {
			case 1:
				if req.StartCursor != "" {
					t.Errorf("first start_cursor = %q, want empty", req.StartCursor)
				}
				next := "c2"
				writeTestJSON(t, w, listResponse[Page]{Results: []Page{{ID: "p1"}}, HasMore: true, NextCursor: &next})
			default:
				if req.StartCursor != "c2" {
					t.Errorf("second start_cursor = %q, want c2", req.StartCursor)
				}
				writeTestJSON(t, w, listResponse[Page]{Results: []Page{{ID: "p2"}}})
			}
		},
	})

	pages, err := New(ts.URL, "t").QueryDataSource(context.Background(), "ds1", QueryRequest{
		Sorts: []Sort{{Property: "Name", Direction: "ascending"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 2 || pages[0].ID != "p1" || pages[1].ID != "p2" {
		t.Errorf("pages = %+v, want p1, p2", pages)
	}
}

// TestCreatePageBody verifies the request body of a page creation.
func TestCreatePageBody(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"POST /v1/pages": func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			for _, want := range []string{`"data_source_id":"ds1"`, `"number":0`, `"content":"Bench"`} {
				if !strings.Contains(string(body), want) {
					t.Errorf("body %s missing %s", body, want)
				}
			}
			writeTestJSON(t, w, Page{ID: "new"})
		},
	})

	p, err := New(ts.URL, "t").CreatePage(context.Background(), CreatePageRequest{
		Parent: Parent{DataSourceID: "ds1"},
		Properties: map[string]Property{
			"Name":   TitleProperty("Bench"),
			"Weight": NumberProperty(0),
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.ID != "new" {
		t.Errorf("id = %q, want new", p.ID)
	}
}

// TestAPIErrorNotRetried verifies 4xx responses fail immediately with an APIError.
func TestAPIErrorNotRetried(t *testing.T) {
	var calls int32
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"GET /v1/databases/missing": func(w http.ResponseWriter, _ *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"object":"error","status":404,"code":"object_not_found","message":"Could not find database"}`))
		},
	})

	_, err := New(ts.URL, "t").RetrieveDatabase(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
	if !strings.Contains(err.Error(), "object_not_found") {
		t.Errorf("error %q should carry the remote code", err)
	}
}

// TestRateLimitRetried verifies 429 responses are retried under the back-off policy.
func TestRateLimitRetried(t *testing.T) {
	var calls int32
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"GET /v1/users": func(w http.ResponseWriter, _ *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"status":429,"code":"rate_limited","message":"slow down"}`))
				return
			}
			writeTestJSON(t, w, map[string]any{"results": []User{}})
		},
	})

	m, reg := metrics.NewTestManagerAndRegistry()
	c := New(ts.URL, "t", WithMetrics(m), WithBackOff(func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 5)
	}))
	if _, err := c.ListUsers(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
	if got := testutil.ToFloat64(m.CounterRemoteRequests.WithLabelValues("users.list", "200")); got != 1 {
		t.Errorf("remote request counter = %v, want 1", got)
	}
	if n, err := testutil.GatherAndCount(reg, "wlog_test_remote_request_duration_seconds"); err != nil || n != 1 {
		t.Errorf("duration series = %d (%v), want 1", n, err)
	}
}

// TestServerErrorExhaustsRetries verifies the last error is returned once retries run out.
func TestServerErrorExhaustsRetries(t *testing.T) {
	var calls int32
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"GET /v1/users": func(w http.ResponseWriter, _ *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`upstream down`))
		},
	})

	c := New(ts.URL, "t", WithBackOff(func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
	}))
	_, err := c.ListUsers(context.Background())
	if err == nil {
		t.Fatal("expected error for 502 response")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
	if !strings.Contains(err.Error(), "upstream down") {
		t.Errorf("error %q should carry the response body", err)
	}
}

// TestUnauthorized verifies token rejection is recognisable.
func TestUnauthorized(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"POST /v1/search": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":401,"code":"unauthorized","message":"API token is invalid."}`))
		},
	})

	_, err := New(ts.URL, "bad", WithBackOff(noRetry)).Search(context.Background(), SearchRequest{})
	if !IsUnauthorized(err) {
		t.Errorf("err = %v, want unauthorized", err)
	}
}

// TestUpdatePageArchive verifies archiving sends PATCH with archived=true.
func TestUpdatePageArchive(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"PATCH /v1/pages/p1": func(w http.ResponseWriter, r *http.Request) {
			var req UpdatePageRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatal(err)
			}
			if req.Archived == nil || !*req.Archived {
				t.Errorf("archived = %v, want true", req.Archived)
			}
			writeTestJSON(t, w, Page{ID: "p1", Archived: true})
		},
	})

	archived := true
	p, err := New(ts.URL, "t").UpdatePage(context.Background(), "p1", UpdatePageRequest{Archived: &archived})
	if err != nil {
		t.Fatal(err)
	}
	if !p.Archived {
		t.Error("page not archived")
	}
}

// TestRichTextPropertySplits verifies long text is split at the remote limit.
func TestRichTextPropertySplits(t *testing.T) {
	s := strings.Repeat("é", MaxRichTextLength+5)
	p := RichTextProperty(s)
	if len(p.RichText) != 2 {
		t.Fatalf("got %d fragments, want 2", len(p.RichText))
	}
	if n := len([]rune(p.RichText[0].Text.Content)); n != MaxRichTextLength {
		t.Errorf("first fragment = %d runes, want %d", n, MaxRichTextLength)
	}
	if got := PlainText(p.RichText); got != s {
		t.Error("fragments do not concatenate to the input")
	}
}

// TestRichTextPropertySplitsUTF16 verifies fragments are measured in UTF-16
// code units, so characters outside the BMP count twice.
func TestRichTextPropertySplitsUTF16(t *testing.T) {
	s := strings.Repeat("💪", MaxRichTextLength) // 2 units each
	p := RichTextProperty(s)
	if len(p.RichText) != 2 {
		t.Fatalf("got %d fragments, want 2", len(p.RichText))
	}
	for i, rt := range p.RichText {
		if n := len(utf16.Encode([]rune(rt.Text.Content))); n != MaxRichTextLength {
			t.Errorf("fragment %d = %d units, want %d", i, n, MaxRichTextLength)
		}
	}
	if got := PlainText(p.RichText); got != s {
		t.Error("fragments do not concatenate to the input")
	}
}

// TestPlainTextPrefersPlainText verifies response fragments are read from plain_text.
func TestPlainTextPrefersPlainText(t *testing.T) {
	rt := []RichText{{PlainText: "a", Text: &Text{Content: "x"}}, {Text: &Text{Content: "b"}}}
	if got := PlainText(rt); got != "ab" {
		t.Errorf("PlainText = %q, want ab", got)
	}
}
