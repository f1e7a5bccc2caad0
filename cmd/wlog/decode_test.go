package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/claude/wlog/internal/models"
)

func TestRunDecodeLegacyData(t *testing.T) {
	in := strings.NewReader(`[{"id":"ex1","data":{"sets":2,"weight":40,"reps":8}}]`)
	var out, report bytes.Buffer

	if err := runDecode(in, &out, &report, false, slog.Default()); err != nil {
		t.Fatal(err)
	}

	var items []models.RoutineItem
	if err := json.Unmarshal(out.Bytes(), &items); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if len(items) != 1 || items[0].ID != "ex1" || len(items[0].Sets) != 2 {
		t.Fatalf("items = %+v, want ex1 with 2 sets", items)
	}
	if items[0].Sets[0].Weight != 40 || items[0].Sets[0].Reps != 8 {
		t.Errorf("set = %+v, want weight 40 reps 8", items[0].Sets[0])
	}
	if got := report.String(); got != "format=items items=1 migrated=1 opaque=0\n" {
		t.Errorf("report = %q", got)
	}
}

func TestRunDecodeEmptyInput(t *testing.T) {
	var out bytes.Buffer
	if err := runDecode(strings.NewReader("  \n"), &out, nil, false, slog.Default()); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "[]\n" {
		t.Errorf("output = %q, want []", got)
	}
}

func TestRunDecodePretty(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader(`[{"id":"ex1","sets":[{"id":"s1","weight":10}]}]`)
	if err := runDecode(in, &out, nil, true, slog.Default()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "\n  {\n") {
		t.Errorf("output not indented:\n%s", out.String())
	}
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "mcp", "migrate", "decode"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}
