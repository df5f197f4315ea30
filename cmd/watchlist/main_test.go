package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"watchlist/internal/engine"
)

var setupOnce sync.Once

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	setupOnce.Do(func() {
		initConfig()
		addPersistentFlags()
		registerCommands()
	})
	var out, errOut bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommandFlow(t *testing.T) {
	ws := t.TempDir()
	common := []string{"-w", ws, "--log-level", "error"}
	cmd := func(args ...string) []string { return append(append([]string{}, args...), common...) }

	out, err := run(t, "Dune\n2021\nmovie\ny\n\n", cmd("append", "--json=false")...)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if !strings.Contains(out, `appended "Dune"`) {
		t.Fatalf("append output %q", out)
	}
	if _, err := run(t, "Frieren\n2023\nanime\ny\np\n1\nn\n\n", cmd("a", "--json=false")...); err != nil {
		t.Fatalf("append series: %v", err)
	}

	out, err = run(t, "", cmd("list-all", "--json", "--format", "")...)
	if err != nil {
		t.Fatalf("list-all: %v", err)
	}
	if !strings.Contains(out, `"title": "Dune"`) || !strings.Contains(out, `"season": 1`) {
		t.Fatalf("list-all output %q", out)
	}

	out, err = run(t, "", cmd("d", "Frieren", "--json=false", "--format", "yaml")...)
	if err != nil {
		t.Fatalf("list-details: %v", err)
	}
	if !strings.Contains(out, "medium: Anime") || !strings.Contains(out, "ongoing: true") {
		t.Fatalf("details output %q", out)
	}

	_, err = run(t, "", cmd("d", "Dun", "--json=false", "--format", "")...)
	if !errors.Is(err, engine.ErrNoMatch) || !strings.Contains(err.Error(), `did you mean "Dune"`) {
		t.Fatalf("expected suggestion, got %v", err)
	}

	out, err = run(t, "4\nn\n\n", cmd("edit", "Dune", "--json=false")...)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if !strings.Contains(out, `edited 1 of 1 record(s) titled "Dune"`) {
		t.Fatalf("edit output %q", out)
	}

	out, err = run(t, "", cmd("r", "Dune", "--json=false")...)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !strings.Contains(out, `removed 1 of 1 record(s) titled "Dune"`) {
		t.Fatalf("remove output %q", out)
	}
	data, err := os.ReadFile(filepath.Join(ws, "watchlist.jsonl"))
	if err != nil {
		t.Fatalf("read data: %v", err)
	}
	if strings.Contains(string(data), "Dune") || !strings.Contains(string(data), "Frieren") {
		t.Fatalf("data file %q", data)
	}

	out, err = run(t, "", cmd("history", "--json", "--format", "", "--title", "Dune")...)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	for _, kind := range []string{`"kind": "append"`, `"kind": "edit"`, `"kind": "remove"`} {
		if !strings.Contains(out, kind) {
			t.Fatalf("history missing %s: %q", kind, out)
		}
	}
}

func TestConfigInitAndShow(t *testing.T) {
	ws := t.TempDir()
	out, err := run(t, "", "config", "init", "-w", ws, "--force=false")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(out, "watchlist.yml") {
		t.Fatalf("init output %q", out)
	}
	if _, err := run(t, "", "config", "init", "-w", ws, "--force=false"); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}

	out, err = run(t, "", "config", "show", "-w", ws, "--json=false", "-d", "shows.jsonl")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "datafile: "+filepath.Join(ws, "shows.jsonl")) {
		t.Fatalf("show output %q", out)
	}
}
