package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/subcommands"

	"TradeInfo/internal/domain/models"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	body := "storage:\n  type: sqlite\n  sqlite_path: " + filepath.Join(dir, "state.db") + "\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestImportThenExportUpgradesLegacyEnvelope(t *testing.T) {
	t.Setenv("TRADEINFO_STORAGE", "")
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	in := filepath.Join(dir, "legacy.json")
	legacy := `{"state":{"selectedTicker":"7203","watchlist":["7203","9984"]},"version":1}`
	if err := os.WriteFile(in, []byte(legacy), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	ctx := context.Background()
	imp := &importCmd{storeFlags: storeFlags{config: cfgPath}, in: in}
	if st := imp.Execute(ctx, nil); st != subcommands.ExitSuccess {
		t.Fatalf("import exit status %d", st)
	}

	out := filepath.Join(dir, "export.json")
	exp := &exportCmd{storeFlags: storeFlags{config: cfgPath}, out: out}
	if st := exp.Execute(ctx, nil); st != subcommands.ExitSuccess {
		t.Fatalf("export exit status %d", st)
	}

	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var env struct {
		State   models.Document `json:"state"`
		Version int             `json:"version"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if env.Version != 4 {
		t.Fatalf("expected version 4, got %d", env.Version)
	}
	if len(env.State.Categories) == 0 || !env.State.Categories[0].HasCode("9984") {
		t.Fatalf("legacy watchlist not carried over: %+v", env.State.Categories)
	}
	if env.State.SelectedTicker != "7203" {
		t.Fatalf("expected selected ticker 7203, got %q", env.State.SelectedTicker)
	}
}

func TestImportRequiresInput(t *testing.T) {
	if st := (&importCmd{}).Execute(context.Background(), nil); st != subcommands.ExitUsageError {
		t.Fatalf("expected usage error, got %d", st)
	}
}

func TestMigrateWithoutStoredDocument(t *testing.T) {
	t.Setenv("TRADEINFO_STORAGE", "")
	cfgPath := writeConfig(t, t.TempDir())
	cmd := &migrateCmd{storeFlags: storeFlags{config: cfgPath}, dryRun: true}
	if st := cmd.Execute(context.Background(), nil); st != subcommands.ExitSuccess {
		t.Fatalf("expected success on empty storage, got %d", st)
	}
}
