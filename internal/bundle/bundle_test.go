package bundle_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/promptgauge/promptgauge/internal/bundle"
	"github.com/promptgauge/promptgauge/internal/metrics"
	"github.com/promptgauge/promptgauge/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open("", store.Options{InMemory: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedPrompt(t *testing.T, s *store.Store) {
	t.Helper()
	ctx := context.Background()
	for _, v := range []string{"1.0.0", "1.1.0"} {
		err := s.SaveVersion(ctx, store.VersionEntry{
			Name:         "summarizer",
			Version:      v,
			SystemPrompt: "system " + v,
			UserPrompt:   "user " + v,
		}, false)
		if err != nil {
			t.Fatalf("SaveVersion: %v", err)
		}
	}
	lat := 120.0
	err := s.AppendRecord(ctx, "summarizer", "1.1.0", metrics.Record{
		Model: "gpt-4o", LatencyMS: &lat, Success: true,
	})
	if err != nil {
		t.Fatalf("AppendRecord: %v", err)
	}
}

func TestExportImportJSON(t *testing.T) {
	src := openTestStore(t)
	seedPrompt(t, src)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "summarizer.json")

	b, err := bundle.Export(ctx, src, "summarizer", path, bundle.FormatAuto, true)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if b.PromptName != "summarizer" || len(b.Versions) != 2 {
		t.Fatalf("Export = %s with %d versions, want summarizer with 2", b.PromptName, len(b.Versions))
	}
	// Newest first; the version with records carries a summary.
	if b.Versions[0].Version != "1.1.0" {
		t.Errorf("Versions[0] = %s, want 1.1.0", b.Versions[0].Version)
	}
	if b.Versions[0].MetricsSummary == nil || b.Versions[0].MetricsSummary.CallCount != 1 {
		t.Errorf("Versions[0].MetricsSummary = %+v, want 1 call", b.Versions[0].MetricsSummary)
	}
	if b.Versions[1].MetricsSummary != nil {
		t.Errorf("Versions[1].MetricsSummary = %+v, want nil", b.Versions[1].MetricsSummary)
	}

	dst := openTestStore(t)
	prompt, imported, err := bundle.Import(ctx, dst, path, bundle.FormatAuto, false)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if prompt != "summarizer" || imported != 2 {
		t.Errorf("Import = (%s, %d), want (summarizer, 2)", prompt, imported)
	}

	got, err := dst.GetVersion(ctx, "summarizer", "1.0.0")
	if err != nil {
		t.Fatalf("GetVersion after import: %v", err)
	}
	if got.SystemPrompt != "system 1.0.0" {
		t.Errorf("imported SystemPrompt = %q", got.SystemPrompt)
	}
}

func TestExportImportYAML(t *testing.T) {
	src := openTestStore(t)
	seedPrompt(t, src)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "summarizer.yaml")

	if _, err := bundle.Export(ctx, src, "summarizer", path, bundle.FormatAuto, false); err != nil {
		t.Fatalf("Export: %v", err)
	}

	b, err := bundle.Read(path, bundle.FormatAuto)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(b.Versions) != 2 || b.Versions[0].UserPrompt != "user 1.1.0" {
		t.Errorf("Read = %+v", b)
	}
}

func TestImportSkipsExisting(t *testing.T) {
	src := openTestStore(t)
	seedPrompt(t, src)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "summarizer.json")

	if _, err := bundle.Export(ctx, src, "summarizer", path, bundle.FormatJSON, false); err != nil {
		t.Fatalf("Export: %v", err)
	}

	dst := openTestStore(t)
	err := dst.SaveVersion(ctx, store.VersionEntry{
		Name: "summarizer", Version: "1.0.0", UserPrompt: "local edit",
	}, false)
	if err != nil {
		t.Fatalf("SaveVersion: %v", err)
	}

	_, imported, err := bundle.Import(ctx, dst, path, bundle.FormatJSON, false)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if imported != 1 {
		t.Errorf("Import skipping existing = %d, want 1", imported)
	}
	got, _ := dst.GetVersion(ctx, "summarizer", "1.0.0")
	if got.UserPrompt != "local edit" {
		t.Errorf("existing version was overwritten: %q", got.UserPrompt)
	}

	// With overwrite the bundle wins.
	_, imported, err = bundle.Import(ctx, dst, path, bundle.FormatJSON, true)
	if err != nil {
		t.Fatalf("Import overwrite: %v", err)
	}
	if imported != 2 {
		t.Errorf("Import with overwrite = %d, want 2", imported)
	}
	got, _ = dst.GetVersion(ctx, "summarizer", "1.0.0")
	if got.UserPrompt != "user 1.0.0" {
		t.Errorf("overwrite did not replace version: %q", got.UserPrompt)
	}
}

func TestExportMissingPrompt(t *testing.T) {
	s := openTestStore(t)
	path := filepath.Join(t.TempDir(), "nope.json")
	if _, err := bundle.Export(context.Background(), s, "nope", path, bundle.FormatJSON, false); err == nil {
		t.Error("Export of missing prompt returned nil error")
	}
}
