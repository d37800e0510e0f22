package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"smartaset/pkg/audit"
	"smartaset/pkg/domain"
	"smartaset/pkg/history"
	"smartaset/pkg/store"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// isolate points config loading at an empty directory with a sqlite history.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("SMARTASET_CONFIG", "")
	t.Setenv("GENERATION_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("HISTORY_BACKEND", "sqlite")
	t.Setenv("HISTORY_PATH", filepath.Join(dir, "history.db"))
	t.Setenv("AMQP_URL", "")
	t.Setenv("MINIO_ENDPOINT", "")
	t.Setenv("MINIO_BUCKET", "")
	return dir
}

func seedHistory(t *testing.T, path string) domain.AuditResult {
	t.Helper()
	kv, err := store.NewSQLiteKV(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer kv.Close()
	h := history.New(kv, nil)
	h.Load(context.Background())
	r := domain.AuditResult{
		ID:           "audit-1",
		Timestamp:    time.Now().Add(-time.Hour),
		AssetName:    "Modul Gizi",
		OverallScore: 88,
		Details:      []domain.EvaluationDetail{{Criterion: "Logo", Status: domain.StatusPass, Finding: "ok", Recommendation: "-"}},
		Summary:      "Baik.",
	}
	if err := h.Record(context.Background(), r); err != nil {
		t.Fatalf("record: %v", err)
	}
	return r
}

func TestGuidelineJSON(t *testing.T) {
	out, err := run(t, "guideline", "--json")
	if err != nil {
		t.Fatalf("guideline: %v", err)
	}
	var g audit.Guideline
	if err := json.Unmarshal([]byte(out), &g); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(g.Criteria) != len(audit.Reference().Criteria) {
		t.Fatalf("criteria = %d", len(g.Criteria))
	}
}

func TestGuidelineText(t *testing.T) {
	out, err := run(t, "guideline")
	if err != nil {
		t.Fatalf("guideline: %v", err)
	}
	for _, want := range []string{"Kriteria Audit", "Kelengkapan Logo", "Palet Warna"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q", want)
		}
	}
}

func TestAuditRequiresPrimarySource(t *testing.T) {
	isolate(t)
	if _, err := run(t, "audit"); err == nil || !strings.Contains(err.Error(), "--document or --package") {
		t.Fatalf("err = %v", err)
	}
	if _, err := run(t, "audit", "--document", "a.pdf", "--package", "b.zip"); err == nil {
		t.Fatalf("expected mutually exclusive flag error")
	}
	if _, err := run(t, "audit", "--document", "missing.pdf"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestHistoryAndExport(t *testing.T) {
	dir := isolate(t)
	seeded := seedHistory(t, filepath.Join(dir, "history.db"))

	out, err := run(t, "history", "--json")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var items []domain.AuditResult
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(items) != 1 || items[0].ID != seeded.ID {
		t.Fatalf("items = %+v", items)
	}

	exportDir := t.TempDir()
	if _, err := run(t, "export", seeded.ID, "--dir", exportDir); err != nil {
		t.Fatalf("export: %v", err)
	}
	txt, err := os.ReadFile(filepath.Join(exportDir, "Laporan_Analisis_PTP_Modul_Gizi.txt"))
	if err != nil {
		t.Fatalf("read text export: %v", err)
	}
	if !strings.Contains(string(txt), "NAMA ASET      : Modul Gizi") {
		t.Fatalf("unexpected text export")
	}
	pdf, err := os.ReadFile(filepath.Join(exportDir, "Laporan_Analisis_SmartAset_Modul Gizi.pdf"))
	if err != nil {
		t.Fatalf("read pdf export: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		t.Fatalf("pdf export missing header")
	}

	if _, err := run(t, "export", "unknown"); err == nil {
		t.Fatalf("expected error for unknown audit id")
	}
}

func TestServeRequiresSecret(t *testing.T) {
	isolate(t)
	t.Setenv("SMARTASET_SESSION_SECRET", "short")
	if _, err := run(t, "serve"); err == nil || !strings.Contains(err.Error(), "sessionSecret") {
		t.Fatalf("err = %v", err)
	}
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent to testing.T.Chdir, Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
