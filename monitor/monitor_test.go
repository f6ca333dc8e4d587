package monitor_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/comfyqueue/scheduler/config"
	"github.com/comfyqueue/scheduler/job"
	"github.com/comfyqueue/scheduler/metrics"
	"github.com/comfyqueue/scheduler/monitor"
	"github.com/comfyqueue/scheduler/store"
	"github.com/comfyqueue/scheduler/workflow"
)

type fakeStore struct {
	store.Store
	upserted []store.UpsertData
}

func (f *fakeStore) Upsert(ctx context.Context, data store.UpsertData) (int64, error) {
	f.upserted = append(f.upserted, data)
	return int64(len(f.upserted)), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProcessFileAccepted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "T2I_20260101000000_0_test.yaml")
	content := `
job_type: T2I
workflow_id: basic
inputs:
  45_text: hello
outputs:
  file_path: out/img.png
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	catalog := workflow.Catalog{"basic": workflow.Definition{RequiredInputs: []string{"prompt"}}}
	cfg := &config.Config{DefaultPriority: 50, RetryLimit: 2}
	fs := &fakeStore{}
	reg := metrics.New()

	m := monitor.New(fs, catalog, cfg, reg, testLogger())
	result := m.ProcessFile(context.Background(), path)

	if result.Status != "accepted" {
		t.Fatalf("expected accepted, got %s: %s", result.Status, result.Reason)
	}
	if len(fs.upserted) != 1 {
		t.Fatalf("expected one upsert, got %d", len(fs.upserted))
	}
	if fs.upserted[0].JobType != job.TypeT2I {
		t.Fatalf("expected TypeT2I, got %v", fs.upserted[0].JobType)
	}
	if got := testutil.ToFloat64(reg.MonitorAccepted); got != 1 {
		t.Fatalf("expected MonitorAccepted to be incremented, got %v", got)
	}
}

func TestProcessFileRejectedBadName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not-a-valid-name.yaml")
	if err := os.WriteFile(path, []byte("job_type: T2I\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{DefaultPriority: 50, RetryLimit: 2}
	reg := metrics.New()
	m := monitor.New(&fakeStore{}, workflow.Catalog{}, cfg, reg, testLogger())
	result := m.ProcessFile(context.Background(), path)

	if result.Status != "rejected" {
		t.Fatalf("expected rejected, got %s", result.Status)
	}
	if got := testutil.ToFloat64(reg.MonitorRejected); got != 1 {
		t.Fatalf("expected MonitorRejected to be incremented, got %v", got)
	}
}

func TestProcessFileRejectedMissingWorkflow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "T2I_20260101000000_0_test.yaml")
	content := `
job_type: T2I
workflow_id: unknown_workflow
inputs:
  45_text: hello
outputs:
  file_path: out/img.png
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{DefaultPriority: 50, RetryLimit: 2}
	m := monitor.New(&fakeStore{}, workflow.Catalog{}, cfg, metrics.New(), testLogger())
	result := m.ProcessFile(context.Background(), path)

	if result.Status != "rejected" {
		t.Fatalf("expected rejected for unknown workflow, got %s", result.Status)
	}
}
