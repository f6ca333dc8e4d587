package executor

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/comfyqueue/scheduler/comfyui"
	"github.com/comfyqueue/scheduler/config"
	"github.com/comfyqueue/scheduler/job"
	"github.com/comfyqueue/scheduler/metrics"
	"github.com/comfyqueue/scheduler/store"
	"github.com/comfyqueue/scheduler/workflow"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunOrphanWhenConfigMissing(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Paths: config.Paths{
			JobsProcessing: filepath.Join(dir, "processing"),
			JobsFinished:   filepath.Join(dir, "finished"),
		},
		ComfyUI: config.ComfyUI{APIBaseURL: "http://127.0.0.1:1", TimeoutSeconds: 1},
	}

	e := &Executor{
		cfg:         cfg,
		catalog:     workflow.Catalog{},
		client:      comfyui.New(cfg.ComfyUI.APIBaseURL, cfg.ComfyUI.Timeout()),
		log:         testLogger(),
		workflowDir: dir,
	}

	j := &job.Job{ID: 1, ConfigName: "T2I_20260101000000_0_missing.yaml", JobType: job.TypeT2I}

	_, stepErr := e.run(context.Background(), j)
	if stepErr == nil {
		t.Fatal("expected an error for missing config")
	}
	if stepErr.Category != CategoryOrphan {
		t.Fatalf("expected CategoryOrphan, got %v", stepErr.Category)
	}
}

func TestRunValidationErrorOnUnknownWorkflow(t *testing.T) {
	dir := t.TempDir()
	processing := filepath.Join(dir, "processing")
	if err := os.MkdirAll(processing, 0o755); err != nil {
		t.Fatal(err)
	}

	configName := "T2I_20260101000000_0_job.yaml"
	content := "job_type: T2I\nworkflow_id: nope\ninputs:\n  45_text: hi\noutputs:\n  file_path: out/x.png\n"
	if err := os.WriteFile(filepath.Join(processing, configName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		Paths:   config.Paths{JobsProcessing: processing, JobsFinished: filepath.Join(dir, "finished")},
		ComfyUI: config.ComfyUI{APIBaseURL: "http://127.0.0.1:1", TimeoutSeconds: 1},
	}

	e := &Executor{
		cfg:         cfg,
		catalog:     workflow.Catalog{},
		client:      comfyui.New(cfg.ComfyUI.APIBaseURL, cfg.ComfyUI.Timeout()),
		log:         testLogger(),
		workflowDir: dir,
	}

	j := &job.Job{ID: 1, ConfigName: configName, JobType: job.TypeT2I}
	_, stepErr := e.run(context.Background(), j)
	if stepErr == nil {
		t.Fatal("expected a validation error for unknown workflow")
	}
	if stepErr.Category != CategoryValidation {
		t.Fatalf("expected CategoryValidation, got %v", stepErr.Category)
	}
}

func TestWriteOutputsMetadata(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out", "image.png")

	completion := &comfyui.Completion{Outputs: [][]byte{[]byte("abc"), []byte("de")}}
	raw, err := writeOutputs(dest, completion)
	if err != nil {
		t.Fatal(err)
	}

	var meta outputsMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatal(err)
	}
	if meta.Count != 2 {
		t.Fatalf("expected 2 saved files, got %d", meta.Count)
	}
	if meta.Bytes != 5 {
		t.Fatalf("expected 5 bytes total, got %d", meta.Bytes)
	}
}

func TestMoveToFinishedPreservesSubdir(t *testing.T) {
	dir := t.TempDir()
	processing := filepath.Join(dir, "processing")
	finished := filepath.Join(dir, "finished")
	src := filepath.Join(processing, "t2i", "job.yaml")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := moveToFinished(processing, finished, src); err != nil {
		t.Fatal(err)
	}

	want := filepath.Join(finished, "t2i", "job.yaml")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected moved file at %s: %v", want, err)
	}
}

func TestStepErrorUnwrap(t *testing.T) {
	var update store.CompletionUpdate
	_ = update
	e := wrapErr(CategoryTransient, "boom: %d", 1)
	if e.Unwrap() == nil {
		t.Fatal("expected wrapped error")
	}
	if e.Category.String() != "transient" {
		t.Fatalf("unexpected category string: %s", e.Category)
	}
}

func TestLeaseDurationField(t *testing.T) {
	e := New(nil, workflow.Catalog{}, &config.Config{ComfyUI: config.ComfyUI{APIBaseURL: "http://x", TimeoutSeconds: 1}}, Config{
		Concurrency:   2,
		Queue:         4,
		PollInterval:  10 * time.Millisecond,
		LeaseDuration: time.Minute,
		WorkerID:      "w1",
	}, nil, testLogger())
	if e.lease != time.Minute {
		t.Fatalf("expected lease duration to be set, got %v", e.lease)
	}
}

func TestHandleRecordsMetrics(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Paths: config.Paths{
			JobsProcessing: filepath.Join(dir, "processing"),
			JobsFinished:   filepath.Join(dir, "finished"),
		},
		ComfyUI: config.ComfyUI{APIBaseURL: "http://127.0.0.1:1", TimeoutSeconds: 1},
	}
	reg := metrics.New()

	e := &Executor{
		store:       &fakeCompleteStore{},
		cfg:         cfg,
		catalog:     workflow.Catalog{},
		client:      comfyui.New(cfg.ComfyUI.APIBaseURL, cfg.ComfyUI.Timeout()),
		log:         testLogger(),
		metrics:     reg,
		workflowDir: dir,
	}

	j := &job.Job{ID: 1, ConfigName: "T2I_20260101000000_0_missing.yaml", JobType: job.TypeT2I, RetriesAttempted: 0, RetryLimit: 0}
	e.handle(context.Background(), j)

	if got := testutil.ToFloat64(reg.JobsFailed); got != 1 {
		t.Fatalf("expected JobsFailed to be incremented, got %v", got)
	}
	if got := testutil.ToFloat64(reg.JobsRetried); got != 0 {
		t.Fatalf("expected JobsRetried to remain 0, got %v", got)
	}
}

type fakeCompleteStore struct {
	store.Store
}

func (f *fakeCompleteStore) Complete(ctx context.Context, id int64, success bool, updates store.CompletionUpdate) error {
	return nil
}
