package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fsnotify/fsnotify"

	"github.com/comfyqueue/scheduler/config"
	"github.com/comfyqueue/scheduler/fsutil"
	"github.com/comfyqueue/scheduler/internal"
	"github.com/comfyqueue/scheduler/metrics"
	"github.com/comfyqueue/scheduler/store"
	"github.com/comfyqueue/scheduler/validate"
	"github.com/comfyqueue/scheduler/workflow"
)

// Result summarizes the outcome of ingesting one file, mirroring the
// shape original_source/comfyui_agent/monitor.py's process_yaml_file
// returned.
type Result struct {
	Path   string
	Status string // "accepted" or "rejected"
	Reason string
	JobID  int64
}

// Monitor watches a processing directory tree for job configuration
// files and upserts valid ones into the store.
//
// Its lifecycle mirrors the teacher's CleanWorker: a single
// internal.Lifecycle guarding Start/Stop, with an internal.TimerTask
// driving the poll fallback. A background fsnotify watcher supplements
// the poll so new files are ingested promptly.
type Monitor struct {
	lc internal.Lifecycle

	store   store.Store
	catalog workflow.Catalog
	cfg     *config.Config
	log     *slog.Logger
	metrics *metrics.Registry

	poll    internal.TimerTask
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// New creates a Monitor over store, validating incoming configs against
// catalog and normalizing them per cfg's defaults. m may be nil, in which
// case Monitor runs without recording metrics.
func New(st store.Store, catalog workflow.Catalog, cfg *config.Config, m *metrics.Registry, log *slog.Logger) *Monitor {
	return &Monitor{
		store:   st,
		catalog: catalog,
		cfg:     cfg,
		log:     log,
		metrics: m,
	}
}

// ProcessFile validates and upserts the single YAML file at path,
// grounded on process_yaml_file.
func (m *Monitor) ProcessFile(ctx context.Context, path string) Result {
	result := Result{Path: path, Status: "rejected"}
	defer m.recordResult(&result)

	parsed, err := validate.ParseConfigName(path)
	if err != nil {
		result.Reason = err.Error()
		return result
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		result.Reason = fmt.Sprintf("cannot read file: %v", err)
		return result
	}
	if len(raw) == 0 {
		result.Reason = "empty YAML file"
		return result
	}

	var cfg config.JobConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		result.Reason = fmt.Sprintf("invalid YAML: %v", err)
		return result
	}

	if err := validate.ValidateSchema(cfg, m.catalog); err != nil {
		result.Reason = err.Error()
		return result
	}

	defaults := config.Defaults{DefaultPriority: m.cfg.DefaultPriority, RetryLimit: m.cfg.RetryLimit}
	cfg = validate.Normalize(cfg, defaults)

	id, err := m.store.Upsert(ctx, store.UpsertData{
		ConfigName: basename(path),
		JobType:    parsed.JobType,
		WorkflowID: cfg.WorkflowID,
		Priority:   *cfg.Priority,
		RetryLimit: *cfg.RetryLimit,
	})
	if err != nil {
		result.Reason = fmt.Sprintf("store upsert failed: %v", err)
		return result
	}

	result.Status = "accepted"
	result.JobID = id
	m.log.Info("accepted job", "config_name", basename(path), "job_id", id)
	return result
}

func (m *Monitor) recordResult(result *Result) {
	if m.metrics == nil {
		return
	}
	if result.Status == "accepted" {
		m.metrics.MonitorAccepted.Inc()
	} else {
		m.metrics.MonitorRejected.Inc()
	}
}

func basename(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

// ScanOnce walks the entire processing tree and processes every YAML
// file found, grounded on scan_once.
func (m *Monitor) ScanOnce(ctx context.Context) ([]Result, error) {
	files, err := fsutil.ListYAMLUnder(m.cfg.Paths.JobsProcessing)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(files))
	for _, f := range files {
		results = append(results, m.ProcessFile(ctx, f))
	}
	return results, nil
}

func (m *Monitor) scanTick(ctx context.Context) {
	results, err := m.ScanOnce(ctx)
	if err != nil {
		m.log.Error("scan failed", "err", err)
		return
	}
	var accepted, rejected int
	for _, r := range results {
		if r.Status == "accepted" {
			accepted++
		} else {
			rejected++
		}
	}
	if accepted > 0 || rejected > 0 {
		m.log.Info("scan complete", "accepted", accepted, "rejected", rejected)
	}
}

func (m *Monitor) watchLoop(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isYAML(event.Name) {
				continue
			}
			m.ProcessFile(ctx, event.Name)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.log.Error("watcher error", "err", err)
		}
	}
}

func isYAML(name string) bool {
	n := len(name)
	return (n > 5 && name[n-5:] == ".yaml") || (n > 4 && name[n-4:] == ".yml")
}

// Start begins watching and polling. Returns internal.ErrDoubleStarted
// if already running.
func (m *Monitor) Start(ctx context.Context) error {
	if err := m.lc.TryStart(); err != nil {
		return err
	}

	if err := fsutil.EnsureDirs(m.cfg.Paths.JobsProcessing, m.cfg.Paths.JobsFinished); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("monitor: create watcher: %w", err)
	}
	if err := watcher.Add(m.cfg.Paths.JobsProcessing); err != nil {
		m.log.Warn("cannot watch processing root, relying on poll only", "err", err)
	}
	m.watcher = watcher
	m.done = make(chan struct{})

	go m.watchLoop(ctx)
	m.poll.Start(ctx, m.scanTick, m.cfg.PollInterval())
	return nil
}

// Stop stops the watcher and poll task, waiting up to timeout.
func (m *Monitor) Stop(timeout time.Duration) error {
	return m.lc.TryStop(timeout, func() internal.DoneChan {
		pollDone := m.poll.Stop()
		if m.watcher != nil {
			_ = m.watcher.Close()
		}
		combined := make(internal.DoneChan)
		go func() {
			<-pollDone
			<-m.done
			close(combined)
		}()
		return combined
	})
}
