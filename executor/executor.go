package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/comfyqueue/scheduler/comfyui"
	"github.com/comfyqueue/scheduler/config"
	"github.com/comfyqueue/scheduler/fsutil"
	"github.com/comfyqueue/scheduler/internal"
	"github.com/comfyqueue/scheduler/job"
	"github.com/comfyqueue/scheduler/metrics"
	"github.com/comfyqueue/scheduler/store"
	"github.com/comfyqueue/scheduler/workflow"
)

// Config controls Executor's runtime behavior.
type Config struct {
	Concurrency   int
	Queue         int
	PollInterval  time.Duration
	LeaseDuration time.Duration
	WorkerID      string
	WorkflowDir   string // base directory template_path is resolved against
}

// Executor leases jobs from a store and drives them through ComfyUI.
type Executor struct {
	lc internal.Lifecycle

	store   store.Store
	catalog workflow.Catalog
	cfg     *config.Config
	client  *comfyui.Client
	log     *slog.Logger
	metrics *metrics.Registry

	pool         *internal.WorkerPool[*job.Job]
	leaseTask    internal.TimerTask
	orphanTask   internal.TimerTask
	workerID     string
	pollInterval time.Duration
	lease        time.Duration
	workflowDir  string
}

// New creates an Executor against st, resolving workflows from catalog
// and submitting to the ComfyUI instance described by globalCfg.ComfyUI.
// m may be nil, in which case Executor runs without recording metrics.
func New(st store.Store, catalog workflow.Catalog, globalCfg *config.Config, ec Config, m *metrics.Registry, log *slog.Logger) *Executor {
	return &Executor{
		store:        st,
		catalog:      catalog,
		cfg:          globalCfg,
		client:       comfyui.New(globalCfg.ComfyUI.APIBaseURL, globalCfg.ComfyUI.Timeout()),
		log:          log,
		metrics:      m,
		pool:         internal.NewWorkerPool[*job.Job](ec.Concurrency, ec.Queue, log),
		workerID:     ec.WorkerID,
		pollInterval: ec.PollInterval,
		lease:        ec.LeaseDuration,
		workflowDir:  ec.WorkflowDir,
	}
}

// Start begins background leasing, orphan recovery, and job execution.
func (e *Executor) Start(ctx context.Context) error {
	if err := e.lc.TryStart(); err != nil {
		return err
	}
	e.pool.Start(ctx, e.handle)
	e.leaseTask.Start(ctx, e.leaseTick, e.pollInterval)
	e.orphanTask.Start(ctx, e.recoverTick, e.lease)
	return nil
}

// Stop stops leasing and waits for in-flight jobs to finish, up to
// timeout.
func (e *Executor) Stop(timeout time.Duration) error {
	return e.lc.TryStop(timeout, func() internal.DoneChan {
		first := e.leaseTask.Stop()
		second := e.orphanTask.Stop()
		third := e.pool.Stop()
		return internal.Combine(internal.Combine(first, second), third)
	})
}

func (e *Executor) leaseTick(ctx context.Context) {
	j, err := e.store.LeaseNext(ctx, e.workerID, e.lease)
	if err != nil {
		e.log.Error("lease failed", "err", err)
		return
	}
	if j == nil {
		return
	}
	if e.metrics != nil {
		e.metrics.JobsLeased.Inc()
	}
	e.log.Info("leased job", "config_name", j.ConfigName, "id", j.ID)
	if !e.pool.Push(j) {
		e.log.Debug("job push interrupted by shutdown", "id", j.ID)
	}
}

func (e *Executor) recoverTick(ctx context.Context) {
	count, err := e.store.RecoverOrphans(ctx, time.Now())
	if err != nil {
		e.log.Error("recover orphans failed", "err", err)
		return
	}
	if count > 0 {
		if e.metrics != nil {
			e.metrics.OrphansRecovered.Add(float64(count))
		}
		e.log.Info("recovered orphaned jobs", "count", count)
	}
}

// handle runs one job end-to-end and reports its outcome to the store,
// grounded on original_source/comfyui_agent/executor.py's execute_job.
func (e *Executor) handle(ctx context.Context, j *job.Job) {
	start := time.Now()
	if j.StartTime != nil {
		start = *j.StartTime
	}

	update, stepErr := e.run(ctx, j)
	if stepErr == nil {
		if err := e.store.Complete(ctx, j.ID, true, update); err != nil {
			e.log.Error("cannot mark job complete", "id", j.ID, "err", err)
		}
		if e.metrics != nil {
			e.metrics.JobsCompleted.Inc()
			e.metrics.JobDuration.Observe(time.Since(start).Seconds())
		}
		e.log.Info("job completed", "config_name", j.ConfigName)
		return
	}

	e.log.Error("job failed", "config_name", j.ConfigName, "category", stepErr.Category, "err", stepErr.Err)
	if err := e.store.Complete(ctx, j.ID, false, store.CompletionUpdate{ErrorTrace: stepErr.Error()}); err != nil {
		e.log.Error("cannot mark job failed", "id", j.ID, "err", err)
	}
	if e.metrics != nil {
		if j.RetriesAttempted < j.RetryLimit {
			e.metrics.JobsRetried.Inc()
		} else {
			e.metrics.JobsFailed.Inc()
		}
	}
}

func (e *Executor) run(ctx context.Context, j *job.Job) (store.CompletionUpdate, *StepError) {
	yamlPath, err := fsutil.LocateConfig(e.cfg.Paths.JobsProcessing, e.cfg.Paths.JobsFinished, j.ConfigName, j.JobType)
	if err != nil {
		return store.CompletionUpdate{}, wrapErr(CategoryOrphan, "locate config: %w", err)
	}

	raw, err := readFile(yamlPath)
	if err != nil {
		return store.CompletionUpdate{}, wrapErr(CategoryOrphan, "read config: %w", err)
	}

	var cfg config.JobConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return store.CompletionUpdate{}, wrapErr(CategoryValidation, "parse config: %w", err)
	}

	def, ok := e.catalog[cfg.WorkflowID]
	if !ok {
		return store.CompletionUpdate{}, wrapErr(CategoryValidation, "unknown workflow: %s", cfg.WorkflowID)
	}

	templatePath := workflow.ResolveTemplatePath(e.workflowDir, def)
	tmpl, err := workflow.LoadTemplate(templatePath)
	if err != nil {
		return store.CompletionUpdate{}, wrapErr(CategoryValidation, "load template: %w", err)
	}
	tmpl = tmpl.Clone()

	workflow.BindInputs(tmpl, cfg.Inputs, cfg.Outputs.FilePath, e.log)

	prompt := make(map[string]any, len(tmpl))
	for id, node := range tmpl {
		prompt[id] = map[string]any{"class_type": node.ClassType, "inputs": node.Inputs}
	}

	promptID, err := e.client.QueuePrompt(ctx, prompt)
	if err != nil {
		return store.CompletionUpdate{}, wrapErr(CategoryTransient, "queue prompt: %w", err)
	}
	e.log.Info("queued prompt", "prompt_id", promptID, "config_name", j.ConfigName)

	awaitCtx, cancel := context.WithTimeout(ctx, e.cfg.ComfyUI.Timeout())
	defer cancel()
	completion, err := e.client.AwaitCompletion(awaitCtx, promptID)
	if err != nil {
		return store.CompletionUpdate{}, wrapErr(CategoryTransient, "await completion: %w", err)
	}

	metadata, err := writeOutputs(cfg.Outputs.FilePath, completion)
	if err != nil {
		return store.CompletionUpdate{}, wrapErr(CategoryTerminal, "write outputs: %w", err)
	}

	if err := moveToFinished(e.cfg.Paths.JobsProcessing, e.cfg.Paths.JobsFinished, yamlPath); err != nil {
		e.log.Warn("could not move finished config", "path", yamlPath, "err", err)
	}

	return store.CompletionUpdate{Metadata: metadata}, nil
}

type outputsMetadata struct {
	Saved []string `json:"saved"`
	Bytes int      `json:"bytes"`
	Count int      `json:"count"`
}

func writeOutputs(destFilePath string, completion *comfyui.Completion) ([]byte, error) {
	dir := filepath.Dir(destFilePath)
	if dir != "" && dir != "." {
		if err := fsutil.EnsureDirs(dir); err != nil {
			return nil, err
		}
	}

	meta := outputsMetadata{}
	for i, data := range completion.Outputs {
		name := fmt.Sprintf("output_%d.dat", i)
		path := filepath.Join(dir, name)
		if err := writeFile(path, data); err != nil {
			return nil, err
		}
		meta.Saved = append(meta.Saved, path)
		meta.Bytes += len(data)
		meta.Count++
	}

	return json.Marshal(meta)
}

func moveToFinished(processingRoot, finishedRoot, yamlPath string) error {
	dst, err := fsutil.RelativeFinishedPath(processingRoot, finishedRoot, yamlPath)
	if err != nil {
		return err
	}
	return fsutil.SafeMove(yamlPath, dst)
}
