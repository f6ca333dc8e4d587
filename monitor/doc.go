// Package monitor watches the processing directory tree for job
// configuration files and ingests them into the store (spec.md §4.2).
//
// Monitor's lifecycle and periodic-task shape is adapted from the
// teacher's CleanWorker (clean_worker.go): a single internal.TimerTask
// driving a poll, wrapped in internal.Lifecycle for strict start/stop
// semantics. Where the teacher polls a Cleaner on an interval alone,
// Monitor additionally watches the processing root directory with fsnotify
// so new files there are picked up immediately between polls (its
// subdirectories are not watched and are covered by the poll alone); the
// poll remains as a fallback
// for filesystems or environments where fsnotify events are unreliable
// (network mounts, missed events), matching the resilience the original
// run_monitor_loop's unconditional re-scan provided.
package monitor
