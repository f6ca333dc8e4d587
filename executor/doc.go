// Package executor leases jobs from the store and drives them through
// ComfyUI to completion (spec.md §4.3).
//
// Executor's shape is adapted from the teacher's Worker (worker.go): a
// internal.TimerTask periodically leasing work and an
// internal.WorkerPool[*job.Job] dispatching it to concurrent handlers,
// both wrapped in internal.Lifecycle. Where the teacher's handler talks
// only to a user-supplied MessageHandler, Executor's handler is this
// package's own run: load the job's YAML, resolve and bind its workflow
// template, invoke comfyui, persist outputs, and report completion to the
// store.
//
// Unlike the teacher's Worker, Executor does not extend job leases
// mid-handler (no ExtendLock-equivalent store operation is part of this
// domain's operation set, spec.md §4.1) — callers size LeaseDuration
// generously enough to cover one job's ComfyUI round trip instead.
package executor
