// Package workflow loads the static workflow catalog and JSON workflow
// templates, and binds job inputs onto template nodes (spec.md §3, §4.3,
// §6).
//
// Workflows are immutable once loaded at startup: the catalog maps a
// workflow_id to a template_path and its declared required_inputs: the
// scheduler never synthesizes a workflow graph (Non-goals, spec.md §1).
package workflow
