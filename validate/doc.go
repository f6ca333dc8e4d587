// Package validate implements filename parsing, job-configuration schema
// validation, and required-inputs checking shared by the Monitor and
// Executor (spec.md §4.5).
//
// Validation never panics on malformed input: every exported function
// returns a descriptive error instead, so Monitor can reject a file and
// keep scanning.
package validate
