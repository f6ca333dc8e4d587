// Package job defines the stateful representation of a ComfyUI generation
// job tracked by the scheduler's job store.
//
// A Job corresponds to exactly one declarative YAML configuration file
// observed by the Monitor. It carries lease ownership, retry accounting,
// and scheduling metadata maintained by the store and executor.
//
// Job values returned by the store represent authoritative snapshots.
// Mutating a returned Job does not affect underlying storage; transitions
// happen through the store.Store interface.
package job
