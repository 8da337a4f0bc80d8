// Package registry implements the dataset-scoped custom run registry on SQLite.
//
// The registry is the system of record for mirrored metadata: every dataset
// owns a flat namespace of named run records, each an opaque, mutable
// key/value configuration discriminated by its method tag.
//
// Key Implementations:
//   - [Store] : root handle over the registry database, resolves datasets by name
//   - [Dataset] : one dataset's registry; exposes the registry API consumed by the mirror
//     (RegisterRun, ListRuns, GetRunInfo, UpdateRunConfig, HasRun)
//   - [View] : a filtered view over a dataset; registry operations always resolve
//     to the root dataset, never the view
//
// Record storage is last-write-wins with no transactional isolation across
// the read-modify-write cycles callers perform. Concurrent attaches against
// the same experiment can lose updates; callers must serialize per experiment
// name if concurrent use is possible.
//
// Sequence numbers provide stable, human-readable ordering independent of
// UUIDs and creation timestamps. The [NextSequence] function atomically
// increments per-table sequence counters in dedicated sequence tables.
package registry
