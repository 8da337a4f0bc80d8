// Package mirror copies experiment and run metadata from an MLflow tracking server into dataset registries, with real-time progress reporting.
//
// # Core Operations
//
// The [RunMirror] interface defines the mirroring surface:
//
//  1. [RunMirror.LogRun] : the public entry point
//     - Resolves a collection to its root dataset (views never own registry state)
//     - Guarantees the experiment record exists, then attaches the run if an id was given
//
//  2. [RunMirror.EnsureExperimentRecord] : create-once experiment mirroring
//     - No-op when the record already exists (idempotent)
//     - Otherwise fetches authoritative fields from the tracking server and
//       registers a fresh record with an empty runs list
//
//  3. [RunMirror.AttachRunRecord] : run snapshot + parent link
//     - Fetches the run, reads its display name from the mlflow.runName tag
//     - Registers the snapshot under the normalized name, overwriting any
//       previous snapshot for that key
//     - Appends the raw display name to the parent experiment's runs list,
//       skipping names already linked so re-attachment never duplicates
//
//  4. [RunMirror.ExperimentLinks] : the read-only URL query for UI layers
//
//  5. [RunMirror.SyncExperiment] : bulk attachment of every run in an experiment
//     - Searches the tracking server, fetches runs through a rate-limited worker
//       pool, then registers and links results on a single goroutine so the
//       parent record's read-modify-write cycle stays serialized
//
// # Progress Reporting
//
// Long-running operations emit [ProgressUpdate] values on a caller-supplied
// channel. Updates use select with default to prevent blocking.
//
// # Failure Semantics
//
// No error is caught or retried; every failure propagates unmodified. The
// run-register-then-link sequence is not atomic: a crash between the two
// registry writes leaves the run record created but unlinked.
//
// # Implementation
//
// [Engine] implements [RunMirror] with dependencies on:
//   - [mlflow.Client] : the tracking server API client
//   - [registry.Dataset] : the dataset-scoped record store
package mirror
