// Package models defines the record kinds mirrored from an MLflow tracking server into dataset registries.
//
// The package contains two categories of types:
//
// 1. Registry records: the two mirrored record kinds, discriminated by their method tag
//   - [ExperimentRecord] : metadata for one MLflow experiment plus the display names of attached runs
//   - [RunRecord] : a point-in-time snapshot of one MLflow run (metrics are not live)
//
// 2. Query results: structures returned to callers and operators
//   - [LinkList] / [ExperimentLink] : the URL listing produced for UI presentation
//
// Both record kinds implement [RecordConfig], which ties a record to its
// registry key and method tag. Records round-trip through JSON when stored;
// [DecodeConfig] restores the concrete type from the method discriminator.
package models
