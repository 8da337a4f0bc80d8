// Package ui implements the interactive experiment panel using bubbletea's Elm architecture.
//
// The panel provides a two-level workflow over a dataset's mirrored records:
//  1. [ExperimentListView] : Browse experiments mirrored into the dataset's registry
//  2. [RunListView] : Inspect the runs linked to the selected experiment, with metric snapshots
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Registry reads happen in commands so the event loop never blocks on SQLite.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, q); "o" opens the
// selected experiment on the tracking server in the system browser.
package ui
