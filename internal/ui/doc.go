// Package ui renders jamx's terminal output with bubbletea and lipgloss.
//
// The backfill [Model] follows bubbletea's Init/Update/View pattern with two views:
//  1. [RunningView] : spinner, current phase and the most recent progress lines
//  2. [ResultView] : the [tasks.BackfillResult] summary or the error that stopped the run
//
// Progress flows through a channel from [tasks.Backfill.Run]. Each update is
// turned into a [Msg] by waitForProgress, which re-arms itself until the
// channel closes. Quitting while the run is in flight cancels its context.
//
// [AdditionsTable] renders the addition history for `jamx history`.
package ui
