// Package repositories implements SQLite persistence for jamx's addition history.
//
// Key Implementations:
//   - [AdditionRepository] : append-only log of tracks added to the playlist
//   - [HistoryRecorder] : adapter that lets the sync pipeline write to the log without knowing about SQL
//
// The schema lives in shared/sql and is applied by [shared.RunMigrations].
package repositories
