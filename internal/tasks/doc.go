// Package tasks runs the sync work: turning chat messages into playlist additions.
//
// # Pipeline
//
// [Pipeline.Process] handles one chat message. It extracts links, resolves
// each to a Spotify track ID, drops IDs repeated in the same message, checks
// the [Ledger] and calls the [Mutator] for whatever is left. The message ends
// in exactly one [Category]:
//
//   - [Unresolved] : no link, or no link that resolved
//   - [ServiceUnavailable] : Spotify is not configured
//   - [PartialOrFullFailure] : nothing added and at least one add failed
//   - [AllDuplicates] : every track was added within the dedup window
//   - [Success] : at least one track added
//
// Per-URL and per-track failures are logged and counted; they never stop the
// rest of the message. Process itself never fails.
//
// # Feedback
//
// The category is handed to a [Feedback] implementation. [ChatFeedback] reacts
// to the message and replies in its thread.
//
// # Backfill
//
// [Backfill.Run] applies the same resolve-and-add logic to a channel's whole
// history, skipping tracks already in the playlist. It reports progress over
// an optional channel of [ProgressUpdate] values; sends never block.
//
// # History
//
// An optional [Recorder] is told about every addition. Recorder errors are
// logged and otherwise ignored.
package tasks
