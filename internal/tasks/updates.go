package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchHistory Phase = iota
	FetchPlaylist
	ResolveLinks
	AddTracks
	Complete
)

func (p Phase) String() string {
	switch p {
	case FetchHistory:
		return "fetch_history"
	case FetchPlaylist:
		return "fetch_playlist"
	case ResolveLinks:
		return "resolve_links"
	case AddTracks:
		return "add_tracks"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchHistoryUpdate(channelID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchHistory,
		Message: fmt.Sprintf("Fetching channel history (%s)...", channelID),
	}
}

func fetchedHistoryUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchHistory,
		Step:    count,
		Total:   count,
		Message: fmt.Sprintf("Found %d messages", count),
	}
}

func fetchPlaylistUpdate(playlistID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Message: fmt.Sprintf("Reading playlist %s...", playlistID),
	}
}

func fetchedPlaylistUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    count,
		Total:   count,
		Message: fmt.Sprintf("Playlist already holds %d tracks", count),
	}
}

func resolveUpdate(step, total int, url string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveLinks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Resolving %s", step, total, url),
	}
}

func addedUpdate(step, total int, trackID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, trackID),
	}
}

func skippedUpdate(step, total int, trackID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] - %s already added", step, total, trackID),
	}
}

func failedUpdate(step, total int, trackID string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, trackID, err),
	}
}

func completeUpdate(result *BackfillResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    result.Messages,
		Total:   result.Messages,
		Message: result.String(),
		Data:    result,
	}
}
