package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jamx/internal/shared"
)

const (
	reactionAdded   = "musical_note"
	reactionProblem = "grey_question"
)

// ChatPoster is the write side of the chat API.
type ChatPoster interface {
	PostMessage(ctx context.Context, channel, threadTS, text string) error
	AddReaction(ctx context.Context, channel, ts, name string) error
}

// ChatFeedback reacts to a processed message and replies in its thread.
//
// Messages without any link get no feedback at all.
type ChatFeedback struct {
	poster ChatPoster
	logger *log.Logger
}

var _ Feedback = (*ChatFeedback)(nil)

// NewChatFeedback creates a [ChatFeedback] that posts through poster.
func NewChatFeedback(poster ChatPoster, logger *log.Logger) *ChatFeedback {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &ChatFeedback{poster: poster, logger: logger}
}

// Deliver posts the reaction and reply for outcome. Chat errors are logged.
func (f *ChatFeedback) Deliver(ctx context.Context, msg Message, outcome Outcome) {
	if outcome.URLs == 0 {
		return
	}

	reaction, reply := FeedbackFor(outcome)

	if err := f.poster.AddReaction(ctx, msg.Channel, msg.TS, reaction); err != nil {
		f.logger.Warn("failed to add reaction", "ts", msg.TS, "reaction", reaction, "error", err)
	}
	if err := f.poster.PostMessage(ctx, msg.Channel, msg.TS, reply); err != nil {
		f.logger.Warn("failed to post reply", "ts", msg.TS, "error", err)
	}
}

// FeedbackFor returns the reaction emoji and thread reply for outcome.
func FeedbackFor(outcome Outcome) (reaction, reply string) {
	switch outcome.Category {
	case Success:
		return reactionAdded, fmt.Sprintf("Added %d track(s) to the playlist ✅", outcome.Added)
	case ServiceUnavailable:
		return reactionProblem, "Spotify is not configured. Please set SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET, SPOTIFY_REFRESH_TOKEN, and SPOTIFY_PLAYLIST_ID."
	case PartialOrFullFailure:
		return reactionProblem, "Couldn't add track(s) to the playlist, Spotify returned an error. If this keeps happening, try running the bot locally (Spotify may block cloud servers)."
	case AllDuplicates:
		return reactionProblem, "All tracks were already added in the last hour."
	default:
		return reactionProblem, "Couldn't resolve that link. Try a Spotify link or include artist + title."
	}
}
