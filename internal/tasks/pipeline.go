package tasks

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jamx/internal/links"
	"github.com/desertthunder/jamx/internal/models"
	"github.com/desertthunder/jamx/internal/shared"
)

// Mutator adds one track to the target playlist.
type Mutator interface {
	AddTrack(ctx context.Context, trackID string) error
}

// Resolver maps a music link to a Spotify track ID.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (string, bool)
}

// Ledger tracks recent additions.
type Ledger interface {
	IsDuplicate(trackID string) bool
	RecordAdded(trackID string)
}

// Feedback tells the chat how a message was handled.
type Feedback interface {
	Deliver(ctx context.Context, msg Message, outcome Outcome)
}

// Recorder persists additions.
type Recorder interface {
	RecordAddition(trackID, channel, messageTS string, source models.Source) error
}

// Message is an inbound chat message.
type Message struct {
	Channel string
	TS      string
	Text    string
}

// Category is the single classification of a processed message.
type Category int

const (
	Unresolved Category = iota
	ServiceUnavailable
	PartialOrFullFailure
	AllDuplicates
	Success
)

func (c Category) String() string {
	switch c {
	case Unresolved:
		return "unresolved"
	case ServiceUnavailable:
		return "service_unavailable"
	case PartialOrFullFailure:
		return "failure"
	case AllDuplicates:
		return "all_duplicates"
	case Success:
		return "success"
	default:
		return ""
	}
}

// Outcome is the result of processing one message.
type Outcome struct {
	Category Category
	URLs     int      // links found in the text
	Resolved []string // unique track IDs, in first-seen order
	Added    int
	Skipped  int
	Failed   int
}

func classify(added, failed int) Category {
	switch {
	case added > 0:
		return Success
	case failed > 0:
		return PartialOrFullFailure
	default:
		return AllDuplicates
	}
}

// PipelineOpts configures a [Pipeline]. A nil Mutator means Spotify is not configured.
type PipelineOpts struct {
	Resolver Resolver
	Mutator  Mutator
	Ledger   Ledger
	Feedback Feedback
	Recorder Recorder
	Logger   *log.Logger
}

// Pipeline processes chat messages into playlist additions.
//
// Safe for concurrent use when its collaborators are.
type Pipeline struct {
	resolver Resolver
	mutator  Mutator
	ledger   Ledger
	feedback Feedback
	recorder Recorder
	logger   *log.Logger
}

// NewPipeline creates a [Pipeline] from opts.
func NewPipeline(opts PipelineOpts) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Pipeline{
		resolver: opts.Resolver,
		mutator:  opts.Mutator,
		ledger:   opts.Ledger,
		feedback: opts.Feedback,
		recorder: opts.Recorder,
		logger:   logger,
	}
}

// Process handles msg and delivers its outcome to the feedback collaborator.
func (p *Pipeline) Process(ctx context.Context, msg Message) Outcome {
	logger := shared.WithLogger(p.logger, "id", shared.GenerateID()[:8], "ts", msg.TS)

	outcome := p.run(ctx, msg, logger)

	switch outcome.Category {
	case Success, AllDuplicates:
		logger.Info("processed message", "outcome", outcome.Category, "added", outcome.Added, "skipped", outcome.Skipped, "failed", outcome.Failed)
	default:
		logger.Warn("processed message", "outcome", outcome.Category, "urls", outcome.URLs, "resolved", len(outcome.Resolved), "failed", outcome.Failed)
	}

	if p.feedback != nil {
		p.feedback.Deliver(ctx, msg, outcome)
	}
	return outcome
}

func (p *Pipeline) run(ctx context.Context, msg Message, logger *log.Logger) Outcome {
	urls := links.Extract(msg.Text)
	outcome := Outcome{URLs: len(urls), Category: Unresolved}
	if len(urls) == 0 {
		return outcome
	}

	outcome.Resolved = resolveAll(ctx, p.resolver, urls, logger)
	if len(outcome.Resolved) == 0 {
		return outcome
	}

	if p.mutator == nil {
		outcome.Category = ServiceUnavailable
		return outcome
	}

	for _, trackID := range outcome.Resolved {
		if p.ledger.IsDuplicate(trackID) {
			logger.Debug("skipping recent track", "track", trackID)
			outcome.Skipped++
			continue
		}

		if err := p.mutator.AddTrack(ctx, trackID); err != nil {
			logger.Warn("failed to add track", "track", trackID, "error", err)
			outcome.Failed++
			continue
		}

		p.ledger.RecordAdded(trackID)
		outcome.Added++
		p.record(trackID, msg.Channel, msg.TS, models.SourceMessage, logger)
	}

	outcome.Category = classify(outcome.Added, outcome.Failed)
	return outcome
}

func (p *Pipeline) record(trackID, channel, ts string, source models.Source, logger *log.Logger) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.RecordAddition(trackID, channel, ts, source); err != nil {
		logger.Warn("failed to record addition", "track", trackID, "error", err)
	}
}

// resolveAll resolves urls in order and returns the distinct track IDs.
func resolveAll(ctx context.Context, r Resolver, urls []string, logger *log.Logger) []string {
	seen := make(map[string]struct{}, len(urls))
	var ids []string

	for _, u := range urls {
		id, ok := r.Resolve(ctx, u)
		if !ok {
			logger.Warn("could not resolve link", "url", u)
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	return ids
}
