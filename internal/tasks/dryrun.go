package tasks

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jamx/internal/shared"
)

// DryRunMutator logs additions instead of performing them. Every call succeeds.
type DryRunMutator struct {
	logger *log.Logger
}

var _ Mutator = DryRunMutator{}

// NewDryRunMutator creates a [DryRunMutator] logging to logger.
func NewDryRunMutator(logger *log.Logger) DryRunMutator {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return DryRunMutator{logger: logger}
}

func (d DryRunMutator) AddTrack(_ context.Context, trackID string) error {
	d.logger.Info("[dry run] would add track", "track", trackID)
	return nil
}
