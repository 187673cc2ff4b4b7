package repositories

import (
	"fmt"

	"github.com/desertthunder/jamx/internal/models"
)

// HistoryRecorder writes pipeline additions through an [AdditionRepository].
type HistoryRecorder struct {
	repo *AdditionRepository
}

// NewHistoryRecorder creates a new HistoryRecorder with the given repository
func NewHistoryRecorder(repo *AdditionRepository) *HistoryRecorder {
	return &HistoryRecorder{repo: repo}
}

// RecordAddition stores one addition of trackID.
func (h *HistoryRecorder) RecordAddition(trackID, channel, messageTS string, source models.Source) error {
	if err := h.repo.Create(models.NewAddition(trackID, channel, messageTS, source)); err != nil {
		return fmt.Errorf("failed to record addition: %w", err)
	}
	return nil
}
