package store

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tabvault/tabvault/internal/shared/types"
)

// ShiftIndices adds delta to the index of every active tab in a window at or
// after startIndex, bumping updated times. It must run in the same
// transaction as the insert/delete/move that triggered it, so no reader ever
// observes a gap or duplicate in the window's ordering. No-op when delta is 0.
func (s *Store) ShiftIndices(windowID int64, startIndex, delta int) error {
	if delta == 0 {
		return nil
	}
	err := s.db.Model(&types.Tab{}).
		Where("window_id = ? AND tab_status = ? AND tab_index >= ?",
			windowID, types.StatusActive, startIndex).
		Updates(map[string]interface{}{
			"tab_index":  gorm.Expr("tab_index + ?", delta),
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to shift indices: %w", err)
	}
	return nil
}
