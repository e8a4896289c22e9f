package workflow

import (
	"fmt"

	"github.com/caseflow-dev/caseflow/internal/models"
	"gorm.io/gorm"
)

// AppendHistory inserts an audit row for a case transition. Call inside the
// same transaction as the transition itself so they commit together.
func AppendHistory(tx *gorm.DB, caseID uint, from, to, action, performedBy, notes string) (*models.CaseWorkflowHistory, error) {
	row := models.CaseWorkflowHistory{
		CaseID:      caseID,
		FromStatus:  from,
		ToStatus:    to,
		Action:      action,
		PerformedBy: performedBy,
		Notes:       notes,
		SyncStatus:  models.SyncPending,
	}
	if err := tx.Create(&row).Error; err != nil {
		return nil, fmt.Errorf("workflow: history for case %d: %w", caseID, err)
	}
	return &row, nil
}

// casUpdate performs an optimistic-concurrency update: the row is matched on
// id and lock_version, and the version is bumped in the same statement. Zero
// matched rows means another actor won the race.
func casUpdate(tx *gorm.DB, model interface{}, id interface{}, lockVersion int, updates map[string]interface{}) error {
	updates["lock_version"] = lockVersion + 1
	result := tx.Model(model).
		Where("id = ? AND lock_version = ?", id, lockVersion).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("workflow: update: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return &StateConflictError{Message: "the record was modified by another user; retry the operation"}
	}
	return nil
}
