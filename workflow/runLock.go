package workflow

import (
	"fmt"

	"gorm.io/gorm"
)

// AcquireOrganizationRunLock serializes scoring runs per organization across
// instances using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same
// *gorm.DB that will run the persistence transaction.
func AcquireOrganizationRunLock(tx *gorm.DB, organizationId string) error {
	lockName := fmt.Sprintf("intelligence:%s", organizationId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire run lock for organization_id=%s", organizationId)
	}
	return nil
}

func ReleaseOrganizationRunLock(tx *gorm.DB, organizationId string) {
	lockName := fmt.Sprintf("intelligence:%s", organizationId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}
