package models

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// SourceUpload tracks one spreadsheet upload. Superseding an upload flips its
// status; the rows underneath are never touched.
type SourceUpload struct {
	ID             int          `gorm:"primary_key" json:"id"`
	OrganizationId string       `gorm:"size:64;not null;index" json:"organization_id"`
	FileName       string       `gorm:"size:255;not null" json:"file_name"`
	ObjectKey      string       `gorm:"size:512;not null" json:"object_key"`
	RowCount       int          `gorm:"not null;default:0" json:"row_count"`
	Status         UploadStatus `gorm:"type:enum('Active','Superseded','Failed');not null;default:'Active'" json:"status"`
	UploadedBy     string       `gorm:"size:100" json:"uploaded_by"`
	CreatedAt      time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

// SupersedePriorUploads marks every earlier active upload of the organization
// superseded. Runs inside the ingestion transaction.
func SupersedePriorUploads(ctx context.Context, tx *gorm.DB, organizationId string, exceptUploadId int) error {
	return tx.WithContext(ctx).Model(&SourceUpload{}).
		Where("organization_id = ? AND status = ? AND id <> ?", organizationId, UploadStatusActive, exceptUploadId).
		Update("status", UploadStatusSuperseded).Error
}
