package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionRecord is one structured inventory/sales row derived from a
// spreadsheet upload. Rows are immutable once ingested: a re-upload supersedes
// the whole SourceUpload, it never mutates rows in place.
type TransactionRecord struct {
	ID             int     `gorm:"primary_key" json:"id"`
	OrganizationId string  `gorm:"size:64;not null;index:idx_txn_org_sku,priority:1;index:idx_txn_org_date,priority:1" json:"organization_id"`
	Sku            string  `gorm:"size:100;not null;index:idx_txn_org_sku,priority:2" json:"sku"`
	ShipmentRef    *string `gorm:"size:100" json:"shipment_ref"`

	Quantity decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	UnitCost decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_cost"`
	Currency string          `gorm:"size:3;not null;default:'USD'" json:"currency"`

	TransactionDate time.Time `gorm:"not null;index:idx_txn_org_date,priority:2" json:"transaction_date"`

	SourceUploadId int       `gorm:"not null;index" json:"source_upload_id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// GetActiveTransactionRecords returns the organization's current transaction
// set: rows belonging to the active (non-superseded) uploads only. This is the
// snapshot input of a scoring run.
func GetActiveTransactionRecords(ctx context.Context, db *gorm.DB, organizationId string) ([]TransactionRecord, error) {
	var records []TransactionRecord
	err := db.WithContext(ctx).
		Joins("JOIN source_uploads ON source_uploads.id = transaction_records.source_upload_id").
		Where("transaction_records.organization_id = ?", organizationId).
		Where("source_uploads.status = ?", UploadStatusActive).
		Order("transaction_records.id ASC").
		Find(&records).Error
	return records, err
}
