package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DocumentRecord is one field set extracted from a trade document (invoice,
// packing list, bill of lading, customs form) by the extraction collaborator.
// Produced once per document per extraction pass; immutable.
type DocumentRecord struct {
	ID             int          `gorm:"primary_key" json:"id"`
	OrganizationId string       `gorm:"size:64;not null;index:idx_doc_org,priority:1" json:"organization_id"`
	DocumentType   DocumentType `gorm:"type:enum('Invoice','PackingList','BillOfLading','Customs');not null" json:"document_type"`

	Sku         *string `gorm:"size:100" json:"sku"`
	Description *string `gorm:"size:255" json:"description"`
	ShipmentRef *string `gorm:"size:100" json:"shipment_ref"`

	DeclaredQuantity decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"declared_quantity"`
	DeclaredUnitCost decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"declared_unit_cost"`

	ShipmentDate time.Time `gorm:"not null;index:idx_doc_org,priority:2" json:"shipment_date"`

	// ExtractionConfidence in [0,1], reported by the extraction collaborator.
	ExtractionConfidence float64 `gorm:"not null;default:0" json:"extraction_confidence"`

	SourceDocumentRef string    `gorm:"size:255" json:"source_document_ref"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// HasMatchableKey reports whether the record carries at least one usable
// matching key. Records without SKU and description are excluded from
// resolution and surfaced as data-quality issues.
func (d DocumentRecord) HasMatchableKey() bool {
	if d.Sku != nil && *d.Sku != "" {
		return true
	}
	if d.Description != nil && *d.Description != "" {
		return true
	}
	return false
}

// DeclaredValue is declared quantity x declared unit cost.
func (d DocumentRecord) DeclaredValue() decimal.Decimal {
	return d.DeclaredQuantity.Mul(d.DeclaredUnitCost)
}

func GetDocumentRecords(ctx context.Context, db *gorm.DB, organizationId string) ([]DocumentRecord, error) {
	var records []DocumentRecord
	err := db.WithContext(ctx).
		Where("organization_id = ?", organizationId).
		Order("id ASC").
		Find(&records).Error
	return records, err
}
