package workflow

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/chainsight_backend/config"
	"bitbucket.org/mmdatafocus/chainsight_backend/models"
	"bitbucket.org/mmdatafocus/chainsight_backend/utils"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const ingestionModule = "ingestionWorkflow.go"

// Expected spreadsheet columns, in order:
// SKU | ShipmentRef | Quantity | UnitCost | Currency | TransactionDate
const transactionSheetColumns = 6

const transactionDateLayout = "2006-01-02"

// ProcessSpreadsheetUpload ingests a completed .xlsx upload: downloads the
// object, parses the rows into immutable TransactionRecords under a new
// SourceUpload, supersedes the prior upload's rows, and enqueues a run
// trigger, all in one transaction so a half-parsed file never becomes the
// active dataset.
func ProcessSpreadsheetUpload(ctx context.Context, db *gorm.DB, logger *logrus.Logger, organizationId, objectKey, fileName, uploadedBy string) (*models.SourceUpload, error) {
	if !strings.HasSuffix(strings.ToLower(fileName), ".xlsx") {
		return nil, fmt.Errorf("invalid file type: only .xlsx files are allowed")
	}

	data, err := utils.DownloadFromGCS(ctx, objectKey)
	if err != nil {
		config.LogError(logger, ingestionModule, "ProcessSpreadsheetUpload", "Downloading upload from GCS", objectKey, err)
		return nil, err
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unable to open Excel file: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet: %v", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("spreadsheet has no data rows")
	}

	records, err := parseTransactionRows(organizationId, rows[1:])
	if err != nil {
		return nil, err
	}

	upload := models.SourceUpload{
		OrganizationId: organizationId,
		FileName:       fileName,
		ObjectKey:      objectKey,
		RowCount:       len(records),
		Status:         models.UploadStatusActive,
		UploadedBy:     uploadedBy,
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&upload).Error; err != nil {
			return err
		}
		for i := range records {
			records[i].SourceUploadId = upload.ID
			if err := tx.Create(&records[i]).Error; err != nil {
				return err
			}
		}
		if err := models.SupersedePriorUploads(ctx, tx, organizationId, upload.ID); err != nil {
			return err
		}
		return models.EnqueueRunTrigger(ctx, tx, organizationId, models.TriggerSourceUpload, upload.ID)
	})
	if err != nil {
		config.LogError(logger, ingestionModule, "ProcessSpreadsheetUpload", "Persisting upload", organizationId, err)
		return nil, err
	}
	return &upload, nil
}

func parseTransactionRows(organizationId string, rows [][]string) ([]models.TransactionRecord, error) {
	records := make([]models.TransactionRecord, 0, len(rows))
	for idx, row := range rows {
		rowNum := idx + 2
		if len(row) == 0 || strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		if len(row) < transactionSheetColumns {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", rowNum, len(row), transactionSheetColumns)
		}

		sku := strings.TrimSpace(row[0])
		if sku == "" {
			return nil, fmt.Errorf("row %d is missing a SKU", rowNum)
		}

		qty, err := utils.ParseDecimal(row[2])
		if err != nil {
			return nil, fmt.Errorf("could not parse quantity in row %d: %v", rowNum, err)
		}
		unitCost, err := utils.ParseDecimal(row[3])
		if err != nil {
			return nil, fmt.Errorf("could not parse unit cost in row %d: %v", rowNum, err)
		}

		currency := strings.ToUpper(strings.TrimSpace(row[4]))
		if currency == "" {
			currency = "USD"
		}

		txnDate, err := time.Parse(transactionDateLayout, strings.TrimSpace(row[5]))
		if err != nil {
			return nil, fmt.Errorf("could not parse transaction date in row %d: %v", rowNum, err)
		}

		record := models.TransactionRecord{
			OrganizationId:  organizationId,
			Sku:             sku,
			ShipmentRef:     utils.NilIfEmpty(strings.TrimSpace(row[1])),
			Quantity:        qty,
			UnitCost:        unitCost,
			Currency:        currency,
			TransactionDate: txnDate,
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("spreadsheet has no data rows")
	}
	return records, nil
}

// DocumentRecordInput is the extraction collaborator's completion payload for
// one document.
type DocumentRecordInput struct {
	DocumentType         models.DocumentType `json:"document_type" binding:"required"`
	Sku                  *string             `json:"sku"`
	Description          *string             `json:"description"`
	ShipmentRef          *string             `json:"shipment_ref"`
	DeclaredQuantity     string              `json:"declared_quantity" binding:"required"`
	DeclaredUnitCost     string              `json:"declared_unit_cost" binding:"required"`
	ShipmentDate         string              `json:"shipment_date" binding:"required"`
	ExtractionConfidence float64             `json:"extraction_confidence" binding:"gte=0,lte=1"`
	SourceDocumentRef    string              `json:"source_document_ref"`
}

// IngestDocumentRecords stores extraction results immutably and enqueues a
// run trigger in the same transaction.
func IngestDocumentRecords(ctx context.Context, db *gorm.DB, logger *logrus.Logger, organizationId string, inputs []DocumentRecordInput) ([]models.DocumentRecord, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no document records provided")
	}

	records := make([]models.DocumentRecord, 0, len(inputs))
	for i, input := range inputs {
		if !input.DocumentType.Valid() {
			return nil, fmt.Errorf("record %d: unknown document type %q", i, input.DocumentType)
		}
		qty, err := utils.ParseDecimal(input.DeclaredQuantity)
		if err != nil {
			return nil, fmt.Errorf("record %d: could not parse declared quantity: %v", i, err)
		}
		unitCost, err := utils.ParseDecimal(input.DeclaredUnitCost)
		if err != nil {
			return nil, fmt.Errorf("record %d: could not parse declared unit cost: %v", i, err)
		}
		shipmentDate, err := time.Parse(transactionDateLayout, input.ShipmentDate)
		if err != nil {
			return nil, fmt.Errorf("record %d: could not parse shipment date: %v", i, err)
		}

		records = append(records, models.DocumentRecord{
			OrganizationId:       organizationId,
			DocumentType:         input.DocumentType,
			Sku:                  input.Sku,
			Description:          input.Description,
			ShipmentRef:          input.ShipmentRef,
			DeclaredQuantity:     qty,
			DeclaredUnitCost:     unitCost,
			ShipmentDate:         shipmentDate,
			ExtractionConfidence: input.ExtractionConfidence,
			SourceDocumentRef:    input.SourceDocumentRef,
		})
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range records {
			if err := tx.Create(&records[i]).Error; err != nil {
				return err
			}
		}
		return models.EnqueueRunTrigger(ctx, tx, organizationId, models.TriggerSourceDocument, records[0].ID)
	})
	if err != nil {
		config.LogError(logger, ingestionModule, "IngestDocumentRecords", "Persisting document records", organizationId, err)
		return nil, err
	}
	return records, nil
}
