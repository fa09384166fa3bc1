package models

import (
	"log"

	"bitbucket.org/mmdatafocus/chainsight_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Organization{}, &User{},
		&SourceUpload{}, &TransactionRecord{}, &DocumentRecord{},
		&ScoringRun{}, &CrossReferenceLink{}, &DiscrepancyFinding{},
		&TriangleScore{}, &CompromisedInventoryItem{},
		&Alert{},
		&OperationalMetrics{},
		&RunTriggerRecord{}, &IdempotencyKey{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
