// alert-history-audit verifies the append-only alert invariants:
//   - prior_alert_id always references an existing alert of the same
//     organization and category
//   - clear records (prior_alert_id set) are always in the resolved state
//   - no open alert is superseded by more than one clear record
//
// Read-only; exits non-zero when violations are found.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/chainsight_backend/config"
	"bitbucket.org/mmdatafocus/chainsight_backend/utils"
)

type violation struct {
	AlertId int
	Reason  string
}

func main() {
	organizationID := flag.String("organization-id", "", "Optional: audit a single organization")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	ctx := utils.SetSkipTenantScopeInContext(context.Background())

	orgFilter := ""
	var args []any
	if strings.TrimSpace(*organizationID) != "" {
		orgFilter = " AND a.organization_id = ?"
		args = append(args, strings.TrimSpace(*organizationID))
	}

	var violations []violation

	// Dangling or cross-tenant / cross-category prior references.
	var dangling []violation
	if err := db.WithContext(ctx).Raw(`
		SELECT a.id AS alert_id,
		       CASE
		           WHEN p.id IS NULL THEN 'prior_alert_id references a missing alert'
		           WHEN p.organization_id <> a.organization_id THEN 'prior_alert_id crosses organizations'
		           ELSE 'prior_alert_id crosses categories'
		       END AS reason
		FROM alerts a
		LEFT JOIN alerts p ON p.id = a.prior_alert_id
		WHERE a.prior_alert_id IS NOT NULL
		  AND (p.id IS NULL OR p.organization_id <> a.organization_id OR p.category <> a.category)`+orgFilter,
		args...).Scan(&dangling).Error; err != nil {
		fmt.Fprintf(os.Stderr, "prior reference audit failed: %v\n", err)
		os.Exit(1)
	}
	violations = append(violations, dangling...)

	// Clear records must be resolved.
	var unresolved []violation
	if err := db.WithContext(ctx).Raw(`
		SELECT a.id AS alert_id, 'clear record is not in resolved state' AS reason
		FROM alerts a
		WHERE a.prior_alert_id IS NOT NULL AND a.state <> 'resolved'`+orgFilter,
		args...).Scan(&unresolved).Error; err != nil {
		fmt.Fprintf(os.Stderr, "clear state audit failed: %v\n", err)
		os.Exit(1)
	}
	violations = append(violations, unresolved...)

	// At most one clear record per superseded alert.
	var duplicated []violation
	if err := db.WithContext(ctx).Raw(`
		SELECT a.prior_alert_id AS alert_id, 'alert is superseded by multiple clear records' AS reason
		FROM alerts a
		WHERE a.prior_alert_id IS NOT NULL`+orgFilter+`
		GROUP BY a.prior_alert_id
		HAVING COUNT(*) > 1`,
		args...).Scan(&duplicated).Error; err != nil {
		fmt.Fprintf(os.Stderr, "duplicate clear audit failed: %v\n", err)
		os.Exit(1)
	}
	violations = append(violations, duplicated...)

	if len(violations) == 0 {
		fmt.Println("alert history is consistent")
		return
	}
	for _, v := range violations {
		fmt.Printf("alert %d: %s\n", v.AlertId, v.Reason)
	}
	fmt.Printf("%d violation(s) found\n", len(violations))
	os.Exit(3)
}
