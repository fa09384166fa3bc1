// rescore-all executes a scoring run for every active organization (or one,
// when --organization-id is given). Runs execute synchronously in this
// process rather than through the trigger pipeline, which makes it suitable
// for backfills after an engine threshold change.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/chainsight_backend/config"
	"bitbucket.org/mmdatafocus/chainsight_backend/models"
	"bitbucket.org/mmdatafocus/chainsight_backend/utils"
	"bitbucket.org/mmdatafocus/chainsight_backend/workflow"
	"github.com/sirupsen/logrus"
)

func main() {
	organizationID := flag.String("organization-id", "", "Optional: rescore a single organization")
	enqueueOnly := flag.Bool("enqueue-only", false, "Enqueue run triggers instead of executing runs in-process")
	continueOnError := flag.Bool("continue-on-error", false, "Skip failing organizations and continue")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	config.ConnectRedisWithRetry()
	logger := logrus.New()

	ctx := utils.SetSkipTenantScopeInContext(context.Background())
	ctx = utils.SetUsernameInContext(ctx, "RescoreAll")
	ctx, correlationId := utils.EnsureCorrelationId(ctx)

	organizationIds := []string{strings.TrimSpace(*organizationID)}
	if organizationIds[0] == "" {
		var err error
		organizationIds, err = models.ListActiveOrganizationIds(ctx, db)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to list organizations: %v\n", err)
			os.Exit(1)
		}
	}
	if len(organizationIds) == 0 {
		fmt.Println("no active organizations found")
		return
	}

	failed := 0
	for _, orgId := range organizationIds {
		if *enqueueOnly {
			if err := models.EnqueueRunTrigger(ctx, db, orgId, models.TriggerSourceManual, 0); err != nil {
				fmt.Fprintf(os.Stderr, "organization %s: enqueue failed: %v\n", orgId, err)
				failed++
				if !*continueOnError {
					os.Exit(1)
				}
				continue
			}
			fmt.Printf("organization %s: trigger enqueued\n", orgId)
			continue
		}

		runId, err := workflow.ExecuteScoringRun(ctx, db, logger, orgId, models.TriggerSourceManual)
		if err != nil {
			fmt.Fprintf(os.Stderr, "organization %s: run failed: %v\n", orgId, err)
			failed++
			if !*continueOnError {
				os.Exit(1)
			}
			continue
		}
		fmt.Printf("organization %s: run %d completed\n", orgId, runId)
	}

	fmt.Printf("done: %d organization(s), %d failed (correlation_id=%s)\n", len(organizationIds), failed, correlationId)
	if failed > 0 {
		os.Exit(2)
	}
}
