// seed-admin creates or updates the admin console user (username: chainsightAdmin).
// Admin users have role = 'A'.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-admin
package main

import (
	"context"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/chainsight_backend/config"
	"bitbucket.org/mmdatafocus/chainsight_backend/models"
	"bitbucket.org/mmdatafocus/chainsight_backend/utils"
	"gorm.io/gorm"
)

const (
	adminUsername = "chainsightAdmin"
	adminPassword = "Ch@in$ightAdmin"
	adminName     = "ChainSight Admin"
)

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	// The admin user is attached to a real organization (first in DB) but can
	// act on any tenant. An empty DB gets a demo organization so the console
	// is usable immediately after first deploy.
	var org models.Organization
	lookupCtx := utils.SetSkipTenantScopeInContext(ctx)
	if err := db.WithContext(lookupCtx).Model(&models.Organization{}).Select("id").First(&org).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup organization: %v\n", err)
			os.Exit(1)
		}
		org = models.Organization{
			ID:       "demo-org",
			Name:     "ChainSight Demo",
			Industry: "Wholesale Distribution",
			Timezone: "UTC",
			IsActive: utils.NewTrue(),
		}
		if err := db.WithContext(lookupCtx).Create(&org).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create demo organization: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created demo organization: id=%q\n", org.ID)
	}

	ctx = utils.SetOrganizationIdInContext(ctx, org.ID)
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUsernameInContext(ctx, adminUsername)
	ctx = utils.SetIsAdminInContext(ctx, true)
	ctx = utils.SetSkipTenantScopeInContext(ctx)

	hashed, err := models.HashPassword(adminPassword)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}

	var existing models.User
	err = db.WithContext(ctx).Model(&models.User{}).Where("username = ?", adminUsername).First(&existing).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup user: %v\n", err)
			os.Exit(1)
		}
		// Create new admin user
		u := models.User{
			Username:       adminUsername,
			Name:           adminName,
			Password:       hashed,
			IsActive:       utils.NewTrue(),
			Role:           models.UserRoleAdmin,
			OrganizationId: org.ID,
		}
		if err := db.WithContext(ctx).Create(&u).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create admin user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created admin user: username=%q (role=Admin)\n", adminUsername)
		return
	}

	// Update existing user: ensure password and admin role
	if err := db.WithContext(ctx).Model(&models.User{}).Where("username = ?", adminUsername).Updates(map[string]any{
		"password":        hashed,
		"name":            adminName,
		"is_active":       utils.NewTrue(),
		"organization_id": org.ID,
		"role":            models.UserRoleAdmin,
	}).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to update admin user: %v\n", err)
		os.Exit(1)
	}
	_ = config.RemoveRedisKey("User:" + adminUsername)
	fmt.Printf("Updated admin user: username=%q (role=Admin)\n", adminUsername)
}
