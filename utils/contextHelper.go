package utils

import (
	"context"

	"bitbucket.org/mmdatafocus/chainsight_backend/appctx"
	"github.com/google/uuid"
)

func GetTokenFromContext(ctx context.Context) string {
	v, _ := appctx.GetString(ctx, appctx.ContextKeyToken)
	return v
}

func SetTokenInContext(ctx context.Context, token string) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyToken, token)
}

func GetOrganizationIdFromContext(ctx context.Context) string {
	v, _ := appctx.GetString(ctx, appctx.ContextKeyOrganizationId)
	return v
}

func SetOrganizationIdInContext(ctx context.Context, organizationId string) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyOrganizationId, organizationId)
}

func GetUsernameFromContext(ctx context.Context) string {
	v, _ := appctx.GetString(ctx, appctx.ContextKeyUsername)
	return v
}

func SetUsernameInContext(ctx context.Context, username string) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyUsername, username)
}

func GetUserIdFromContext(ctx context.Context) int {
	v, _ := appctx.GetInt(ctx, appctx.ContextKeyUserId)
	return v
}

func SetUserIdInContext(ctx context.Context, userId int) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyUserId, userId)
}

func GetIsAdminFromContext(ctx context.Context) bool {
	v, _ := appctx.GetBool(ctx, appctx.ContextKeyIsAdmin)
	return v
}

func SetIsAdminInContext(ctx context.Context, isAdmin bool) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyIsAdmin, isAdmin)
}

// GetCorrelationIdFromContext returns the correlation id attached to the
// request, or an empty string when the caller never set one.
func GetCorrelationIdFromContext(ctx context.Context) string {
	v, _ := appctx.GetString(ctx, appctx.ContextKeyCorrelationId)
	return v
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyCorrelationId, correlationId)
}

// EnsureCorrelationId returns a context that always carries a correlation id,
// minting a new one when the incoming context has none.
func EnsureCorrelationId(ctx context.Context) (context.Context, string) {
	if cid := GetCorrelationIdFromContext(ctx); cid != "" {
		return ctx, cid
	}
	cid := uuid.NewString()
	return SetCorrelationIdInContext(ctx, cid), cid
}

// SetSkipTenantScopeInContext marks the context so the tenant guard plugin
// lets queries run without an organization_id filter. Only background jobs
// and admin tooling should use it.
func SetSkipTenantScopeInContext(ctx context.Context) context.Context {
	return appctx.Set(ctx, appctx.ContextKeySkipTenantScope, true)
}
