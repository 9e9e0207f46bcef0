package utils

import (
	"context"

	"github.com/validtech/valid_backend/appctx"
)

var (
	ContextKeyToken         = appctx.ContextKeyToken
	ContextKeyEmail         = appctx.ContextKeyEmail
	ContextKeyProfileId     = appctx.ContextKeyProfileId
	ContextKeyProfileName   = appctx.ContextKeyProfileName
	ContextKeyAccountId     = appctx.ContextKeyAccountId
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId

	ContextKeyIsAdmin         = appctx.ContextKeyIsAdmin
	ContextKeySkipTenantScope = appctx.ContextKeySkipTenantScope
)

func GetTokenFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyToken)
}

func GetEmailFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyEmail)
}

func GetProfileIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyProfileId)
}

func GetProfileNameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyProfileName)
}

func GetAccountIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyAccountId)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetTokenInContext(ctx context.Context, token string) context.Context {
	return appctx.Set(ctx, ContextKeyToken, token)
}

func SetEmailInContext(ctx context.Context, email string) context.Context {
	return appctx.Set(ctx, ContextKeyEmail, email)
}

func SetProfileIdInContext(ctx context.Context, profileId string) context.Context {
	return appctx.Set(ctx, ContextKeyProfileId, profileId)
}

func SetProfileNameInContext(ctx context.Context, name string) context.Context {
	return appctx.Set(ctx, ContextKeyProfileName, name)
}

func SetAccountIdInContext(ctx context.Context, accountId string) context.Context {
	return appctx.Set(ctx, ContextKeyAccountId, accountId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func GetIsAdminFromContext(ctx context.Context) (bool, bool) {
	return appctx.GetBool(ctx, ContextKeyIsAdmin)
}

func SetIsAdminInContext(ctx context.Context, isAdmin bool) context.Context {
	return appctx.Set(ctx, ContextKeyIsAdmin, isAdmin)
}

func SetSkipTenantScopeInContext(ctx context.Context, skip bool) context.Context {
	return appctx.Set(ctx, ContextKeySkipTenantScope, skip)
}

// ActorName is the display name recorded in history rows.
func ActorName(ctx context.Context) string {
	if name, ok := GetProfileNameFromContext(ctx); ok && name != "" {
		return name
	}
	if email, ok := GetEmailFromContext(ctx); ok && email != "" {
		return email
	}
	return "system"
}
