package auth

import (
	"context"

	"github.com/alnahda/portal/internal/model"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const (
	ContextKeyUserID ContextKey = "userID"
	ContextKeyRole   ContextKey = "role"
)

func ContextWithUser(ctx context.Context, userID model.UserID, role model.Role) context.Context {
	ctx = context.WithValue(ctx, ContextKeyUserID, userID)
	return context.WithValue(ctx, ContextKeyRole, role)
}

func UserIDFromContext(ctx context.Context) (model.UserID, bool) {
	userID, ok := ctx.Value(ContextKeyUserID).(model.UserID)
	return userID, ok
}

func RoleFromContext(ctx context.Context) (model.Role, bool) {
	role, ok := ctx.Value(ContextKeyRole).(model.Role)
	return role, ok
}
