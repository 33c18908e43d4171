package service

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// RoleDirectory resolves the members of a role. An unknown role or a role
// without members yields an empty slice, not an error.
type RoleDirectory interface {
	UsersWithRole(ctx context.Context, roleName string) ([]domain.User, error)
}
