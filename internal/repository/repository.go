// Package repository defines the storage interfaces consumed by the service
// layer. Concrete implementations live in subpackages (sqlite).
package repository

import (
	"context"

	"github.com/afyapp/backend/internal/model"
)

// UserRepository is the persistence surface for local user records.
//
// GetByEmail and GetByID return an error wrapping apperror.ErrNotFound when
// no row matches — the login path relies on that sentinel to decide between
// "attach to existing user" and "create lazily".
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}
