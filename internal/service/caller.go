package service

import (
	"github.com/google/uuid"
	"github.com/stemsi/cat-backend/internal/model"
)

// Caller identifies the authenticated user on whose behalf an operation runs.
type Caller struct {
	UserID uuid.UUID
	Role   model.Role
}

// IsAdmin reports whether the caller holds the ADMIN role.
func (c Caller) IsAdmin() bool {
	return c.Role == model.RoleAdmin
}

// canRead reports whether c may read a resource owned by ownerID.
func (c Caller) canRead(ownerID uuid.UUID) bool {
	return c.UserID == ownerID || c.IsAdmin()
}
