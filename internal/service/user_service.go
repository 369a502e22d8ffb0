package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/cat-backend/internal/model"
)

// UserService handles admin management of user accounts.
type UserService struct {
	users UserStore
	log   zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(users UserStore, log zerolog.Logger) *UserService {
	return &UserService{users: users, log: log.With().Str("component", "user_service").Logger()}
}

// List returns every user.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, storeErr("list users", err)
	}
	return users, nil
}

// Update edits a user's name or role. Admins cannot change their own role.
func (s *UserService) Update(ctx context.Context, caller Caller, id uuid.UUID, req model.UpdateUserRequest) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("get user", err)
	}

	if req.Name != nil {
		u.Name = strings.TrimSpace(*req.Name)
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, newValidationError("role", "must be one of ADMIN TEST_TAKER")
		}
		if id == caller.UserID && *req.Role != u.Role {
			return nil, newValidationError("role", "cannot change your own role")
		}
		u.Role = *req.Role
	}

	if err := s.users.Update(ctx, u); err != nil {
		return nil, storeErr("update user", err)
	}
	s.log.Info().Str("user_id", id.String()).Str("role", string(u.Role)).Msg("User updated")
	return u, nil
}
