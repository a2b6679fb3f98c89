package user

import (
	"context"
	"log/slog"

	"github.com/paras-verma7454/DriveDeck/internal"
	"github.com/paras-verma7454/DriveDeck/internal/core/events"
	"github.com/paras-verma7454/DriveDeck/pkg/logger"
)

type Repository interface {
	// ListActiveNonAdmin returns active users whose role is not admin,
	// users without a role included.
	ListActiveNonAdmin(ctx context.Context) ([]UserWithRole, error)
	Deactivate(ctx context.Context, userID string) error
	// AssignRole replaces the user's role assignment.
	AssignRole(ctx context.Context, userID, roleName string) error
	GetWithRole(ctx context.Context, userID string) (*UserWithRole, error)
}

type Service struct {
	repo      Repository
	publisher events.Publisher
	logger    *slog.Logger
}

func NewService(repo Repository, publisher events.Publisher, lg *slog.Logger) *Service {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    lg,
	}
}

func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := s.repo.ListActiveNonAdmin(ctx)
	if err != nil {
		return nil, internal.NewInternalError("Internal server error", err)
	}

	users := make([]*User, 0, len(rows))
	for _, row := range rows {
		users = append(users, FromRow(row))
	}
	return users, nil
}

// Deactivate soft-deletes the user. Their tokens stop working on the next
// request because the loader only sees active users.
func (s *Service) Deactivate(ctx context.Context, userID string) error {
	if err := s.repo.Deactivate(ctx, userID); err != nil {
		return wrap(err)
	}
	s.logger.Info("user deactivated", "target_user_id", userID)
	s.notify(ctx, userID, "deactivated")
	return nil
}

func (s *Service) AssignRole(ctx context.Context, userID string, req AssignRoleRequest) (*User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.AssignRole(ctx, userID, req.Role); err != nil {
		return nil, wrap(err)
	}
	s.logger.Info("user role changed", "target_user_id", userID, "role", req.Role)
	s.notify(ctx, userID, "role changed")

	row, err := s.repo.GetWithRole(ctx, userID)
	if err != nil {
		return nil, wrap(err)
	}
	return FromRow(*row), nil
}

func (s *Service) notify(ctx context.Context, userID, reason string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishSync(ctx, events.NewUserEntitlementsChangedEvent(userID, reason)); err != nil {
		s.logger.Error("entitlement change notification failed", "target_user_id", userID, "reason", reason, "error", err)
	}
}

func wrap(err error) error {
	if _, ok := internal.IsAppError(err); ok {
		return err
	}
	return internal.NewInternalError("Internal server error", err)
}
