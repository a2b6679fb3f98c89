package rbac

import (
	"context"
	"log/slog"

	"github.com/paras-verma7454/DriveDeck/internal"
	datamodel "github.com/paras-verma7454/DriveDeck/internal/core/datamodel/user"
	"github.com/paras-verma7454/DriveDeck/internal/core/events"
	"github.com/paras-verma7454/DriveDeck/pkg/logger"
)

type RepositoryAPI interface {
	ListPermissions(ctx context.Context) ([]datamodel.Permission, error)
	CreatePermission(ctx context.Context, key string) (*datamodel.Permission, error)
	UpdatePermissionKey(ctx context.Context, id int64, key string) (*datamodel.Permission, error)
	DeletePermission(ctx context.Context, id int64) error

	ListRoles(ctx context.Context) ([]datamodel.Role, map[int64][]string, error)
	GetRole(ctx context.Context, id int64) (*datamodel.Role, error)
	RolePermissionKeys(ctx context.Context, roleID int64) ([]string, error)
	CreateRole(ctx context.Context, name string) (*datamodel.Role, error)
	DeleteRole(ctx context.Context, id int64) error

	// ReplaceRolePermissions swaps the role's links for keys atomically and
	// returns the resulting keys.
	ReplaceRolePermissions(ctx context.Context, roleID int64, keys []string) ([]string, error)
}

type Service struct {
	repo      RepositoryAPI
	publisher events.Publisher
	logger    *slog.Logger
}

func NewService(repo RepositoryAPI, publisher events.Publisher, lg *slog.Logger) *Service {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    lg,
	}
}

func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, wrap(err)
	}
	perms := make([]Permission, 0, len(rows))
	for _, row := range rows {
		perms = append(perms, PermissionFromDataModel(row))
	}
	return perms, nil
}

func (s *Service) CreatePermission(ctx context.Context, req PermissionRequest) (*Permission, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	row, err := s.repo.CreatePermission(ctx, req.Key)
	if err != nil {
		return nil, wrap(err)
	}
	s.logger.Info("permission created", "permission_id", row.ID, "key", row.Key)
	p := PermissionFromDataModel(*row)
	return &p, nil
}

// UpdatePermission renames a key. Every role holding it sees the new name,
// so all cached entitlements are dropped.
func (s *Service) UpdatePermission(ctx context.Context, id int64, req PermissionRequest) (*Permission, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	row, err := s.repo.UpdatePermissionKey(ctx, id, req.Key)
	if err != nil {
		return nil, wrap(err)
	}
	s.notifyRole(ctx, 0, "permission renamed")
	p := PermissionFromDataModel(*row)
	return &p, nil
}

func (s *Service) DeletePermission(ctx context.Context, id int64) error {
	if err := s.repo.DeletePermission(ctx, id); err != nil {
		return wrap(err)
	}
	s.logger.Info("permission deleted", "permission_id", id)
	s.notifyRole(ctx, 0, "permission deleted")
	return nil
}

func (s *Service) ListRoles(ctx context.Context) ([]*Role, error) {
	rows, keysByRole, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, wrap(err)
	}
	roles := make([]*Role, 0, len(rows))
	for _, row := range rows {
		roles = append(roles, RoleFromDataModel(row, keysByRole[row.ID]))
	}
	return roles, nil
}

func (s *Service) GetRolePermissions(ctx context.Context, id int64) (*Role, error) {
	row, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return nil, wrap(err)
	}
	keys, err := s.repo.RolePermissionKeys(ctx, id)
	if err != nil {
		return nil, wrap(err)
	}
	return RoleFromDataModel(*row, keys), nil
}

func (s *Service) CreateRole(ctx context.Context, req RoleRequest) (*Role, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	row, err := s.repo.CreateRole(ctx, req.Name)
	if err != nil {
		return nil, wrap(err)
	}
	s.logger.Info("role created", "role_id", row.ID, "name", row.Name)
	return RoleFromDataModel(*row, nil), nil
}

// DeleteRole removes a role together with its grants and assignments. The
// admin role cannot be deleted.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	row, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return wrap(err)
	}
	if RoleFromDataModel(*row, nil).IsAdmin() {
		return internal.ErrRoleProtected
	}
	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return wrap(err)
	}
	s.logger.Info("role deleted", "role_id", id, "name", row.Name)
	s.notifyRole(ctx, id, "role deleted")
	return nil
}

func (s *Service) ReplaceRolePermissions(ctx context.Context, roleID int64, req ReplaceRolePermissionsRequest) (*Role, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	keys, err := s.repo.ReplaceRolePermissions(ctx, roleID, req.Keys())
	if err != nil {
		return nil, wrap(err)
	}
	row, err := s.repo.GetRole(ctx, roleID)
	if err != nil {
		return nil, wrap(err)
	}

	s.logger.Info("role permissions replaced", "role_id", roleID, "permissions", keys)
	s.notifyRole(ctx, roleID, "permissions replaced")
	return RoleFromDataModel(*row, keys), nil
}

// notifyRole tells subscribers that entitlements derived from roleID (all
// roles when zero) changed. The write already committed, so a failing
// subscriber is logged and the request still succeeds.
func (s *Service) notifyRole(ctx context.Context, roleID int64, reason string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishSync(ctx, events.NewRoleEntitlementsChangedEvent(roleID, reason)); err != nil {
		s.logger.Error("entitlement change notification failed", "role_id", roleID, "reason", reason, "error", err)
	}
}

func wrap(err error) error {
	if _, ok := internal.IsAppError(err); ok {
		return err
	}
	return internal.NewInternalError("Internal server error", err)
}
