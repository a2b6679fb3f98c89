package rbac

import (
	"strings"

	"github.com/paras-verma7454/DriveDeck/internal/core/common/validation"
)

type PermissionRequest struct {
	Key string `json:"key" validate:"required,permkey"`
}

func (d *PermissionRequest) Validate() error {
	d.Key = strings.TrimSpace(d.Key)
	return validation.Struct(d)
}

type RoleRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

func (d *RoleRequest) Validate() error {
	d.Name = strings.ToLower(strings.TrimSpace(d.Name))
	return validation.Struct(d)
}

// ReplaceRolePermissionsRequest is the full new grant list of a role. An
// empty list clears the role; a missing field is rejected.
type ReplaceRolePermissionsRequest struct {
	Permissions []string `json:"permissions" validate:"required,dive,permkey"`
}

func (d *ReplaceRolePermissionsRequest) Validate() error {
	return validation.Struct(d)
}

// Keys returns the requested keys without duplicates, in request order.
func (d *ReplaceRolePermissionsRequest) Keys() []string {
	seen := make(map[string]struct{}, len(d.Permissions))
	keys := make([]string, 0, len(d.Permissions))
	for _, k := range d.Permissions {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

type PermissionsResponse struct {
	Permissions []Permission `json:"permissions"`
}

type RolesResponse struct {
	Roles []*Role `json:"roles"`
}
