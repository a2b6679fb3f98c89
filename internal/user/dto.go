package user

import (
	"strings"

	"github.com/paras-verma7454/DriveDeck/internal/core/common/validation"
)

type AssignRoleRequest struct {
	Role string `json:"role" validate:"required,max=64"`
}

func (d *AssignRoleRequest) Validate() error {
	d.Role = strings.ToLower(strings.TrimSpace(d.Role))
	return validation.Struct(d)
}

type UsersResponse struct {
	Users []*User `json:"users"`
}
