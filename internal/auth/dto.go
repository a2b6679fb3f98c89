package auth

import (
	"github.com/paras-verma7454/DriveDeck/internal"
	"github.com/paras-verma7454/DriveDeck/internal/core/common/validation"
)

// Roles a caller may pick for themselves at signup.
const (
	RoleUser   = "user"
	RoleVendor = "vendor"
)

// LoginDTO accepts both camelCase and the PascalCase keys older clients send;
// JSON field matching is case-insensitive.
type LoginDTO struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (d LoginDTO) Validate() error {
	if err := validation.Struct(d); err != nil {
		return internal.NewValidationError("Email and Password are required", internal.ErrCodeValidationFailed)
	}
	return nil
}

type SignupDTO struct {
	FirstName   string `json:"firstName" validate:"required,max=100"`
	LastName    string `json:"lastName" validate:"max=100"`
	UserName    string `json:"userName" validate:"required,max=100"`
	PhoneNumber string `json:"phoneNumber" validate:"max=32"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	City        string `json:"city"`
	State       string `json:"state"`
	Country     string `json:"country"`
	Pincode     string `json:"pincode"`
	Role        string `json:"role" validate:"omitempty,oneof=user vendor"`
}

func (d SignupDTO) Validate() error {
	return validation.Struct(d)
}

// RoleName is the requested role, defaulting to user.
func (d SignupDTO) RoleName() string {
	if d.Role == "" {
		return RoleUser
	}
	return d.Role
}
