package user

import (
	"time"

	userDatamodel "github.com/paras-verma7454/DriveDeck/internal/core/datamodel/user"
)

// User is the admin-facing view of an account.
type User struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	UserName    string    `json:"userName"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	City        string    `json:"city,omitempty"`
	State       string    `json:"state,omitempty"`
	Country     string    `json:"country,omitempty"`
	Pincode     string    `json:"pincode,omitempty"`
	Image       string    `json:"image,omitempty"`
	IsActive    bool      `json:"isActive"`
	Role        string    `json:"role,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// UserWithRole is a users row joined with the name of its role.
type UserWithRole struct {
	userDatamodel.User
	RoleName *string `gorm:"column:role_name"`
}

func FromDataModel(u *userDatamodel.User, role string) *User {
	return &User{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		UserName:    u.UserName,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		City:        u.City,
		State:       u.State,
		Country:     u.Country,
		Pincode:     u.Pincode,
		Image:       u.Image,
		IsActive:    u.IsActive,
		Role:        role,
		CreatedAt:   u.CreatedAt,
	}
}

func FromRow(row UserWithRole) *User {
	role := ""
	if row.RoleName != nil {
		role = *row.RoleName
	}
	return FromDataModel(&row.User, role)
}
