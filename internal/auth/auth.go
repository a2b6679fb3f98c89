package auth

import (
	"context"
	"sort"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminRoleName is the one role that passes every permission gate.
const AdminRoleName = "admin"

// User is the caller's account as loaded for a request. The password hash
// never leaves the repository.
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
	CreatedAt   time.Time `json:"createdAt"`
}

type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// PermissionSet is the read-only projection role -> permission keys.
type PermissionSet map[string]struct{}

func NewPermissionSet(keys ...string) PermissionSet {
	set := make(PermissionSet, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

func (s PermissionSet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// HasAny reports whether at least one of keys is in the set.
func (s PermissionSet) HasAny(keys ...string) bool {
	for _, k := range keys {
		if s.Has(k) {
			return true
		}
	}
	return false
}

// Keys returns the keys in sorted order.
func (s PermissionSet) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Principal is what the auth middleware attaches to an authenticated request.
type Principal struct {
	SubjectID   string
	User        *User
	Role        *Role
	Permissions PermissionSet
}

func (p *Principal) RoleName() string {
	if p == nil || p.Role == nil {
		return ""
	}
	return p.Role.Name
}

func (p *Principal) IsAdmin() bool {
	return p.RoleName() == AdminRoleName
}

// PrincipalView is the JSON shape of a principal returned to clients.
type PrincipalView struct {
	User        *User    `json:"user"`
	Role        *Role    `json:"role"`
	Permissions []string `json:"permissions"`
}

func (p *Principal) ToView() PrincipalView {
	return PrincipalView{User: p.User, Role: p.Role, Permissions: p.Permissions.Keys()}
}

// Claims is the access token payload. userId is the claim every issued
// token carries; sub mirrors it.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

type TokenGenerator interface {
	GenerateAccessToken(userID string) (string, error)
	Verify(tokenString string) (*Claims, error)
	VerifyHeader(header string) (string, error)
}

// Repository reads identities and entitlements and creates accounts.
type Repository interface {
	FindActiveUser(ctx context.Context, userID string) (*User, error)
	// FindRolesForUser returns the user's role assignments, oldest first.
	FindRolesForUser(ctx context.Context, userID string) ([]Role, error)
	PermissionKeysForRole(ctx context.Context, roleID int64) ([]string, error)
	FindCredentialsByEmail(ctx context.Context, email string) (*User, string, error)
	CreateUserWithRole(ctx context.Context, user *User, passwordHash, roleName string) (*Role, error)
}

type ServiceAPI interface {
	Authenticate(ctx context.Context, authorizationHeader string) (*Principal, error)
	LoadPrincipal(ctx context.Context, subjectID string) (*Principal, error)
	Login(ctx context.Context, dto LoginDTO) (*AuthResponse, error)
	Signup(ctx context.Context, dto SignupDTO) (*AuthResponse, error)
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    *User  `json:"user"`
	Role    *Role  `json:"role"`
}
