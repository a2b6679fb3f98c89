package auth

import (
	"context"
	"sync"

	"github.com/paras-verma7454/DriveDeck/internal"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type mockRepository struct {
	mu         sync.Mutex
	users      map[string]*User
	hashes     map[string]string
	roles      map[string][]Role
	perms      map[int64][]string
	userLoads  int
	shouldFail bool
	failErr    error

	// When permsHeld is set, the next PermissionKeysForRole signals
	// permsRead after reading the keys and waits on permsHeld before
	// returning them.
	permsRead chan struct{}
	permsHeld chan struct{}
}

func newMockRepository() *mockRepository {
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct_password"), bcrypt.MinCost)

	return &mockRepository{
		users: map[string]*User{
			"u-vendor": {ID: "u-vendor", Email: "vendor@example.com", UserName: "vendor", IsActive: true},
			"u-admin":  {ID: "u-admin", Email: "admin@example.com", UserName: "admin", IsActive: true},
			"u-buyer":  {ID: "u-buyer", Email: "buyer@example.com", UserName: "buyer", IsActive: true},
			"u-norole": {ID: "u-norole", Email: "norole@example.com", UserName: "norole", IsActive: true},
		},
		hashes: map[string]string{
			"vendor@example.com": string(hash),
			"admin@example.com":  string(hash),
		},
		roles: map[string][]Role{
			"u-vendor": {{ID: 2, Name: "vendor"}},
			"u-admin":  {{ID: 1, Name: AdminRoleName}},
			"u-buyer":  {{ID: 3, Name: "user"}},
		},
		perms: map[int64][]string{
			1: {},
			2: {"cars.create", "cars.edit"},
			3: {"cars.view"},
		},
	}
}

func (m *mockRepository) setError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFail = true
	m.failErr = err
}

func (m *mockRepository) loads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userLoads
}

func (m *mockRepository) FindActiveUser(ctx context.Context, userID string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userLoads++
	if m.shouldFail {
		return nil, m.failErr
	}
	u, ok := m.users[userID]
	if !ok || !u.IsActive {
		return nil, internal.ErrUserNotFound
	}
	return u, nil
}

func (m *mockRepository) FindRolesForUser(ctx context.Context, userID string) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return nil, m.failErr
	}
	return append([]Role(nil), m.roles[userID]...), nil
}

func (m *mockRepository) PermissionKeysForRole(ctx context.Context, roleID int64) ([]string, error) {
	m.mu.Lock()
	if m.shouldFail {
		m.mu.Unlock()
		return nil, m.failErr
	}
	keys := append([]string(nil), m.perms[roleID]...)
	read, held := m.permsRead, m.permsHeld
	m.permsRead, m.permsHeld = nil, nil
	m.mu.Unlock()

	if held != nil {
		read <- struct{}{}
		<-held
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (m *mockRepository) deactivate(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID].IsActive = false
}

// holdPermissionReads makes the next PermissionKeysForRole call block
// until release is called.
func (m *mockRepository) holdPermissionReads() (read <-chan struct{}, release func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.permsRead = make(chan struct{}, 1)
	m.permsHeld = make(chan struct{})
	held := m.permsHeld
	return m.permsRead, func() { close(held) }
}

func (m *mockRepository) setPermissions(roleID int64, keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.perms[roleID] = keys
}

func (m *mockRepository) FindCredentialsByEmail(ctx context.Context, email string) (*User, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return nil, "", m.failErr
	}
	for _, u := range m.users {
		if u.Email == email && u.IsActive {
			return u, m.hashes[email], nil
		}
	}
	return nil, "", internal.ErrUserNotFound
}

func (m *mockRepository) CreateUserWithRole(ctx context.Context, user *User, passwordHash, roleName string) (*Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return nil, m.failErr
	}
	for _, u := range m.users {
		if u.Email == user.Email || u.UserName == user.UserName {
			return nil, internal.ErrUserExists
		}
	}
	user.ID = "u-" + user.UserName
	m.users[user.ID] = user
	m.hashes[user.Email] = passwordHash
	role := Role{ID: int64(len(m.perms) + 1), Name: roleName}
	m.roles[user.ID] = []Role{role}
	return &role, nil
}
