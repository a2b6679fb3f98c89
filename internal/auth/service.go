package auth

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/paras-verma7454/DriveDeck/internal"
	"github.com/paras-verma7454/DriveDeck/internal/core/events"
	"github.com/paras-verma7454/DriveDeck/internal/observability"
	"github.com/paras-verma7454/DriveDeck/pkg/logger"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/singleflight"
)

// Service authenticates requests and loads principals.
type Service struct {
	repo       Repository
	tokens     TokenGenerator
	cache      EntitlementCache
	metrics    *observability.Metrics
	bcryptCost int
	loads      singleflight.Group
	// epoch is bumped on every invalidation so callers arriving after it
	// never join a load that started before it.
	epoch atomic.Uint64
}

// NewService wires the service. cache may be nil (no caching) and metrics
// may be nil (nothing recorded).
func NewService(repo Repository, tokens TokenGenerator, cache EntitlementCache, metrics *observability.Metrics, bcryptCost int) *Service {
	if cache == nil {
		cache = NoopCache{}
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		tokens:     tokens,
		cache:      cache,
		metrics:    metrics,
		bcryptCost: bcryptCost,
	}
}

// Authenticate verifies the Authorization header value and loads the caller.
func (s *Service) Authenticate(ctx context.Context, authorizationHeader string) (*Principal, error) {
	subjectID, err := s.tokens.VerifyHeader(authorizationHeader)
	if err != nil {
		if errors.Is(err, internal.ErrMissingAuthHeader) {
			s.metrics.ObserveAuth(observability.AuthResultMissingHeader)
		} else {
			s.metrics.ObserveAuth(observability.AuthResultInvalidToken)
		}
		return nil, err
	}

	principal, err := s.LoadPrincipal(ctx, subjectID)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			s.metrics.ObserveAuth(observability.AuthResultUserNotFound)
		} else {
			s.metrics.ObserveAuth(observability.AuthResultError)
		}
		return nil, err
	}

	s.metrics.ObserveAuth(observability.AuthResultOK)
	return principal, nil
}

// LoadPrincipal resolves user, role and permission keys for subjectID.
// Concurrent misses for the same user share one database round trip.
func (s *Service) LoadPrincipal(ctx context.Context, subjectID string) (*Principal, error) {
	if p, ok := s.cache.Get(ctx, subjectID); ok {
		s.metrics.ObserveCache(observability.CacheHit)
		return p, nil
	}
	s.metrics.ObserveCache(observability.CacheMiss)

	flight := fmt.Sprintf("%d:%s", s.epoch.Load(), subjectID)
	v, err, _ := s.loads.Do(flight, func() (interface{}, error) {
		// The flight is shared, so one caller going away must not fail the rest.
		loadCtx := context.WithoutCancel(ctx)
		stamp, stampErr := s.cache.Stamp(loadCtx, subjectID)
		p, err := s.loadFromStore(loadCtx, subjectID)
		if err != nil {
			return nil, err
		}
		if stampErr == nil {
			s.cache.Set(loadCtx, stamp, p)
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Principal), nil
}

func (s *Service) loadFromStore(ctx context.Context, subjectID string) (*Principal, error) {
	user, err := s.repo.FindActiveUser(ctx, subjectID)
	if err != nil {
		return nil, asAppError(err)
	}

	principal := &Principal{
		SubjectID:   subjectID,
		User:        user,
		Permissions: NewPermissionSet(),
	}

	roles, err := s.repo.FindRolesForUser(ctx, subjectID)
	if err != nil {
		return nil, asAppError(err)
	}
	if len(roles) == 0 {
		return principal, nil
	}
	if len(roles) > 1 {
		logger.From(ctx).Warn("user holds more than one role, using the oldest assignment",
			"user_id", subjectID,
			"roles", len(roles))
	}

	role := roles[0]
	principal.Role = &role

	keys, err := s.repo.PermissionKeysForRole(ctx, role.ID)
	if err != nil {
		return nil, asAppError(err)
	}
	principal.Permissions = NewPermissionSet(keys...)
	return principal, nil
}

func (s *Service) Login(ctx context.Context, dto LoginDTO) (*AuthResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	user, hash, err := s.repo.FindCredentialsByEmail(ctx, dto.Email)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			return nil, internal.ErrInvalidCredentials
		}
		return nil, asAppError(err)
	}
	if err := VerifyPassword(hash, dto.Password); err != nil {
		return nil, internal.ErrInvalidCredentials
	}

	roles, err := s.repo.FindRolesForUser(ctx, user.ID)
	if err != nil {
		return nil, asAppError(err)
	}

	token, err := s.tokens.GenerateAccessToken(user.ID)
	if err != nil {
		return nil, internal.NewInternalError("Internal server error", err)
	}

	resp := &AuthResponse{Message: "User logged in successfully", Token: token, User: user}
	if len(roles) > 0 {
		resp.Role = &roles[0]
	}
	return resp, nil
}

func (s *Service) Signup(ctx context.Context, dto SignupDTO) (*AuthResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	hash, err := HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("Internal server error", err)
	}

	user := &User{
		FirstName:   dto.FirstName,
		LastName:    dto.LastName,
		UserName:    dto.UserName,
		Email:       dto.Email,
		PhoneNumber: dto.PhoneNumber,
		City:        dto.City,
		State:       dto.State,
		Country:     dto.Country,
		Pincode:     dto.Pincode,
		IsActive:    true,
	}
	role, err := s.repo.CreateUserWithRole(ctx, user, hash, dto.RoleName())
	if err != nil {
		return nil, asAppError(err)
	}

	token, err := s.tokens.GenerateAccessToken(user.ID)
	if err != nil {
		return nil, internal.NewInternalError("Internal server error", err)
	}

	logger.From(ctx).Info("user signed up", "user_id", user.ID, "role", role.Name)
	return &AuthResponse{Message: "User created successfully", Token: token, User: user, Role: role}, nil
}

// RegisterEventHandlers subscribes the entitlement cache to RBAC writes.
// Handlers run inside PublishSync, so the instance that performed a write
// never serves the old entitlements afterwards.
func (s *Service) RegisterEventHandlers(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeRoleEntitlementsChanged, s.handleRoleEntitlementsChanged)
	bus.Subscribe(events.EventTypeUserEntitlementsChanged, s.handleUserEntitlementsChanged)
}

func (s *Service) handleRoleEntitlementsChanged(ctx context.Context, event events.Event) error {
	s.epoch.Add(1)
	if err := s.cache.InvalidateAll(ctx); err != nil {
		return fmt.Errorf("purge entitlement cache: %w", err)
	}
	logger.From(ctx).Debug("entitlement cache purged", "event_id", event.EventID())
	return nil
}

func (s *Service) handleUserEntitlementsChanged(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.UserEntitlementsChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event, event.EventType())
	}
	s.epoch.Add(1)
	if err := s.cache.Invalidate(ctx, e.UserID); err != nil {
		return fmt.Errorf("invalidate entitlements of %s: %w", e.UserID, err)
	}
	return nil
}

func asAppError(err error) error {
	if _, ok := internal.IsAppError(err); ok {
		return err
	}
	return internal.NewInternalError("Internal server error", err)
}

func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
