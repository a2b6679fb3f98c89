package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	// EventTypeRoleEntitlementsChanged fires when a change can alter the
	// permission set of every holder of a role: links replaced, role deleted,
	// permission renamed or deleted.
	EventTypeRoleEntitlementsChanged = "rbac.role_entitlements_changed"
	// EventTypeUserEntitlementsChanged fires when one user's role or active
	// flag changes.
	EventTypeUserEntitlementsChanged = "rbac.user_entitlements_changed"
)

type RoleEntitlementsChangedEvent struct {
	BaseEvent
	RoleID int64  `json:"role_id"`
	Reason string `json:"reason"`
}

// NewRoleEntitlementsChangedEvent builds the event. roleID is zero when the
// change is catalogue-wide (a permission was renamed or removed).
func NewRoleEntitlementsChangedEvent(roleID int64, reason string) *RoleEntitlementsChangedEvent {
	return &RoleEntitlementsChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeRoleEntitlementsChanged,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"role_id": roleID,
				"reason":  reason,
			},
		},
		RoleID: roleID,
		Reason: reason,
	}
}

type UserEntitlementsChangedEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

func NewUserEntitlementsChangedEvent(userID, reason string) *UserEntitlementsChangedEvent {
	return &UserEntitlementsChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeUserEntitlementsChanged,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id": userID,
				"reason":  reason,
			},
		},
		UserID: userID,
		Reason: reason,
	}
}
