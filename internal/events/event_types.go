package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered  EventType = "user_registered"
	EventLoginSucceeded  EventType = "login_succeeded"
	EventLoginFailed     EventType = "login_failed"
	EventAccessDenied    EventType = "access_denied"
	EventOrderCreated    EventType = "order_created"
	EventOrderCancelled  EventType = "order_cancelled"
	EventProductModified EventType = "product_modified"
)

// Actor identifies who triggered an event. SubjectID is nil for
// unauthenticated callers.
type Actor struct {
	SubjectID *int64 `json:"subject_id,omitempty"`
	Role      string `json:"role,omitempty"`
	IP        string `json:"ip,omitempty"`
}

// Event is a security or audit fact emitted by the gate and services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with an id and the current time.
func New(eventType EventType, actor Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// AccessDeniedPayload describes a gate denial.
type AccessDeniedPayload struct {
	Method   string `json:"method"`
	Route    string `json:"route"`
	Decision string `json:"decision"`
	Cause    string `json:"cause"`
}

// LoginPayload describes an authentication attempt.
type LoginPayload struct {
	Email string `json:"email"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// OrderPayload payload.
type OrderPayload struct {
	OrderID int64  `json:"order_id"`
	OwnerID int64  `json:"owner_id"`
	Status  string `json:"status,omitempty"`
}

// ProductModifiedPayload payload.
type ProductModifiedPayload struct {
	ProductID int64  `json:"product_id"`
	Action    string `json:"action"`
}
