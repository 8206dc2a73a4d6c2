package types

import (
	"time"

	"github.com/google/uuid"
)

// AccountEventType names a lifecycle change published for downstream consumers.
type AccountEventType string

const (
	AccountRegistered      AccountEventType = "account.registered"
	AccountPasswordChanged AccountEventType = "account.password_changed"
	AccountPasswordReset   AccountEventType = "account.password_reset"
)

// AccountEvent is the payload published when an account changes.
type AccountEvent struct {
	Type       AccountEventType `json:"type"`
	AccountID  uuid.UUID        `json:"account_id"`
	Email      string           `json:"email"`
	OccurredAt time.Time        `json:"occurred_at"`
}
