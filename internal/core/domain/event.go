package domain

import "time"

// AccountEventType names a change published to the account event feed.
type AccountEventType string

const (
	EventAccountCreated AccountEventType = "account.created"
	EventAccountUpdated AccountEventType = "account.updated"
	EventAccountDeleted AccountEventType = "account.deleted"
)

// AccountEvent records a successful mutation of an account. Credentials are
// never part of an event.
type AccountEvent struct {
	ID         string           `json:"id"`
	Type       AccountEventType `json:"type"`
	AccountID  int64            `json:"account_id"`
	Username   string           `json:"username"`
	Email      string           `json:"email"`
	Roles      []string         `json:"roles,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}
