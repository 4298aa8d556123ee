package notifications

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a notification.
type Status string

const (
	StatusUnread   Status = "unread"
	StatusRead     Status = "read"
	StatusArchived Status = "archived"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusUnread, StatusRead, StatusArchived:
		return true
	}
	return false
}

// Field limits, in characters, matching the column sizes of the SQL store.
const (
	MaxRecipientIDLength = 255
	MaxTypeLength        = 100
)

// Notification is a single event addressed to exactly one recipient.
// Fan-out to several recipients creates one record per recipient.
type Notification struct {
	ID          string          `json:"id" db:"id"`
	RecipientID string          `json:"recipientId" db:"recipient_id"`
	Type        string          `json:"type" db:"type"`
	Status      Status          `json:"status" db:"status"`
	Payload     json.RawMessage `json:"payload" db:"payload"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	ReadAt      *time.Time      `json:"readAt,omitempty" db:"read_at"`
	ArchivedAt  *time.Time      `json:"archivedAt,omitempty" db:"archived_at"`
}

// IsUnread reports whether the notification still counts towards the unread summary.
func (n Notification) IsUnread() bool {
	return n.Status == StatusUnread
}

// Summary aggregates unread notifications of one recipient.
type Summary struct {
	UnreadCount int            `json:"unreadCount"`
	ByType      map[string]int `json:"byType"`
}

// Page is one page of a recipient's notification history.
type Page struct {
	Items []Notification `json:"items"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}
