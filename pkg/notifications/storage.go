package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Storage handles notification persistence and retrieval.
// Every method is scoped to one recipient and every mutating method is a
// single atomic operation.
type Storage interface {
	// Create stores a new unread notification and returns it.
	Create(ctx context.Context, recipientID, typ string, payload json.RawMessage) (Notification, error)

	// Get retrieves a single notification owned by the recipient.
	Get(ctx context.Context, id, recipientID string) (Notification, error)

	// List returns one page of the recipient's notifications and the total
	// number of records matching the filters.
	List(ctx context.Context, recipientID string, opts ListOptions) ([]Notification, int, error)

	// MarkRead moves an unread notification to read.
	MarkRead(ctx context.Context, id, recipientID string) (Notification, error)

	// MarkAllRead moves every unread notification of the recipient to read
	// and returns how many were changed.
	MarkAllRead(ctx context.Context, recipientID string) (int, error)

	// Archive moves a notification to archived.
	Archive(ctx context.Context, id, recipientID string) (Notification, error)

	// Remove hard-deletes a notification.
	Remove(ctx context.Context, id, recipientID string) error

	// Summary counts unread notifications, optionally restricted to types.
	Summary(ctx context.Context, recipientID string, types []string) (Summary, error)
}

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// SortField names a sortable notification attribute.
type SortField string

const (
	SortByCreatedAt SortField = "createdAt"
	SortByType      SortField = "type"
	SortByStatus    SortField = "status"
)

// Sort orders a listing. Ties are always broken by id in the same direction.
type Sort struct {
	Field SortField
	Desc  bool
}

// DefaultSort lists newest notifications first.
var DefaultSort = Sort{Field: SortByCreatedAt, Desc: true}

func (s Sort) String() string {
	dir := "asc"
	if s.Desc {
		dir = "desc"
	}
	return string(s.Field) + "." + dir
}

// ParseSort parses "field.direction", e.g. "createdAt.desc".
// An empty string yields DefaultSort.
func ParseSort(raw string) (Sort, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultSort, nil
	}

	field, dir, _ := strings.Cut(raw, ".")
	s := Sort{Field: SortField(field)}
	switch s.Field {
	case SortByCreatedAt, SortByType, SortByStatus:
	default:
		return DefaultSort, fmt.Errorf("%w: unknown sort field %q", ErrInvalidInput, field)
	}

	switch strings.ToLower(dir) {
	case "", "desc":
		s.Desc = true
	case "asc":
		s.Desc = false
	default:
		return DefaultSort, fmt.Errorf("%w: unknown sort direction %q", ErrInvalidInput, dir)
	}
	return s, nil
}

// ListOptions provides filtering and pagination options for listing notifications.
type ListOptions struct {
	Page   int    // 1-based page number
	Limit  int    // page size, clamped to MaxLimit
	Status Status // empty means any status
	Type   string // empty means any type
	Search string // case-insensitive substring of the payload text
	Sort   Sort
}

// Normalize applies defaults and clamps page and limit to sane bounds.
func (o ListOptions) Normalize() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	// Past this page the offset no longer fits in an int; every such page is
	// out of range anyway.
	if maxPage := math.MaxInt / o.Limit; o.Page > maxPage {
		o.Page = maxPage
	}
	if o.Sort.Field == "" {
		o.Sort = DefaultSort
	}
	o.Search = strings.TrimSpace(o.Search)
	return o
}

// Offset returns the number of records skipped before the page starts.
// It saturates at math.MaxInt instead of overflowing.
func (o ListOptions) Offset() int {
	if o.Page <= 1 || o.Limit <= 0 {
		return 0
	}
	if o.Page-1 > math.MaxInt/o.Limit {
		return math.MaxInt
	}
	return (o.Page - 1) * o.Limit
}
