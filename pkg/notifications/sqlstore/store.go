// Package sqlstore implements notifications.Storage on top of database/sql.
//
// The same queries run on PostgreSQL (through the pgx stdlib driver) and on
// SQLite (modernc.org/sqlite). Every mutating method is a single statement,
// so concurrent calls for one recipient never change a row twice.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dmitrymomot/notifyhub/pkg/notifications"
)

const columns = `id, recipient_id, type, status, payload, created_at, read_at, archived_at`

// Store is a SQL-backed notification storage.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for createdAt/readAt/archivedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New wraps an open database handle. The schema must already be migrated.
func New(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type row struct {
	ID          string     `db:"id"`
	RecipientID string     `db:"recipient_id"`
	Type        string     `db:"type"`
	Status      string     `db:"status"`
	Payload     string     `db:"payload"`
	CreatedAt   time.Time  `db:"created_at"`
	ReadAt      *time.Time `db:"read_at"`
	ArchivedAt  *time.Time `db:"archived_at"`
}

func (r row) notification() notifications.Notification {
	return notifications.Notification{
		ID:          r.ID,
		RecipientID: r.RecipientID,
		Type:        r.Type,
		Status:      notifications.Status(r.Status),
		Payload:     json.RawMessage(r.Payload),
		CreatedAt:   r.CreatedAt.UTC(),
		ReadAt:      utc(r.ReadAt),
		ArchivedAt:  utc(r.ArchivedAt),
	}
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// timestamp truncates to the precision both databases keep.
func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Store) Create(ctx context.Context, recipientID, typ string, payload json.RawMessage) (notifications.Notification, error) {
	now := s.timestamp()
	r := row{
		ID:          notifications.NewID(now),
		RecipientID: recipientID,
		Type:        typ,
		Status:      string(notifications.StatusUnread),
		Payload:     string(payload),
		CreatedAt:   now,
	}

	query := s.db.Rebind(`INSERT INTO notifications (id, recipient_id, type, status, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, r.ID, r.RecipientID, r.Type, r.Status, r.Payload, r.CreatedAt); err != nil {
		return notifications.Notification{}, fmt.Errorf("sqlstore: create: %w", err)
	}
	return r.notification(), nil
}

func (s *Store) Get(ctx context.Context, id, recipientID string) (notifications.Notification, error) {
	var r row
	query := s.db.Rebind(`SELECT ` + columns + ` FROM notifications WHERE id = ? AND recipient_id = ?`)
	if err := s.db.GetContext(ctx, &r, query, id, recipientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notifications.Notification{}, notifications.ErrNotFound
		}
		return notifications.Notification{}, fmt.Errorf("sqlstore: get: %w", err)
	}
	return r.notification(), nil
}

func (s *Store) List(ctx context.Context, recipientID string, opts notifications.ListOptions) ([]notifications.Notification, int, error) {
	opts = opts.Normalize()

	where := []string{"recipient_id = ?"}
	args := []any{recipientID}
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(opts.Status))
	}
	if opts.Type != "" {
		where = append(where, "type = ?")
		args = append(args, opts.Type)
	}
	if opts.Search != "" {
		where = append(where, `LOWER(payload) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(opts.Search))+"%")
	}
	filter := strings.Join(where, " AND ")

	var total int
	countQuery := s.db.Rebind(`SELECT COUNT(*) FROM notifications WHERE ` + filter)
	if err := s.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("sqlstore: count: %w", err)
	}
	if total == 0 || opts.Offset() >= total {
		return []notifications.Notification{}, total, nil
	}

	listQuery := s.db.Rebind(`SELECT ` + columns + ` FROM notifications WHERE ` + filter +
		` ORDER BY ` + orderBy(opts.Sort) + ` LIMIT ? OFFSET ?`)
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, listQuery, append(args, opts.Limit, opts.Offset())...); err != nil {
		return nil, 0, fmt.Errorf("sqlstore: list: %w", err)
	}

	items := make([]notifications.Notification, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.notification())
	}
	return items, total, nil
}

func (s *Store) MarkRead(ctx context.Context, id, recipientID string) (notifications.Notification, error) {
	return s.transition(ctx, id, recipientID, notifications.EventRead, "read_at")
}

func (s *Store) Archive(ctx context.Context, id, recipientID string) (notifications.Notification, error) {
	return s.transition(ctx, id, recipientID, notifications.EventArchive, "archived_at")
}

// transition moves one row with a guarded UPDATE. When no row matched, the
// current state tells apart a missing row, a repeated call and a forbidden move.
func (s *Store) transition(ctx context.Context, id, recipientID string, event notifications.Event, stampColumn string) (notifications.Notification, error) {
	query, args, err := sqlx.In(
		`UPDATE notifications SET status = ?, `+stampColumn+` = ?
		WHERE id = ? AND recipient_id = ? AND status IN (?)`,
		string(notifications.Target(event)), s.timestamp(), id, recipientID, statusStrings(notifications.Sources(event)),
	)
	if err != nil {
		return notifications.Notification{}, fmt.Errorf("sqlstore: %s: %w", event, err)
	}

	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return notifications.Notification{}, fmt.Errorf("sqlstore: %s: %w", event, err)
	}
	changed, err := res.RowsAffected()
	if err != nil {
		return notifications.Notification{}, fmt.Errorf("sqlstore: %s: %w", event, err)
	}

	current, err := s.Get(ctx, id, recipientID)
	if err != nil || changed > 0 {
		return current, err
	}
	if current.Status == notifications.Target(event) {
		return current, nil
	}
	if _, err := notifications.Next(current.Status, event); err != nil {
		return notifications.Notification{}, err
	}
	// The row left the source states between the UPDATE and the SELECT.
	return notifications.Notification{}, fmt.Errorf("sqlstore: %s: concurrent update of %s", event, id)
}

func (s *Store) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	query := s.db.Rebind(`UPDATE notifications SET status = ?, read_at = ?
		WHERE recipient_id = ? AND status = ?`)
	res, err := s.db.ExecContext(ctx, query,
		string(notifications.StatusRead), s.timestamp(), recipientID, string(notifications.StatusUnread))
	if err != nil {
		return 0, fmt.Errorf("sqlstore: mark all read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlstore: mark all read: %w", err)
	}
	return int(n), nil
}

func (s *Store) Remove(ctx context.Context, id, recipientID string) error {
	query := s.db.Rebind(`DELETE FROM notifications WHERE id = ? AND recipient_id = ?`)
	res, err := s.db.ExecContext(ctx, query, id, recipientID)
	if err != nil {
		return fmt.Errorf("sqlstore: remove: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: remove: %w", err)
	}
	if n == 0 {
		return notifications.ErrNotFound
	}
	return nil
}

func (s *Store) Summary(ctx context.Context, recipientID string, types []string) (notifications.Summary, error) {
	query := `SELECT type, COUNT(*) AS count FROM notifications WHERE recipient_id = ? AND status = ?`
	args := []any{recipientID, string(notifications.StatusUnread)}
	if len(types) > 0 {
		query += ` AND type IN (?)`
		args = append(args, types)
	}
	query += ` GROUP BY type`

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return notifications.Summary{}, fmt.Errorf("sqlstore: summary: %w", err)
	}

	var counts []struct {
		Type  string `db:"type"`
		Count int    `db:"count"`
	}
	if err := s.db.SelectContext(ctx, &counts, s.db.Rebind(query), args...); err != nil {
		return notifications.Summary{}, fmt.Errorf("sqlstore: summary: %w", err)
	}

	summary := notifications.Summary{ByType: make(map[string]int, len(counts))}
	for _, c := range counts {
		summary.ByType[c.Type] = c.Count
		summary.UnreadCount += c.Count
	}
	return summary, nil
}

var sortColumns = map[notifications.SortField]string{
	notifications.SortByCreatedAt: "created_at",
	notifications.SortByType:      "type",
	notifications.SortByStatus:    "status",
}

func orderBy(sort notifications.Sort) string {
	col, ok := sortColumns[sort.Field]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if sort.Desc {
		dir = "DESC"
	}
	return col + " " + dir + ", id " + dir
}

func statusStrings(in []notifications.Status) []string {
	out := make([]string, len(in))
	for i, st := range in {
		out[i] = string(st)
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
