// Package notifications is the domain core of notifyhub: the notification
// model, its status lifecycle, the storage contract and the Service that
// ties storage to live delivery.
//
// # Architecture
//
//   - Storage persists notifications; every method is scoped to one recipient.
//     MemoryStorage lives here, the SQL implementation in sqlstore.
//   - The lifecycle table (Next, Sources, Apply) defines unread → read,
//     unread → archived and read → archived. Archived is terminal.
//   - Service validates input, writes to storage and hands new notifications
//     to a Publisher, usually a *broadcast.Bus[Notification].
//
// # Usage
//
//	bus := broadcast.New[notifications.Notification]()
//	svc := notifications.NewService(notifications.NewMemoryStorage(), bus)
//
//	n, err := svc.Create(ctx, "user-1", "order_status", map[string]string{"orderId": "O1"})
//	if err != nil {
//	    return err
//	}
//	summary, _ := svc.Summary(ctx, "user-1", nil) // {UnreadCount: 1, ...}
//	_, err = svc.MarkRead(ctx, n.ID, "user-1")
//
// Reads (Get, List, Summary) never touch the publisher. Delivery is best
// effort: a recipient without open streams still gets the stored record and
// sees it in its history.
//
// # Errors
//
// ErrNotFound covers both missing records and records owned by someone else.
// ErrInvalidTransition reports a forbidden lifecycle move and ErrInvalidInput
// a malformed argument. Any other storage failure is logged by the Service and
// returned as ErrStorage without details.
package notifications
