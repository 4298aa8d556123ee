package notifications

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrymomot/notifyhub/handler"
	"github.com/dmitrymomot/notifyhub/pkg/binder"
	"github.com/dmitrymomot/notifyhub/pkg/jwt"
	"github.com/dmitrymomot/notifyhub/pkg/notifications"
)

type (
	listRequest struct {
		Page   int    `query:"page" validate:"gte=0"`
		Limit  int    `query:"limit" validate:"gte=0"`
		Status string `query:"status" validate:"omitempty,oneof=unread read archived"`
		Type   string `query:"type"`
		Search string `query:"search"`
		Sort   string `query:"sort"`
	}

	summaryRequest struct {
		Types []string `query:"types"`
	}

	idRequest struct {
		ID string `path:"id" validate:"required"`
	}

	countResponse struct {
		Count int `json:"count"`
	}

	idResponse struct {
		ID string `json:"id"`
	}
)

// wrap binds query and path parameters and routes failures to the module's
// error handler.
func wrap[R any](m *Module, h handler.HandlerFunc[handler.Context, R]) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithBinders[handler.Context, R](binder.Query(), binder.Path(binder.ChiParam)),
		handler.WithErrorHandler[handler.Context, R](m.errorHandler),
	)
}

func (m *Module) list(ctx handler.Context, req listRequest) handler.Response {
	recipientID, err := caller(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	sort, err := notifications.ParseSort(req.Sort)
	if err != nil {
		return handler.JSONError(httpError(err))
	}

	page, err := m.svc.List(ctx, recipientID, notifications.ListOptions{
		Page:   req.Page,
		Limit:  req.Limit,
		Status: notifications.Status(req.Status),
		Type:   strings.TrimSpace(req.Type),
		Search: req.Search,
		Sort:   sort,
	})
	if err != nil {
		return handler.JSONError(httpError(err))
	}
	return handler.JSON(page)
}

func (m *Module) summary(ctx handler.Context, req summaryRequest) handler.Response {
	recipientID, err := caller(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	summary, err := m.svc.Summary(ctx, recipientID, req.Types)
	if err != nil {
		return handler.JSONError(httpError(err))
	}
	return handler.JSON(summary)
}

func (m *Module) get(ctx handler.Context, req idRequest) handler.Response {
	recipientID, err := caller(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	n, err := m.svc.Get(ctx, req.ID, recipientID)
	if err != nil {
		return handler.JSONError(httpError(err))
	}
	return handler.JSON(n)
}

func (m *Module) markRead(ctx handler.Context, req idRequest) handler.Response {
	recipientID, err := caller(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	n, err := m.svc.MarkRead(ctx, req.ID, recipientID)
	if err != nil {
		return handler.JSONError(httpError(err))
	}
	return handler.JSON(n)
}

func (m *Module) markAllRead(ctx handler.Context, _ struct{}) handler.Response {
	recipientID, err := caller(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	count, err := m.svc.MarkAllRead(ctx, recipientID)
	if err != nil {
		return handler.JSONError(httpError(err))
	}
	return handler.JSON(countResponse{Count: count})
}

func (m *Module) archive(ctx handler.Context, req idRequest) handler.Response {
	recipientID, err := caller(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	n, err := m.svc.Archive(ctx, req.ID, recipientID)
	if err != nil {
		return handler.JSONError(httpError(err))
	}
	return handler.JSON(n)
}

func (m *Module) remove(ctx handler.Context, req idRequest) handler.Response {
	recipientID, err := caller(ctx)
	if err != nil {
		return handler.JSONError(err)
	}
	if err := m.svc.Remove(ctx, req.ID, recipientID); err != nil {
		return handler.JSONError(httpError(err))
	}
	return handler.JSON(idResponse{ID: req.ID})
}

// caller returns the authenticated recipient. The auth middleware normally
// rejects anonymous requests first.
func caller(ctx context.Context) (string, error) {
	if id := jwt.Subject(ctx); id != "" {
		return id, nil
	}
	return "", handler.ErrUnauthorized
}

// httpError maps service errors to client-visible HTTP errors. Storage
// failures fall through and render as a generic internal error.
func httpError(err error) error {
	switch {
	case errors.Is(err, notifications.ErrNotFound):
		return handler.ErrNotFound
	case errors.Is(err, notifications.ErrInvalidTransition):
		return handler.NewHTTPError(http.StatusConflict, "invalid status transition")
	case errors.Is(err, notifications.ErrInvalidInput):
		return handler.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return err
}
