package handler

import (
	"errors"
	"net/http"
)

// HandlerFunc handles a typed request and returns a Response.
//
//	type listRequest struct {
//		Page int `query:"page" validate:"gte=0"`
//	}
//
//	h := handler.Wrap(func(ctx handler.Context, req listRequest) handler.Response {
//		return handler.JSON(items)
//	}, handler.WithBinders[handler.Context, listRequest](binder.Query()))
type HandlerFunc[C Context, R any] func(ctx C, req R) Response

// Response renders itself to an http.ResponseWriter.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// Bind parses parts of an HTTP request into v.
type Bind func(r *http.Request, v any) error

// ErrorHandler renders errors from binding, validation or rendering.
type ErrorHandler[C Context] func(ctx C, err error)

// WrapOption configures Wrap.
type WrapOption[C Context, R any] func(*wrapConfig[C, R])

type wrapConfig[C Context, R any] struct {
	binders        []Bind
	validator      Validator
	errorHandler   ErrorHandler[C]
	contextFactory func(http.ResponseWriter, *http.Request) C
}

// WithBinders sets request binders applied in order.
func WithBinders[C Context, R any](binders ...Bind) WrapOption[C, R] {
	return func(c *wrapConfig[C, R]) {
		c.binders = append(c.binders, binders...)
	}
}

// WithValidator replaces the struct validator run after binding.
// Passing nil disables validation.
func WithValidator[C Context, R any](v Validator) WrapOption[C, R] {
	return func(c *wrapConfig[C, R]) {
		c.validator = v
	}
}

// WithErrorHandler sets a custom error handler.
func WithErrorHandler[C Context, R any](h ErrorHandler[C]) WrapOption[C, R] {
	return func(c *wrapConfig[C, R]) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// WithContextFactory sets a custom context factory.
func WithContextFactory[C Context, R any](f func(http.ResponseWriter, *http.Request) C) WrapOption[C, R] {
	return func(c *wrapConfig[C, R]) {
		if f != nil {
			c.contextFactory = f
		}
	}
}

// defaultErrorHandler renders the JSON error envelope without logging.
func defaultErrorHandler[C Context](ctx C, err error) {
	if errors.Is(err, ErrStreamStarted) {
		return
	}
	_ = JSONError(err).Render(ctx.ResponseWriter(), ctx.Request())
}

var defaultValidator = newValidator()

// Wrap converts a typed HandlerFunc to an http.HandlerFunc. Binders run
// first, then struct validation, then the handler.
func Wrap[C Context, R any](h HandlerFunc[C, R], opts ...WrapOption[C, R]) http.HandlerFunc {
	cfg := &wrapConfig[C, R]{
		validator:    defaultValidator,
		errorHandler: defaultErrorHandler[C],
		contextFactory: func(w http.ResponseWriter, r *http.Request) C {
			if c, ok := NewContext(w, r).(C); ok {
				return c
			}
			panic("handler: cannot use default context factory with custom context type, provide WithContextFactory")
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := cfg.contextFactory(w, r)

		var req R
		for _, bind := range cfg.binders {
			if err := bind(r, &req); err != nil {
				cfg.errorHandler(ctx, NewHTTPError(http.StatusBadRequest, err.Error()))
				return
			}
		}
		if cfg.validator != nil && len(cfg.binders) > 0 {
			if err := cfg.validator.Struct(req); err != nil {
				cfg.errorHandler(ctx, validationError(err))
				return
			}
		}

		response := h(ctx, req)
		if response == nil {
			cfg.errorHandler(ctx, ErrNilResponse)
			return
		}
		if err := response.Render(w, r); err != nil {
			cfg.errorHandler(ctx, err)
		}
	}
}
