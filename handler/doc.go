// Package handler adapts typed request handlers to net/http.
//
// A HandlerFunc receives a bound and validated request struct and returns a
// Response. Wrap runs the configured binders, validates the struct with
// go-playground/validator tags and renders the Response, sending any failure
// to the ErrorHandler.
//
//	type listRequest struct {
//		Page  int    `query:"page" validate:"gte=0"`
//		Limit int    `query:"limit" validate:"gte=0,lte=100"`
//		Sort  string `query:"sort"`
//	}
//
//	func list(ctx handler.Context, req listRequest) handler.Response {
//		page, err := svc.List(ctx, recipientID, opts)
//		if err != nil {
//			return handler.JSONError(err)
//		}
//		return handler.JSON(page)
//	}
//
//	r.Get("/", handler.Wrap(list,
//		handler.WithBinders[handler.Context, listRequest](binder.Query()),
//		handler.WithErrorHandler[handler.Context, listRequest](errorHandler),
//	))
//
// # Responses
//
// JSON responses share one envelope:
//
//	{"success": true, "data": ...}
//	{"success": false, "error": {"message": "not found"}}
//
// HTTPError and ValidationError carry client-safe messages. Any other error is
// reported as 500 "internal error" so storage details never leak.
//
// Stream switches the connection to Server-Sent Events and hands the function
// a StreamContext for retry hints, comments and JSON data frames.
package handler
