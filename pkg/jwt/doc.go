// Package jwt authenticates HTTP requests with HS256 access tokens.
//
// Service wraps github.com/golang-jwt/jwt/v5 for signing and verification.
// The middleware extracts a token (bearer header, query parameter or cookie),
// verifies it and stores the claims in the request context; handlers read
// the caller's identity with Subject.
//
//	svc, _ := jwt.New([]byte(secret), jwt.WithIssuer("notifyhub"))
//	r.Use(jwt.Middleware(svc))
//
// Query tokens end up in access logs, so accept them only on routes that
// cannot send headers, such as an EventSource stream:
//
//	r.With(jwt.MiddlewareWithConfig(jwt.MiddlewareConfig{
//		Service:   svc,
//		Extractor: jwt.FirstOf(jwt.BearerTokenExtractor, jwt.QueryTokenExtractor("access_token")),
//	})).Get("/stream", stream)
//
//	recipientID := jwt.Subject(r.Context())
package jwt
