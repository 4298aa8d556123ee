package binder

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ChiParam extracts a path parameter from a chi route.
func ChiParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// Path binds path parameters using the `path` struct tag. The extractor
// resolves one parameter by name, so any router can be plugged in.
func Path(extractor func(r *http.Request, name string) string) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if extractor == nil {
			return fmt.Errorf("%w: extractor function is nil", ErrFailedToParsePath)
		}
		values, err := collect(v, "path", func(name string) []string {
			if value := extractor(r, name); value != "" {
				return []string{value}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrFailedToParsePath, err)
		}
		return bindToStruct(v, "path", values, ErrFailedToParsePath)
	}
}
