// Package binder copies URL query and path parameters into request structs.
//
// Fields are matched by struct tag (`query:"page"`, `path:"id"`); untagged
// fields use their lower-cased name and `-` skips a field. Strings, integers,
// floats, booleans, pointers to those and slices (repeated or
// comma-separated values) are supported.
//
//	type listRequest struct {
//	    Page   int      `query:"page"`
//	    Types  []string `query:"types"`
//	    ID     string   `path:"id"`
//	}
//
//	handler.Wrap(list, handler.WithBinders[handler.Context, listRequest](
//	    binder.Query(),
//	    binder.Path(binder.ChiParam),
//	))
package binder
