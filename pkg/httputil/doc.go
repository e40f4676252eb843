// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Response Helpers
//
//	httputil.WriteJSON(w, http.StatusOK, page)
//	httputil.WriteCreated(w, page)
//	httputil.WriteNoContent(w)
//	httputil.WriteErrorMessage(w, http.StatusConflict, "no active subscription")
//	httputil.WriteUnprocessableEntity(w, "validation failed", map[string]string{"title": msg})
//
// # Request Parsing
//
//	var req pages.Request
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RecoveryMiddleware(logger),
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.MaxBytesMiddleware(1<<20),
//	)
//
// # Related Packages
//
//   - pkg/middleware: Authentication and rate limiting middleware
package httputil
