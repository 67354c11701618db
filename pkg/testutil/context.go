package testutil

import (
	"net/http"
	"time"

	id "chrona/pkg/domain"
	"chrona/pkg/requestcontext"
)

// WithActor adds an actor ID to the request context.
// This simulates what the auth middleware would do for authenticated requests.
// If the actorID is not a valid UUID, it will not be added to the context.
func WithActor(req *http.Request, actorID string) *http.Request {
	if parsed, err := id.ParseUserID(actorID); err == nil {
		return req.WithContext(requestcontext.WithActorID(req.Context(), parsed))
	}
	return req
}

// WithRequestID adds a request ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithFrozenTime pins the request time so handler timestamps are
// deterministic.
func WithFrozenTime(req *http.Request, at time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), at))
}
