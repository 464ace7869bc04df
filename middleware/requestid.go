package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/iaconlabs/switchyard/router"
)

// HeaderRequestID carries the request identifier in both directions.
const HeaderRequestID = "X-Request-ID"

type requestIDKey struct{}

// RequestID tags every request with an identifier. An incoming X-Request-ID
// header is kept; otherwise a random UUID is generated. The identifier is
// echoed on the response.
func RequestID() router.Middleware {
	return router.MiddlewareFunc(func(r *http.Request, next router.Handler) (*router.Response, error) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))

		resp, err := next.Handle(r)
		if resp != nil {
			if resp.Header == nil {
				resp.Header = make(http.Header)
			}
			resp.Header.Set(HeaderRequestID, id)
		}
		return resp, err
	})
}

// RequestIDFrom returns the identifier assigned by [RequestID].
func RequestIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey{}).(string)
	return id
}
