// Package strategy decides how a handler's return value becomes a response
// and how match failures and errors leave the middleware chain.
package strategy

import (
	"net/http"

	"github.com/iaconlabs/switchyard/router"
)

// Strategy is the response policy of a route or router.
type Strategy interface {
	// InvokeRoute runs the route handler and normalizes its return value.
	InvokeRoute(route router.Controller, r *http.Request) (*router.Response, error)
	// NotFoundDecorator is the terminal middleware installed when no route matched.
	NotFoundDecorator(err error) router.Middleware
	// MethodNotAllowedDecorator is the terminal middleware installed when the
	// path matched for other methods only.
	MethodNotAllowedDecorator(err error) router.Middleware
	// ThrowableHandler is the outermost middleware of every dispatch.
	ThrowableHandler() router.Middleware
}

// raise is a terminal middleware that always fails with err.
func raise(err error) router.Middleware {
	return router.MiddlewareFunc(func(*http.Request, router.Handler) (*router.Response, error) {
		return nil, err
	})
}
