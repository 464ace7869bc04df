package strategy

import (
	"net/http"

	"github.com/iaconlabs/switchyard/router"
)

// Application is the default strategy. Return values are normalized as follows:
//
//   - *router.Response is passed through.
//   - string and []byte become the body with no forced content type.
//   - nil becomes 204 No Content.
//   - anything else is encoded as JSON.
//
// Errors are never formatted here; they leave the chain unchanged so the
// host boundary renders every failure the same way.
type Application struct {
	responses router.ResponseFactory
}

// NewApplication returns the strategy. A nil factory uses [router.DefaultResponses].
func NewApplication(f router.ResponseFactory) *Application {
	if f == nil {
		f = router.DefaultResponses
	}
	return &Application{responses: f}
}

// InvokeRoute implements [Strategy].
func (s *Application) InvokeRoute(route router.Controller, r *http.Request) (*router.Response, error) {
	v, err := route.Invoke(r)
	if err != nil {
		return nil, err
	}

	switch out := v.(type) {
	case *router.Response:
		return out, nil
	case nil:
		return router.NewResponse(http.StatusNoContent), nil
	case string:
		return &router.Response{Status: http.StatusOK, Header: make(http.Header), Body: []byte(out)}, nil
	case []byte:
		return &router.Response{Status: http.StatusOK, Header: make(http.Header), Body: out}, nil
	default:
		return s.responses.JSON(http.StatusOK, out, nil)
	}
}

// NotFoundDecorator implements [Strategy].
func (s *Application) NotFoundDecorator(err error) router.Middleware { return raise(err) }

// MethodNotAllowedDecorator implements [Strategy].
func (s *Application) MethodNotAllowedDecorator(err error) router.Middleware { return raise(err) }

// ThrowableHandler implements [Strategy].
func (s *Application) ThrowableHandler() router.Middleware {
	return router.MiddlewareFunc(func(r *http.Request, next router.Handler) (*router.Response, error) {
		return next.Handle(r)
	})
}
