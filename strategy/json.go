package strategy

import (
	"net/http"

	"github.com/iaconlabs/switchyard/httperr"
	"github.com/iaconlabs/switchyard/router"
)

// JSON renders every outcome as JSON, failures included. It suits API
// routes whose clients never expect the host's error pages.
type JSON struct {
	responses router.ResponseFactory
	debug     bool
}

// NewJSON returns the strategy. debug exposes unknown error text in bodies.
func NewJSON(f router.ResponseFactory, debug bool) *JSON {
	if f == nil {
		f = router.DefaultResponses
	}
	return &JSON{responses: f, debug: debug}
}

// InvokeRoute implements [Strategy].
func (s *JSON) InvokeRoute(route router.Controller, r *http.Request) (*router.Response, error) {
	v, err := route.Invoke(r)
	if err != nil {
		return nil, err
	}

	switch out := v.(type) {
	case *router.Response:
		return out, nil
	case nil:
		return router.NewResponse(http.StatusNoContent), nil
	case []byte:
		return s.responses.JSON(http.StatusOK, string(out), nil)
	default:
		return s.responses.JSON(http.StatusOK, out, nil)
	}
}

// NotFoundDecorator implements [Strategy].
func (s *JSON) NotFoundDecorator(err error) router.Middleware {
	return router.MiddlewareFunc(func(*http.Request, router.Handler) (*router.Response, error) {
		return s.render(err)
	})
}

// MethodNotAllowedDecorator implements [Strategy].
func (s *JSON) MethodNotAllowedDecorator(err error) router.Middleware {
	return s.NotFoundDecorator(err)
}

// ThrowableHandler implements [Strategy].
func (s *JSON) ThrowableHandler() router.Middleware {
	return router.MiddlewareFunc(func(r *http.Request, next router.Handler) (*router.Response, error) {
		resp, err := next.Handle(r)
		if err != nil {
			return s.render(err)
		}
		return resp, nil
	})
}

func (s *JSON) render(err error) (*router.Response, error) {
	status, header, body := httperr.Format(err, s.debug)
	return s.responses.JSON(status, body, header)
}
