package middleware

import (
	"bytes"
	"net/http"

	"github.com/iaconlabs/switchyard/router"
)

// FromHTTP adapts a standard net/http middleware to the dispatcher's
// [router.Middleware] contract. Headers and status written by mw are merged
// into the response produced by the rest of the chain; an error from the
// chain is returned as is.
func FromHTTP(mw func(http.Handler) http.Handler) router.Middleware {
	return router.MiddlewareFunc(func(r *http.Request, next router.Handler) (*router.Response, error) {
		rec := &recorder{header: make(http.Header)}

		var (
			chainErr error
			empty    bool
		)
		inner := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			resp, err := next.Handle(req)
			if err != nil {
				chainErr = err
				return
			}
			if resp == nil {
				empty = true
				return
			}
			resp.WriteTo(w)
		})

		mw(inner).ServeHTTP(rec, r)

		if chainErr != nil {
			return nil, chainErr
		}
		if empty && !rec.wrote {
			return nil, nil
		}
		return rec.response(), nil
	})
}

// ServeResponse runs a plain net/http handler and captures what it writes.
// It returns nil when the handler wrote nothing.
func ServeResponse(h http.Handler, r *http.Request) *router.Response {
	rec := &recorder{header: make(http.Header)}
	h.ServeHTTP(rec, r)
	if !rec.wrote {
		return nil
	}
	return rec.response()
}

// recorder captures what a net/http handler writes.
type recorder struct {
	header http.Header
	status int
	body   bytes.Buffer
	wrote  bool
}

func (rec *recorder) Header() http.Header { return rec.header }

func (rec *recorder) WriteHeader(status int) {
	if rec.wrote {
		return
	}
	rec.status = status
	rec.wrote = true
}

func (rec *recorder) Write(b []byte) (int, error) {
	if !rec.wrote {
		rec.WriteHeader(http.StatusOK)
	}
	return rec.body.Write(b)
}

func (rec *recorder) response() *router.Response {
	status := rec.status
	if status == 0 {
		status = http.StatusOK
	}
	return &router.Response{Status: status, Header: rec.header, Body: rec.body.Bytes()}
}
