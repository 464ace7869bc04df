package switchyard

import (
	"fmt"
	log "log/slog"
	"net/http"
	"runtime/debug"

	"github.com/iaconlabs/switchyard/httperr"
)

// Recovery returns a middleware that recovers from panics, logs them and
// responds with a 500 JSON error body.
// If stack is true, the stack trace is logged and the panic value is
// exposed in the body's description.
func Recovery(logger *log.Logger, stack bool) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					attrs := []any{"method", r.Method, "path", r.URL.Path, "panic", fmt.Sprint(rec)}
					if stack {
						attrs = append(attrs, "stack", string(debug.Stack()))
					}
					logger.Error("panic recovered", attrs...)

					httperr.Write(w, fmt.Errorf("panic: %v", rec), stack)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
