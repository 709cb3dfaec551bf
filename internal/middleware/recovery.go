package middleware

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
)

// PanicHandler writes the error response for a recovered panic
type PanicHandler func(w http.ResponseWriter, r *http.Request, err any)

// Recovery creates panic recovery middleware with a custom panic handler.
// Nothing is written once a connection has been hijacked for a WebSocket.
func Recovery(logger *slog.Logger, handler PanicHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tracked := &hijackTracker{ResponseWriter: w}
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				// Deliberate aborts are handled by net/http
				if e, ok := err.(error); ok && errors.Is(e, http.ErrAbortHandler) {
					panic(err)
				}

				logger.Error("panic recovered",
					slog.Any("error", err),
					slog.String("stack", string(debug.Stack())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Bool("hijacked", tracked.hijacked),
				)

				if !tracked.hijacked {
					handler(w, r, err)
				}
			}()

			next.ServeHTTP(tracked, r)
		})
	}
}

// hijackTracker remembers whether the handler took over the connection
type hijackTracker struct {
	http.ResponseWriter
	hijacked bool
}

func (t *hijackTracker) Flush() {
	if flusher, ok := t.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (t *hijackTracker) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := t.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	conn, rw, err := hijacker.Hijack()
	if err == nil {
		t.hijacked = true
	}
	return conn, rw, err
}
