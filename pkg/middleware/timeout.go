package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"sync"
	"time"
)

// Timeout cancels the request context after timeout and answers 504 if the
// handler has not written anything yet. Writes that arrive after the timeout
// response are discarded. A panicking handler is answered with 500.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			done := make(chan struct{})
			panicked := make(chan any, 1)
			tw := &timeoutWriter{w: w, header: make(http.Header)}
			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicked <- fmt.Sprintf("%v\n%s", p, debug.Stack())
					}
				}()
				next.ServeHTTP(tw, r.WithContext(ctx))
				close(done)
			}()

			select {
			case <-done:
			case p := <-panicked:
				slog.Error("handler panicked", "method", r.Method, "path", r.URL.Path, "panic", p)
				tw.abort(http.StatusInternalServerError, `{"error":"internal error"}`)
			case <-ctx.Done():
				if tw.abort(http.StatusGatewayTimeout, `{"error":"request timeout"}`) {
					slog.Warn("request timed out", "method", r.Method, "path", r.URL.Path, "timeout", timeout)
				}
			}
		})
	}
}

// timeoutWriter gives the handler its own header map, copied onto the real
// response at the first write, so a handler still running after the deadline
// never touches the headers of the timeout response.
type timeoutWriter struct {
	w           http.ResponseWriter
	header      http.Header
	mu          sync.Mutex
	wroteHeader bool
	timedOut    bool
}

func (tw *timeoutWriter) Header() http.Header {
	return tw.header
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut || tw.wroteHeader {
		return
	}
	tw.writeHeaderLocked(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	if !tw.wroteHeader {
		tw.writeHeaderLocked(http.StatusOK)
	}
	return tw.w.Write(b)
}

func (tw *timeoutWriter) writeHeaderLocked(code int) {
	dst := tw.w.Header()
	for k, vv := range tw.header {
		dst[k] = slices.Clone(vv)
	}
	tw.wroteHeader = true
	tw.w.WriteHeader(code)
}

// abort answers with status and body unless the handler already started the
// response, and discards every later handler write. It reports whether the
// response was written.
func (tw *timeoutWriter) abort(status int, body string) bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.timedOut = true
	if tw.wroteHeader {
		return false
	}
	tw.wroteHeader = true
	tw.w.Header().Set("Content-Type", "application/json")
	tw.w.WriteHeader(status)
	_, _ = tw.w.Write([]byte(body + "\n"))
	return true
}
