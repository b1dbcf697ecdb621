package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	apperrors "roombook/pkg/errors"
	httputil "roombook/pkg/http"
)

// guardedWriter drops writes from the handler once the deadline has fired.
type guardedWriter struct {
	http.ResponseWriter
	mu       sync.Mutex
	expired  bool
	answered bool
}

func (gw *guardedWriter) WriteHeader(code int) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if gw.expired || gw.answered {
		return
	}
	gw.answered = true
	gw.ResponseWriter.WriteHeader(code)
}

func (gw *guardedWriter) Write(b []byte) (int, error) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if gw.expired {
		return 0, http.ErrHandlerTimeout
	}
	gw.answered = true
	return gw.ResponseWriter.Write(b)
}

// expire marks the writer dead and reports whether the handler had already
// started the response.
func (gw *guardedWriter) expire() bool {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.expired = true
	return gw.answered
}

func RequestTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			gw := &guardedWriter{ResponseWriter: w}
			done := make(chan struct{})
			go func() {
				defer close(done)
				next.ServeHTTP(gw, r.WithContext(ctx))
			}()

			select {
			case <-done:
			case <-ctx.Done():
				if !gw.expire() {
					httputil.WriteError(w, apperrors.Unavailable("Booking service"))
				}
			}
		})
	}
}
