// Package middleware provides HTTP middleware components.
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/solinlabs/persona_bot_platform/pkg/logger"
)

// Recovery returns a middleware that recovers from handler panics, logs them
// and responds with a generic 500.
func Recovery(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					handlePanic(w, r, err, log)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func handlePanic(w http.ResponseWriter, r *http.Request, panicErr any, log logger.Logger) {
	log.Error("HTTP request panic recovered",
		logger.StringField("panic_error", fmt.Sprintf("%v", panicErr)),
		logger.StringField("method", r.Method),
		logger.StringField("path", r.URL.Path),
		logger.StringField("client_ip", ClientIP(r)),
		logger.StringField("stack_trace", string(debug.Stack())))

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Connection", "close")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"error":"internal server error"}`))
}

// ClientIP extracts the real client IP, looking through common proxy headers
// before falling back to the socket address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for idx := 0; idx < len(xff); idx++ {
			if xff[idx] == ',' {
				return xff[:idx]
			}
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
