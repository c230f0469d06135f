package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"loan-backend/pkg/utils"
)

// PanicRecovery turns a panicking handler into a 500 JSON response
func PanicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				LoggerFromContext(r.Context()).Error("panic recovered",
					slog.Any("panic", err),
					slog.String("stack", string(debug.Stack())),
				)
				utils.Error(w, http.StatusInternalServerError, "Internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
