package middleware

import (
	"net/http"
	"runtime/debug"

	"pet-health-api/internal/platform/apperr"
	"pet-health-api/internal/platform/logger"
)

// Recover reemplaza a chimw.Recoverer: mismo comportamiento pero loguea por
// nuestro logger y responde {"error":"internal error"}.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			logger.FromContext(r.Context()).Error("panic recovered", map[string]any{
				"panic":  rec,
				"stack":  string(debug.Stack()),
				"method": r.Method,
				"path":   r.URL.Path,
			})

			if r.Header.Get("Connection") != "Upgrade" {
				apperr.WriteStatus(w, http.StatusInternalServerError, "internal error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
