package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// Recovery turns a handler panic into a 500 JSON response. http.ErrAbortHandler
// is re-raised so net/http can drop the connection of a truncated download.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			slog.Error("panic recovered",
				"panic", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", chimw.GetReqID(r.Context()),
				"stack", string(debug.Stack()),
			)

			if ww.Status() != 0 {
				return
			}
			ww.Header().Set("Content-Type", "application/json")
			ww.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(ww).Encode(map[string]string{"error": "Something went wrong!"})
		}()

		next.ServeHTTP(ww, r)
	})
}
