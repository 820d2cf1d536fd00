package middleware

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/w3bsuki/strike-cart-go/internal/model"
)

// Recover converts a handler panic into a JSON 500 instead of tearing
// down the connection.
func Recover(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Printf("panic %s %s cid=%s: %v",
						r.Method, r.URL.Path, GetCorrelationID(r.Context()), rec)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(model.ErrorResponse{
						Error:         "internal server error",
						CorrelationID: GetCorrelationID(r.Context()),
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
