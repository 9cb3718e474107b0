package providers

import (
	"encoding/json"
	"net/http"

	"github.com/taskhive/dispatch/core/providerstatus"
)

// NewStatusHandler returns an HTTP handler exposing provider status data via
// GET /api/providers/status.
func NewStatusHandler(store providerstatus.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		f := providerstatus.Filter{
			Category: r.URL.Query().Get("category"),
		}
		entries := store.List(f)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(entries); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
