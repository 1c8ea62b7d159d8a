package httpserver

import (
	"net/http"

	"rivift-connect/internal/service"
)

// handleSync serves the pull-based reconciliation query: friends with
// live status and unread counts, plus pending requests in both
// directions. Clients call it after reconnecting to recover state
// missed while offline, since fanout drops events for offline
// identities.
func handleSync(userSvc *service.UserService, presence service.Presence) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}

		resp, err := userSvc.Sync(r.Context(), currentUser.Identity, presence)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "sync failed"})
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
