package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"rivift-connect/internal/service"
)

// handleHistory returns a chronological page of the caller's
// conversation with the identity in the path. Pagination is anchored at
// the newest end: offset skips back from the most recent message.
func handleHistory(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		counterpart := service.NormalizeIdentity(chi.URLParam(r, "identity"))
		if counterpart == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid identity"})
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		msgs, err := convSvc.History(r.Context(), currentUser.Identity, counterpart, limit, offset)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history failed"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"messages": msgs,
		})
	}
}
