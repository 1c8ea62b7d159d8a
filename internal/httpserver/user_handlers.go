package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rivift-connect/internal/domain"
	"rivift-connect/internal/service"
)

func handleGetUser(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := service.NormalizeIdentity(chi.URLParam(r, "identity"))
		if identity == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid identity"})
			return
		}
		user, err := userSvc.Get(r.Context(), identity)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
			return
		}
		if user == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

type updateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	Icon        *string `json:"icon"`
}

func handleUpdateProfile(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		var req updateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if req.DisplayName == nil && req.Icon == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "nothing to update"})
			return
		}

		err := userSvc.UpdateProfile(r.Context(), currentUser.Identity, domain.ProfileUpdate{
			DisplayName: req.DisplayName,
			Icon:        req.Icon,
		})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "update failed"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}
