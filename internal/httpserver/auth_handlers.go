package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"rivift-connect/internal/domain"
	"rivift-connect/internal/service"
)

type registerRequest struct {
	Identity            string `json:"identity"`
	Password            string `json:"password"`
	DisplayName         string `json:"display_name"`
	PublicKey           string `json:"public_key"`
	EncryptedPrivateKey string `json:"encrypted_private_key"`
}

func handleRegister(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		user, err := authSvc.Register(r.Context(), service.RegisterInput{
			Identity:            req.Identity,
			Password:            req.Password,
			DisplayName:         req.DisplayName,
			PublicKey:           req.PublicKey,
			EncryptedPrivateKey: req.EncryptedPrivateKey,
		})
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidInput):
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "identity and password are required"})
			case errors.Is(err, domain.ErrConflict):
				writeJSON(w, http.StatusConflict, map[string]string{"error": "identity already registered"})
			default:
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "registration failed"})
			}
			return
		}
		writeJSON(w, http.StatusCreated, user)
	}
}

type loginRequest struct {
	Identity string `json:"identity"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken         string       `json:"access_token"`
	TokenType           string       `json:"token_type"`
	User                *domain.User `json:"user"`
	EncryptedPrivateKey string       `json:"encrypted_private_key,omitempty"`
}

func handleLogin(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		resp, err := authSvc.Login(r.Context(), service.LoginInput{
			Identity: req.Identity,
			Password: req.Password,
		})
		if err != nil {
			if errors.Is(err, domain.ErrUnauthorized) {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "incorrect identity or password"})
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "login failed"})
			return
		}
		writeJSON(w, http.StatusOK, loginResponse{
			AccessToken:         resp.AccessToken,
			TokenType:           resp.TokenType,
			User:                resp.User,
			EncryptedPrivateKey: resp.EncryptedPrivateKey,
		})
	}
}
