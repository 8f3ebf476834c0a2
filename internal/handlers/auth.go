package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/AnshRaj112/laundry-backend/internal/apperr"
	"github.com/AnshRaj112/laundry-backend/internal/middleware"
	"github.com/AnshRaj112/laundry-backend/internal/models"
	"github.com/AnshRaj112/laundry-backend/internal/services"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// AuthResponse is returned by signup, login and the profile endpoints.
type AuthResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message,omitempty"`
	User    *models.PublicUser `json:"user,omitempty"`
	Token   string             `json:"token,omitempty"`
}

type AuthHandler struct {
	auth *services.AuthGateway
	log  *zap.Logger
}

func NewAuthHandler(auth *services.AuthGateway, log *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, log: log.With(zap.String("component", "auth_handler"))}
}

// Signup handles POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req services.SignupInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	user, err := h.auth.Signup(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, AuthResponse{Success: true, Message: "User registered successfully", User: &user})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	user, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Message: "Login successful", User: &user, Token: token})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	payload, ok := middleware.PayloadFrom(r.Context())
	if !ok {
		writeError(w, h.log, apperr.Unauthenticated("Authentication required"))
		return
	}

	user, err := h.auth.GetProfile(payload.UserID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, User: &user})
}

// UpdateProfile handles PUT /api/auth/profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	payload, ok := middleware.PayloadFrom(r.Context())
	if !ok {
		writeError(w, h.log, apperr.Unauthenticated("Authentication required"))
		return
	}

	var req services.ProfileInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	user, err := h.auth.UpdateProfile(r.Context(), payload.UserID, req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Message: "Profile updated successfully", User: &user})
}

// ChangePassword handles PUT /api/auth/password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	payload, ok := middleware.PayloadFrom(r.Context())
	if !ok {
		writeError(w, h.log, apperr.Unauthenticated("Authentication required"))
		return
	}

	var req ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	if err := h.auth.ChangePassword(r.Context(), payload.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Password changed successfully"})
}
