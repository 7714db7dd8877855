package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/picvault/picvault/internal/auth"
	"github.com/picvault/picvault/internal/handler/dto"
	"github.com/picvault/picvault/internal/model"
	"github.com/picvault/picvault/internal/service"
)

// AccountService is the subset of service.AccountService used by AuthHandler.
type AccountService interface {
	Register(ctx context.Context, input service.RegisterInput) (*service.AuthResult, error)
	Login(ctx context.Context, input service.LoginInput) (*service.AuthResult, error)
	GetProfile(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, input service.UpdateProfileInput) (*model.User, error)
	ChangePassword(ctx context.Context, userID string, input service.ChangePasswordInput) error
}

// AuthHandler handles account endpoints.
type AuthHandler struct {
	svc    AccountService
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc AccountService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:    svc,
		logger: logger,
	}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	res, err := h.svc.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AuthResponse{
		Token: res.Token,
		User:  dto.ToUserResponse(res.User),
	})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	res, err := h.svc.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(r.Context(), "login_succeeded", "user_id", res.User.ID)

	writeJSON(w, http.StatusOK, dto.AuthResponse{
		Token: res.Token,
		User:  dto.ToUserResponse(res.User),
	})
}

// Profile handles GET /api/auth/profile.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	user, err := h.svc.GetProfile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

// UpdateProfile handles PUT /api/auth/profile.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	user, err := h.svc.UpdateProfile(r.Context(), userID, service.UpdateProfileInput{
		Username:          req.Username,
		ProfilePictureURL: req.ProfilePictureURL,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ProfileUpdatedResponse{
		Message: "profile updated",
		User:    dto.ToUserResponse(user),
	})
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req dto.ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	err := h.svc.ChangePassword(r.Context(), userID, service.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeMessage(w, http.StatusOK, "password updated")
}

// callerID returns the authenticated user id, writing a 401 when absent.
func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeMessage(w, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return userID, true
}
