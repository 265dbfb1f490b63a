package api

import (
	"database/sql"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/erazemk/omara/internal/auth"
	"github.com/erazemk/omara/internal/model"
	"github.com/erazemk/omara/internal/store"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	DB        *sql.DB
	JWTSecret string
	Streams   *streamRegistry
}

type signupRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	DisplayName string `json:"display_name" validate:"max=100"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

type resetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetConfirmRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Signup handles POST /api/auth/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		fieldError(w, "password", err.Error())
		return
	}

	existing, err := store.GetUserByEmail(r.Context(), h.DB, req.Email)
	if err != nil {
		storeError(w, err, "create account")
		return
	}
	if existing != nil {
		fieldError(w, "email", "an account with this email already exists")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		storeError(w, err, "create account")
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, req.Email, strings.TrimSpace(req.DisplayName), hash, model.RoleUser)
	if err != nil {
		storeError(w, err, "create account")
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, user.ID, user.Email, user.Role)
	if err != nil {
		storeError(w, err, "generate token")
		return
	}

	zap.L().Info("account created", zap.String("user", user.Email))
	jsonResponse(w, http.StatusCreated, loginResponse{Token: token, User: user})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := store.GetUserByEmail(r.Context(), h.DB, req.Email)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		zap.L().Warn("login failed", zap.String("email", req.Email), zap.String("remote", r.RemoteAddr))
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, user.ID, user.Email, user.Role)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	zap.L().Info("user logged in", zap.String("user", user.Email), zap.String("role", user.Role))
	jsonResponse(w, http.StatusOK, loginResponse{Token: token, User: user})
}

// Logout handles POST /api/auth/logout by revoking the presented token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := store.RevokeToken(r.Context(), h.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
		storeError(w, err, "log out")
		return
	}
	ended := h.Streams.revokeToken(claims.ID)

	zap.L().Info("user logged out", zap.String("user", claims.Email), zap.Int("streams_ended", ended))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := model.ValidatePassword(req.NewPassword); err != nil {
		fieldError(w, "new_password", err.Error())
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, claims.UserID)
	if err != nil || user == nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		jsonError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	if err := h.setPassword(r, user.ID, req.NewPassword); err != nil {
		storeError(w, err, "update password")
		return
	}

	zap.L().Info("user changed own password", zap.String("user", claims.Email))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// RequestPasswordReset handles POST /api/auth/password-reset. The response
// does not reveal whether the account exists. There is no mailer: the reset
// token is written to the log for the operator to pass on.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := store.GetUserByEmail(r.Context(), h.DB, req.Email)
	if err != nil {
		storeError(w, err, "request password reset")
		return
	}
	if user != nil {
		token, err := auth.GenerateResetToken(h.JWTSecret, user.ID, user.Email)
		if err != nil {
			storeError(w, err, "request password reset")
			return
		}
		zap.L().Info("password reset issued", zap.String("user", user.Email), zap.String("token", token))
	}

	jsonResponse(w, http.StatusAccepted, map[string]string{
		"message": "if the account exists, reset instructions have been issued",
	})
}

// ConfirmPasswordReset handles POST /api/auth/password-reset/confirm. Each
// reset token works once.
func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		fieldError(w, "password", err.Error())
		return
	}

	claims, err := auth.ValidateToken(h.JWTSecret, req.Token, auth.PurposeReset)
	if err != nil {
		fieldError(w, "token", "invalid or expired reset token")
		return
	}
	revoked, err := store.IsTokenRevoked(r.Context(), h.DB, claims.ID)
	if err != nil {
		storeError(w, err, "reset password")
		return
	}
	user, err := store.GetUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		storeError(w, err, "reset password")
		return
	}
	if revoked || user == nil || user.DeletedAt != nil {
		fieldError(w, "token", "invalid or expired reset token")
		return
	}

	if err := h.setPassword(r, user.ID, req.Password); err != nil {
		storeError(w, err, "reset password")
		return
	}
	if err := store.RevokeToken(r.Context(), h.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
		storeError(w, err, "reset password")
		return
	}

	zap.L().Info("password reset completed", zap.String("user", user.Email))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (h *AuthHandler) setPassword(r *http.Request, userID, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return store.UpdateUserPassword(r.Context(), h.DB, userID, hash)
}
