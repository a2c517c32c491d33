package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/vantagecrm/vantage/pkg/apperrors"
	"github.com/vantagecrm/vantage/pkg/auth"
	"github.com/vantagecrm/vantage/pkg/httputil"
	"github.com/vantagecrm/vantage/pkg/observability"
	"github.com/vantagecrm/vantage/pkg/storage"
)

// AuthHandlers serves login, token refresh and password reset
type AuthHandlers struct {
	store      storage.UserStore
	issuer     *auth.Issuer
	classifier *apperrors.Classifier
	logger     *observability.Logger
	metrics    *observability.Metrics
}

// NewAuthHandlers creates the authentication handler set
func NewAuthHandlers(store storage.UserStore, issuer *auth.Issuer, classifier *apperrors.Classifier, logger *observability.Logger, metrics *observability.Metrics) *AuthHandlers {
	return &AuthHandlers{
		store:      store,
		issuer:     issuer,
		classifier: classifier,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterRoutes registers the authentication routes
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/auth/login", h.login).Methods("POST")
	router.HandleFunc("/api/v1/auth/refresh", h.refresh).Methods("POST")
	router.HandleFunc("/api/v1/auth/password-reset", h.requestPasswordReset).Methods("POST")
	router.HandleFunc("/api/v1/auth/password-reset/confirm", h.confirmPasswordReset).Methods("POST")
	router.HandleFunc("/api/v1/auth/me", h.me).Methods("GET")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

type passwordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// login handles POST /api/v1/auth/login
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.classifier.Respond(w, r, apperrors.BadRequest("Invalid request body"))
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		h.classifier.Respond(w, r, apperrors.BadRequest("Email and password are required"))
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, storage.ErrNotFound) {
		h.rejectLogin(w, r, "unknown_user")
		return
	}
	if err != nil {
		h.classifier.Respond(w, r, apperrors.Internal(err))
		return
	}
	if !user.Active {
		h.rejectLogin(w, r, "inactive_user")
		return
	}
	if err := auth.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		h.rejectLogin(w, r, "bad_password")
		return
	}

	pair, err := h.issuer.IssueTokenPair(user.ID, user.Email, user.Role, user.Permissions)
	if err != nil {
		h.classifier.Respond(w, r, apperrors.Internal(err))
		return
	}
	if h.metrics != nil {
		h.metrics.TokensIssuedTotal.WithLabelValues(string(auth.PurposeAccess)).Inc()
		h.metrics.TokensIssuedTotal.WithLabelValues(string(auth.PurposeRefresh)).Inc()
	}
	h.logger.FromContext(r.Context()).WithField("user_id", user.ID).Info("user logged in")
	httputil.WriteSuccess(w, pair)
}

// rejectLogin answers every credential failure identically so the
// response does not reveal which part was wrong
func (h *AuthHandlers) rejectLogin(w http.ResponseWriter, r *http.Request, reason string) {
	if h.metrics != nil {
		h.metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()
	}
	h.classifier.Respond(w, r, apperrors.Unauthorized("Invalid email or password"))
}

// refresh handles POST /api/v1/auth/refresh
func (h *AuthHandlers) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.classifier.Respond(w, r, apperrors.BadRequest("Invalid request body"))
		return
	}
	if req.RefreshToken == "" {
		h.classifier.Respond(w, r, apperrors.BadRequest("refresh_token is required"))
		return
	}

	claims, err := h.issuer.VerifyAndDecode(req.RefreshToken, auth.PurposeRefresh)
	if err != nil {
		h.classifier.Respond(w, r, apperrors.Unauthorized(refreshFailureMessage(err)))
		return
	}

	// Claims in a refresh token are intentionally thin, so the user
	// record is re-read to pick up role or permission changes.
	user, err := h.store.GetUserByID(r.Context(), claims.UserID())
	if errors.Is(err, storage.ErrNotFound) {
		h.classifier.Respond(w, r, apperrors.Unauthorized("Invalid user"))
		return
	}
	if err != nil {
		h.classifier.Respond(w, r, apperrors.Internal(err))
		return
	}
	if !user.Active {
		h.classifier.Respond(w, r, apperrors.Unauthorized("Invalid user"))
		return
	}

	pair, err := h.issuer.IssueTokenPair(user.ID, user.Email, user.Role, user.Permissions)
	if err != nil {
		h.classifier.Respond(w, r, apperrors.Internal(err))
		return
	}
	if h.metrics != nil {
		h.metrics.TokensIssuedTotal.WithLabelValues(string(auth.PurposeAccess)).Inc()
		h.metrics.TokensIssuedTotal.WithLabelValues(string(auth.PurposeRefresh)).Inc()
	}
	httputil.WriteSuccess(w, pair)
}

func refreshFailureMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "Refresh token expired"
	case errors.Is(err, auth.ErrWrongTokenPurpose):
		return "Not a refresh token"
	default:
		return "Invalid refresh token"
	}
}

// requestPasswordReset handles POST /api/v1/auth/password-reset
func (h *AuthHandlers) requestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.classifier.Respond(w, r, apperrors.BadRequest("Invalid request body"))
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		h.classifier.Respond(w, r, apperrors.BadRequest("Email is required"))
		return
	}

	// The response is identical whether or not the account exists so
	// this endpoint cannot be used to enumerate users.
	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err == nil && user.Active {
		token, issueErr := h.issuer.IssuePasswordResetToken(user.ID, user.Email)
		if issueErr != nil {
			h.classifier.Respond(w, r, apperrors.Internal(issueErr))
			return
		}
		if h.metrics != nil {
			h.metrics.TokensIssuedTotal.WithLabelValues(string(auth.PurposePasswordReset)).Inc()
		}
		// Delivery would go through a mail queue. Until then the token
		// is logged for operator-assisted resets.
		h.logger.FromContext(r.Context()).
			WithField("user_id", user.ID).
			WithField("reset_token", token).
			Info("password reset requested")
	} else if err != nil && !errors.Is(err, storage.ErrNotFound) {
		h.classifier.Respond(w, r, apperrors.Internal(err))
		return
	}

	httputil.WriteSuccessMessage(w, "If the account exists, a password reset has been initiated", nil)
}

// confirmPasswordReset handles POST /api/v1/auth/password-reset/confirm
func (h *AuthHandlers) confirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetConfirmRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.classifier.Respond(w, r, apperrors.BadRequest("Invalid request body"))
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		h.classifier.Respond(w, r, apperrors.BadRequest("Token and new_password are required"))
		return
	}
	if len(req.NewPassword) < 8 {
		h.classifier.Respond(w, r, apperrors.Unprocessable("Password must be at least 8 characters"))
		return
	}

	claims, err := h.issuer.VerifyAndDecode(req.Token, auth.PurposePasswordReset)
	if err != nil {
		h.classifier.Respond(w, r, apperrors.Unauthorized("Invalid or expired reset token"))
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		h.classifier.Respond(w, r, apperrors.Internal(err))
		return
	}
	if err := h.store.UpdateUserPassword(r.Context(), claims.UserID(), hash); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.classifier.Respond(w, r, apperrors.Unauthorized("Invalid or expired reset token"))
			return
		}
		h.classifier.Respond(w, r, apperrors.Internal(err))
		return
	}

	h.logger.FromContext(r.Context()).WithField("user_id", claims.UserID()).Info("password reset completed")
	httputil.WriteSuccessMessage(w, "Password updated", nil)
}

// me handles GET /api/v1/auth/me
func (h *AuthHandlers) me(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r, h.classifier)
	if principal == nil {
		return
	}
	httputil.WriteSuccess(w, principal)
}
