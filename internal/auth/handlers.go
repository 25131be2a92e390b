package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/contactkeeper/backend/internal/errors"
	"github.com/contactkeeper/backend/internal/logger"
	"github.com/contactkeeper/backend/internal/metrics"
	"github.com/contactkeeper/backend/internal/models"
)

type TokenResponse struct {
	Token string `json:"token"`
}

type Handlers struct {
	svc     *Service
	metrics *metrics.Metrics
	log     *logger.Logger
}

func NewHandlers(svc *Service, m *metrics.Metrics, log *logger.Logger) *Handlers {
	return &Handlers{svc: svc, metrics: m, log: log.WithComponent("auth")}
}

// Register handles POST /api/users.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) error {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequest("invalid request body")
	}
	if err := validateRegisterRequest(&req); err != nil {
		return err
	}

	token, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, models.ErrEmailExists) {
			return apperrors.EmailExists()
		}
		return apperrors.InternalError("server error").WithCause(err)
	}

	h.metrics.IncCounter(metrics.UsersRegistered)
	h.log.Info(r.Context(), "user registered")
	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()), http.StatusOK, TokenResponse{Token: token})
	return nil
}

// Login handles POST /api/auth.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) error {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequest("invalid request body")
	}
	if err := validateLoginRequest(&req); err != nil {
		return err
	}

	token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.metrics.IncCounter(metrics.LoginsFailed)
			return apperrors.InvalidCredentials()
		}
		return apperrors.InternalError("server error").WithCause(err)
	}

	h.metrics.IncCounter(metrics.LoginsSucceeded)
	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()), http.StatusOK, TokenResponse{Token: token})
	return nil
}

// Me handles GET /api/auth and returns the caller's profile.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) error {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		return apperrors.NoToken()
	}

	user, err := h.svc.CurrentUser(r.Context(), id.UserID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			// Token outlived its user.
			return apperrors.InvalidToken()
		}
		return apperrors.InternalError("server error").WithCause(err)
	}

	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()), http.StatusOK, user)
	return nil
}
