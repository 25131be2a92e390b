package contacts

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/contactkeeper/backend/internal/auth"
	apperrors "github.com/contactkeeper/backend/internal/errors"
	"github.com/contactkeeper/backend/internal/logger"
	"github.com/contactkeeper/backend/internal/metrics"
	"github.com/contactkeeper/backend/internal/models"
)

type MessageResponse struct {
	Msg string `json:"msg"`
}

type Handlers struct {
	svc     *Service
	metrics *metrics.Metrics
	log     *logger.Logger
}

func NewHandlers(svc *Service, m *metrics.Metrics, log *logger.Logger) *Handlers {
	return &Handlers{svc: svc, metrics: m, log: log.WithComponent("contacts")}
}

// List handles GET /api/contacts.
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}

	contacts, err := h.svc.List(r.Context(), id.UserID)
	if err != nil {
		return apperrors.DatabaseError("server error").WithCause(err)
	}

	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()), http.StatusOK, contacts)
	return nil
}

// Create handles POST /api/contacts.
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}

	var req ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequest("invalid request body")
	}

	contact, err := h.svc.Create(r.Context(), id.UserID, &req)
	if err != nil {
		return h.mapError(r, err)
	}

	h.metrics.IncCounter(metrics.ContactsCreated)
	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()), http.StatusOK, contact)
	return nil
}

// Update handles PUT /api/contacts/{id}.
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}
	contactID, err := contactIDFromPath(r)
	if err != nil {
		return err
	}

	var req ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequest("invalid request body")
	}

	contact, err := h.svc.Update(r.Context(), id.UserID, contactID, &req)
	if err != nil {
		return h.mapError(r, err)
	}

	h.metrics.IncCounter(metrics.ContactsUpdated)
	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()), http.StatusOK, contact)
	return nil
}

// Delete handles DELETE /api/contacts/{id}.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}
	contactID, err := contactIDFromPath(r)
	if err != nil {
		return err
	}

	if err := h.svc.Delete(r.Context(), id.UserID, contactID); err != nil {
		return h.mapError(r, err)
	}

	h.metrics.IncCounter(metrics.ContactsDeleted)
	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()), http.StatusOK, MessageResponse{Msg: "Contact Removed"})
	return nil
}

// Export handles POST /api/contacts/export.
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}

	result, err := h.svc.Export(r.Context(), id.UserID)
	if err != nil {
		if errors.Is(err, ErrExportDisabled) {
			return apperrors.NotFound("export")
		}
		return apperrors.StorageError("export failed").WithCause(err)
	}

	h.metrics.IncCounter(metrics.ContactsExported)
	h.log.Info(r.Context(), "contacts exported", "key", result.Key, "count", result.Count)
	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()), http.StatusOK, result)
	return nil
}

func (h *Handlers) mapError(r *http.Request, err error) error {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, models.ErrContactNotFound):
		return apperrors.ContactNotFound()
	case errors.Is(err, ErrForbidden):
		h.metrics.IncCounter(metrics.OwnershipDenied)
		h.log.Warn(r.Context(), "contact ownership denied", "contact_id", r.PathValue("id"))
		return apperrors.Forbidden("not authorized")
	default:
		return apperrors.DatabaseError("server error").WithCause(err)
	}
}

func identity(r *http.Request) (auth.Identity, error) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return auth.Identity{}, apperrors.NoToken()
	}
	return id, nil
}

// contactIDFromPath treats an unparseable id like an unknown one.
func contactIDFromPath(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, apperrors.ContactNotFound()
	}
	return id, nil
}
