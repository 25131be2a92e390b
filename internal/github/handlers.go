package github

import (
	"context"
	"errors"
	"net/http"
	"strings"

	apperrors "github.com/contactkeeper/backend/internal/errors"
)

type Handlers struct {
	client *Client
}

func NewHandlers(client *Client) *Handlers {
	return &Handlers{client: client}
}

// SearchUsers handles GET /api/github/search/users?q=.
func (h *Handlers) SearchUsers(w http.ResponseWriter, r *http.Request) error {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		return apperrors.ValidationFields([]apperrors.FieldError{
			{Field: "q", Message: "Please enter something"},
		})
	}

	users, err := h.client.SearchUsers(r.Context(), query)
	if err != nil {
		return mapError(err)
	}
	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()), http.StatusOK, users)
	return nil
}

// GetUser handles GET /api/github/users/{login}.
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) error {
	user, err := h.client.GetUser(r.Context(), r.PathValue("login"))
	if err != nil {
		return mapError(err)
	}
	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()), http.StatusOK, user)
	return nil
}

// GetUserRepos handles GET /api/github/users/{login}/repos.
func (h *Handlers) GetUserRepos(w http.ResponseWriter, r *http.Request) error {
	repos, err := h.client.GetUserRepos(r.Context(), r.PathValue("login"))
	if err != nil {
		return mapError(err)
	}
	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()), http.StatusOK, repos)
	return nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return apperrors.NotFound("github user")
	case isTimeout(err):
		return apperrors.ExternalTimeout("github").WithCause(err)
	default:
		return apperrors.GitHubError("github request failed").WithCause(err)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
