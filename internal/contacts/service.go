package contacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/contactkeeper/backend/internal/models"
)

// ErrForbidden is returned when a contact belongs to someone else.
var ErrForbidden = errors.New("not authorized")

// ErrExportDisabled is returned by Export when no object storage is configured.
var ErrExportDisabled = errors.New("export storage is not configured")

type Repository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Contact, error)
	Create(ctx context.Context, contact *models.Contact) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contact, error)
	Update(ctx context.Context, contact *models.Contact) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Exporter stores export snapshots and hands out download links.
type Exporter interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type ExportResult struct {
	Key   string `json:"key"`
	URL   string `json:"url"`
	Count int    `json:"count"`
}

type Service struct {
	repo      Repository
	exporter  Exporter
	exportTTL time.Duration
	now       func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithExporter enables Export.
func (s *Service) WithExporter(exporter Exporter, urlTTL time.Duration) *Service {
	s.exporter = exporter
	s.exportTTL = urlTTL
	return s
}

// ExportEnabled reports whether an exporter is configured.
func (s *Service) ExportEnabled() bool {
	return s.exporter != nil
}

// List returns the user's contacts, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.Contact, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Create validates req and stores a new contact owned by userID.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req *ContactRequest) (*models.Contact, error) {
	if err := req.validate(true); err != nil {
		return nil, err
	}

	contact := req.fields()
	contact.ID = uuid.New()
	contact.UserID = userID
	contact.CreatedAt = s.now().UTC().Truncate(time.Millisecond)

	if err := s.repo.Create(ctx, &contact); err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}
	return &contact, nil
}

// Update overwrites the non-empty fields of req on a contact owned by userID.
func (s *Service) Update(ctx context.Context, userID, contactID uuid.UUID, req *ContactRequest) (*models.Contact, error) {
	if err := req.validate(false); err != nil {
		return nil, err
	}

	contact, err := s.owned(ctx, userID, contactID)
	if err != nil {
		return nil, err
	}

	patch := req.patch()
	if patch.Empty() {
		return contact, nil
	}
	patch.Apply(contact)

	if err := s.repo.Update(ctx, contact); err != nil {
		return nil, fmt.Errorf("update contact: %w", err)
	}
	return contact, nil
}

// Delete removes a contact owned by userID.
func (s *Service) Delete(ctx context.Context, userID, contactID uuid.UUID) error {
	if _, err := s.owned(ctx, userID, contactID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, contactID); err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	return nil
}

// Export uploads a JSON snapshot of the user's contacts and returns a
// time-limited link to it.
func (s *Service) Export(ctx context.Context, userID uuid.UUID) (*ExportResult, error) {
	if s.exporter == nil {
		return nil, ErrExportDisabled
	}

	contacts, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(contacts)
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}

	key := fmt.Sprintf("exports/%s/%d.json", userID, s.now().UnixNano())
	if err := s.exporter.Put(ctx, key, data, "application/json"); err != nil {
		return nil, fmt.Errorf("upload export: %w", err)
	}

	url, err := s.exporter.PresignedURL(ctx, key, s.exportTTL)
	if err != nil {
		return nil, fmt.Errorf("presign export: %w", err)
	}

	return &ExportResult{Key: key, URL: url, Count: len(contacts)}, nil
}

func (s *Service) owned(ctx context.Context, userID, contactID uuid.UUID) (*models.Contact, error) {
	contact, err := s.repo.GetByID(ctx, contactID)
	if err != nil {
		return nil, err
	}
	if contact.UserID != userID {
		return nil, ErrForbidden
	}
	return contact, nil
}
