package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/contactkeeper/backend/internal/models"
)

type ContactRepository struct {
	db *DB
}

func NewContactRepository(db *DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// ListByUser returns the user's contacts, newest first.
func (r *ContactRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Contact, error) {
	query := `
		SELECT id, user_id, name, email, phone, type, created_at
		FROM contacts
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := make([]models.Contact, 0)
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Type, &c.CreatedAt); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}

	return contacts, rows.Err()
}

func (r *ContactRepository) Create(ctx context.Context, c *models.Contact) error {
	query := `
		INSERT INTO contacts (id, user_id, name, email, phone, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.UserID, c.Name, c.Email, c.Phone, c.Type, c.CreatedAt,
	)
	return err
}

func (r *ContactRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	query := `
		SELECT id, user_id, name, email, phone, type, created_at
		FROM contacts
		WHERE id = $1
	`

	c := &models.Contact{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Type, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrContactNotFound
		}
		return nil, err
	}

	return c, nil
}

// Update writes the mutable fields. Owner and creation time are never changed.
func (r *ContactRepository) Update(ctx context.Context, c *models.Contact) error {
	query := `
		UPDATE contacts
		SET name = $2, email = $3, phone = $4, type = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, c.ID, c.Name, c.Email, c.Phone, c.Type)
	if err != nil {
		return err
	}
	return expectOneRow(result, models.ErrContactNotFound)
}

func (r *ContactRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOneRow(result, models.ErrContactNotFound)
}

func expectOneRow(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
