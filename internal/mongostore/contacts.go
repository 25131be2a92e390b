package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/contactkeeper/backend/internal/models"
)

type contactDocument struct {
	ID    string    `bson:"_id"`
	User  string    `bson:"user"`
	Name  string    `bson:"name"`
	Email string    `bson:"email"`
	Phone string    `bson:"phone"`
	Type  string    `bson:"type"`
	Date  time.Time `bson:"date"`
}

func newContactDocument(c *models.Contact) contactDocument {
	return contactDocument{
		ID:    c.ID.String(),
		User:  c.UserID.String(),
		Name:  c.Name,
		Email: c.Email,
		Phone: c.Phone,
		Type:  string(c.Type),
		Date:  c.CreatedAt,
	}
}

func (d *contactDocument) model() (models.Contact, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return models.Contact{}, err
	}
	userID, err := uuid.Parse(d.User)
	if err != nil {
		return models.Contact{}, err
	}
	return models.Contact{
		ID:        id,
		UserID:    userID,
		Name:      d.Name,
		Email:     d.Email,
		Phone:     d.Phone,
		Type:      models.ContactType(d.Type),
		CreatedAt: d.Date.UTC(),
	}, nil
}

type ContactRepository struct {
	coll *mongo.Collection
}

func NewContactRepository(db *mongo.Database) *ContactRepository {
	return &ContactRepository{coll: db.Collection(contactsCollection)}
}

// ListByUser returns the user's contacts, newest first.
func (r *ContactRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Contact, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.M{"user": userID.String()}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	contacts := make([]models.Contact, 0)
	for cur.Next(ctx) {
		var doc contactDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		c, err := doc.model()
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, cur.Err()
}

func (r *ContactRepository) Create(ctx context.Context, c *models.Contact) error {
	_, err := r.coll.InsertOne(ctx, newContactDocument(c))
	return err
}

func (r *ContactRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	var doc contactDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrContactNotFound
		}
		return nil, err
	}
	c, err := doc.model()
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Update sets the mutable fields. Owner and date are never changed.
func (r *ContactRepository) Update(ctx context.Context, c *models.Contact) error {
	update := bson.M{"$set": bson.M{
		"name":  c.Name,
		"email": c.Email,
		"phone": c.Phone,
		"type":  string(c.Type),
	}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": c.ID.String()}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrContactNotFound
	}
	return nil
}

func (r *ContactRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return models.ErrContactNotFound
	}
	return nil
}
