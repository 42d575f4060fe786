package catalog

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound        = errors.New("product not found")
	ErrInvalidID       = errors.New("invalid product id")
	ErrInvalidPrice    = errors.New("price must be greater than zero")
	ErrInvalidDiscount = errors.New("discount price must be greater than zero and less than price")
	ErrSlugTaken       = errors.New("slug already in use")
)

// ParseID parses a hex product id.
func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return id, nil
}
