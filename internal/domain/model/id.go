package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidObjectID indicates an object ID is not a UUID.
var ErrInvalidObjectID = errors.New("invalid object ID")

// sceneNamespace derives stable IDs for scene objects that do not declare one.
var sceneNamespace = uuid.MustParse("6f1d2c3e-8a4b-4f5e-9c7d-1b2a3c4d5e6f")

// ObjectID identifies a model object across configuration changes.
type ObjectID struct {
	id uuid.UUID
}

// NewObjectID creates a random object identifier.
func NewObjectID() ObjectID {
	return ObjectID{id: uuid.New()}
}

// DerivedObjectID returns the same identifier for the same name on every run.
func DerivedObjectID(name string) ObjectID {
	return ObjectID{id: uuid.NewSHA1(sceneNamespace, []byte(name))}
}

// ParseObjectID parses a UUID string.
func ParseObjectID(s string) (ObjectID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return ObjectID{}, fmt.Errorf("%w: %s", ErrInvalidObjectID, s)
	}
	return ObjectID{id: id}, nil
}

// String returns the canonical UUID form.
func (o ObjectID) String() string {
	return o.id.String()
}

// ShortID returns the first 8 characters for display.
func (o ObjectID) ShortID() string {
	return o.String()[:8]
}

// IsZero reports whether the ID is unset.
func (o ObjectID) IsZero() bool {
	return o.id == uuid.Nil
}
