package repository

import (
	"context"

	"sheetsync-api/internal/model"
)

// CharacterRepository defines the record store over the three relations:
// characters, objects and character_objects. Implementations translate
// driver failures into the sentinel errors of this package and never leak
// raw constraint errors to callers.
//
// Methods perform no locking themselves; concurrent access is serialized
// by the service layer, which owns the single guarded connection.
type CharacterRepository interface {
	// InsertCharacter creates a character and returns its generated UUID.
	// Returns ErrDuplicateKey if (name, game) already exists.
	InsertCharacter(ctx context.Context, name, game string, data []byte) (string, error)

	// GetCharacter fetches a character by (name, game).
	// Returns ErrNotFound if absent.
	GetCharacter(ctx context.Context, name, game string) (*model.Character, error)

	// UpdateCharacterData replaces the free-form data document.
	// Returns the number of rows affected (0 if absent, no error).
	UpdateCharacterData(ctx context.Context, name, game string, data []byte) (int64, error)

	// DeleteCharacter removes a character. Ownership rows cascade.
	DeleteCharacter(ctx context.Context, name, game string) (int64, error)

	// InsertObject creates an object definition and returns its ID.
	InsertObject(ctx context.Context, name, objType string, properties []byte) (int64, error)

	// GetObject fetches an object by ID. Returns ErrNotFound if absent.
	GetObject(ctx context.Context, id int64) (*model.Object, error)

	// UpdateObjectProperties replaces an object's properties document.
	UpdateObjectProperties(ctx context.Context, id int64, properties []byte) (int64, error)

	// DeleteObject removes an object definition. Ownership rows cascade.
	DeleteObject(ctx context.Context, id int64) (int64, error)

	// AddCharacterObject grants an object to a character and returns the
	// association ID. Returns ErrForeignKey if the character or object
	// does not exist.
	AddCharacterObject(ctx context.Context, game, characterName string, objectID, quantity int64) (int64, error)

	// RemoveCharacterObject revokes an object from a character.
	RemoveCharacterObject(ctx context.Context, game, characterName string, objectID int64) (int64, error)

	// SetCharacterObjectQuantity updates the quantity on an association.
	SetCharacterObjectQuantity(ctx context.Context, game, characterName string, objectID, quantity int64) (int64, error)

	// ListCharacterObjects returns the character's owned objects in
	// insertion order, as a snapshot at call time.
	ListCharacterObjects(ctx context.Context, game, characterName string) ([]model.OwnedObject, error)

	// Stats returns statistics about the store for the admin endpoint.
	Stats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the repository connection.
	Close() error
}
