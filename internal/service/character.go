package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"sheetsync-api/internal/cache"
	"sheetsync-api/internal/model"
	"sheetsync-api/internal/repository"
)

// CharacterService owns all access to the character store. Every storage
// interaction runs under the serializer, so the merge-upsert's
// read-then-write is atomic with respect to other callers.
type CharacterService struct {
	repo       repository.CharacterRepository
	serializer *Serializer

	cache    cache.Cache
	cacheTTL time.Duration

	// maxDocumentBytes caps the merged character document when > 0.
	maxDocumentBytes int
}

// NewCharacterService creates a new character service.
// Returns nil if repo is nil (required dependency).
func NewCharacterService(repo repository.CharacterRepository) *CharacterService {
	if repo == nil {
		return nil
	}
	return &CharacterService{
		repo:       repo,
		serializer: NewSerializer(),
	}
}

// NewCharacterServiceWithCache creates a character service with a
// read-through cache for character rows.
func NewCharacterServiceWithCache(repo repository.CharacterRepository, c cache.Cache, ttl time.Duration) *CharacterService {
	s := NewCharacterService(repo)
	if s == nil {
		return nil
	}
	s.cache = c
	s.cacheTTL = ttl
	return s
}

// SetMaxDocumentBytes caps the serialized character document. Zero means
// unlimited.
func (s *CharacterService) SetMaxDocumentBytes(n int) {
	s.maxDocumentBytes = n
}

// ApplyPartialUpdate sets one top-level key of a character's free-form
// document, creating the character if (name, game) is unknown, and returns
// the character's UUID. Sibling keys are untouched; a prior value at the
// same key is replaced.
//
// The read, merge and write happen in one guarded region, so no other
// caller observes an interleaved partial state.
func (s *CharacterService) ApplyPartialUpdate(ctx context.Context, name, game, fieldKey string, fieldValue json.RawMessage) (string, error) {
	var characterUUID string

	err := s.serializer.Do(func() error {
		existing, err := s.repo.GetCharacter(ctx, name, game)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}

			// Create path: a fresh document with exactly the one key.
			data, err := s.marshalDocument(map[string]json.RawMessage{fieldKey: fieldValue})
			if err != nil {
				return err
			}
			characterUUID, err = s.repo.InsertCharacter(ctx, name, game, data)
			return err
		}

		// Update path: absent data is an empty document.
		doc := make(map[string]json.RawMessage)
		if len(existing.Data) > 0 {
			if err := json.Unmarshal(existing.Data, &doc); err != nil {
				return fmt.Errorf("%w: character %q in game %q: %v", ErrCorruptPayload, name, game, err)
			}
		}
		doc[fieldKey] = fieldValue

		data, err := s.marshalDocument(doc)
		if err != nil {
			return err
		}
		if _, err := s.repo.UpdateCharacterData(ctx, name, game, data); err != nil {
			return err
		}

		// The step-1 read already carried the identity; no second lookup.
		characterUUID = existing.UUID
		return nil
	})
	if err != nil {
		return "", err
	}

	s.invalidate(ctx, name, game)
	return characterUUID, nil
}

func (s *CharacterService) marshalDocument(doc map[string]json.RawMessage) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize character document: %w", err)
	}
	if s.maxDocumentBytes > 0 && len(data) > s.maxDocumentBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds cap of %d", ErrDocumentTooLarge, len(data), s.maxDocumentBytes)
	}
	return data, nil
}

// GetCharacter fetches a character, consulting the cache first.
func (s *CharacterService) GetCharacter(ctx context.Context, name, game string) (*model.Character, error) {
	key := cache.CharacterKey(game, name)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key); err == nil {
			var c model.Character
			if err := json.Unmarshal(cached, &c); err == nil {
				return &c, nil
			}
			// Undecodable entries are dropped and re-read from the store.
			_ = s.cache.Delete(ctx, key)
		}
	}

	var c *model.Character
	err := s.serializer.Do(func() error {
		var err error
		c, err = s.repo.GetCharacter(ctx, name, game)
		if err != nil {
			return err
		}

		// Populate while still holding the serializer: a concurrent write
		// cannot land between this read and the cache set, so a row cached
		// here is never older than what a later invalidation removed.
		if s.cache != nil {
			if encoded, err := json.Marshal(c); err == nil {
				if err := s.cache.Set(ctx, key, encoded, s.cacheTTL); err != nil {
					log.Printf("[CharacterService] Cache set failed for %s: %v", key, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCharacter removes a character; ownership rows cascade.
func (s *CharacterService) DeleteCharacter(ctx context.Context, name, game string) (int64, error) {
	var affected int64
	err := s.serializer.Do(func() error {
		var err error
		affected, err = s.repo.DeleteCharacter(ctx, name, game)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, name, game)
	return affected, nil
}

// CreateObject registers a new object definition.
func (s *CharacterService) CreateObject(ctx context.Context, name, objType string, properties json.RawMessage) (int64, error) {
	var id int64
	err := s.serializer.Do(func() error {
		var err error
		id, err = s.repo.InsertObject(ctx, name, objType, properties)
		return err
	})
	return id, err
}

// GetObject fetches an object definition.
func (s *CharacterService) GetObject(ctx context.Context, id int64) (*model.Object, error) {
	var o *model.Object
	err := s.serializer.Do(func() error {
		var err error
		o, err = s.repo.GetObject(ctx, id)
		return err
	})
	return o, err
}

// UpdateObjectProperties replaces an object's properties document.
func (s *CharacterService) UpdateObjectProperties(ctx context.Context, id int64, properties json.RawMessage) (int64, error) {
	var affected int64
	err := s.serializer.Do(func() error {
		var err error
		affected, err = s.repo.UpdateObjectProperties(ctx, id, properties)
		return err
	})
	return affected, err
}

// DeleteObject removes an object definition; ownership rows cascade.
func (s *CharacterService) DeleteObject(ctx context.Context, id int64) (int64, error) {
	var affected int64
	err := s.serializer.Do(func() error {
		var err error
		affected, err = s.repo.DeleteObject(ctx, id)
		return err
	})
	return affected, err
}

// GrantObject associates an object with a character.
func (s *CharacterService) GrantObject(ctx context.Context, game, characterName string, objectID, quantity int64) (int64, error) {
	if quantity <= 0 {
		quantity = 1
	}
	var id int64
	err := s.serializer.Do(func() error {
		var err error
		id, err = s.repo.AddCharacterObject(ctx, game, characterName, objectID, quantity)
		return err
	})
	return id, err
}

// RevokeObject removes an association between a character and an object.
func (s *CharacterService) RevokeObject(ctx context.Context, game, characterName string, objectID int64) (int64, error) {
	var affected int64
	err := s.serializer.Do(func() error {
		var err error
		affected, err = s.repo.RemoveCharacterObject(ctx, game, characterName, objectID)
		return err
	})
	return affected, err
}

// SetObjectQuantity updates the quantity on an association.
func (s *CharacterService) SetObjectQuantity(ctx context.Context, game, characterName string, objectID, quantity int64) (int64, error) {
	var affected int64
	err := s.serializer.Do(func() error {
		var err error
		affected, err = s.repo.SetCharacterObjectQuantity(ctx, game, characterName, objectID, quantity)
		return err
	})
	return affected, err
}

// ListOwnedObjects returns the character's owned objects in insertion order.
func (s *CharacterService) ListOwnedObjects(ctx context.Context, game, characterName string) ([]model.OwnedObject, error) {
	var owned []model.OwnedObject
	err := s.serializer.Do(func() error {
		var err error
		owned, err = s.repo.ListCharacterObjects(ctx, game, characterName)
		return err
	})
	return owned, err
}

// Stats returns store statistics for the admin endpoint.
func (s *CharacterService) Stats(ctx context.Context) (map[string]interface{}, error) {
	var stats map[string]interface{}
	err := s.serializer.Do(func() error {
		var err error
		stats, err = s.repo.Stats(ctx)
		return err
	})
	return stats, err
}

func (s *CharacterService) invalidate(ctx context.Context, name, game string) {
	if s.cache == nil {
		return
	}
	key := cache.CharacterKey(game, name)
	if err := s.cache.Delete(ctx, key); err != nil {
		log.Printf("[CharacterService] Cache invalidation failed for %s: %v", key, err)
	}
}
