package model

import "encoding/json"

// Character represents a character sheet owned by a game (campaign).
// The free-form Data document is caller-defined; the store only parses it
// at the top level when merging partial updates.
type Character struct {
	UUID string          `json:"uuid"`
	Name string          `json:"name"`
	Game string          `json:"game"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Object represents a reusable template definition (item, building, ...)
// independent of any character until granted.
type Object struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Properties json.RawMessage `json:"properties,omitempty"`
}

// OwnedObject is one row of a character's ownership listing: the object
// definition joined with the quantity the character holds.
type OwnedObject struct {
	ObjectID   int64           `json:"object_id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Quantity   int64           `json:"quantity"`
	Properties json.RawMessage `json:"properties,omitempty"`
}
