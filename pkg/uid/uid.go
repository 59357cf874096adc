package uid

import "github.com/google/uuid"

// New generates the identity for a newly created record.
func New() string {
	return uuid.New().String()
}

// IsValid reports whether id parses as a UUID.
func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
