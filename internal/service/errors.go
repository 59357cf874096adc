package service

import "errors"

var (
	// ErrCorruptPayload indicates a stored character document that is not
	// valid JSON. The merge aborts and the row is left untouched; this is
	// a data-integrity failure, distinct from bad input.
	ErrCorruptPayload = errors.New("stored character data is not valid JSON")

	// ErrDocumentTooLarge indicates the merged document would exceed the
	// configured size cap.
	ErrDocumentTooLarge = errors.New("character document exceeds maximum size")
)
