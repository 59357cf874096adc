package handler

import (
	"errors"

	"sheetsync-api/internal/repository"
	"sheetsync-api/internal/service"
	"sheetsync-api/pkg/apierror"
)

// toAPIError maps store and coordinator errors onto API errors. Already
// structured errors pass through; anything unrecognized becomes a 500.
func toAPIError(err error) *apierror.Error {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apierror.NotFound(err.Error())
	case errors.Is(err, repository.ErrDuplicateKey):
		return apierror.Conflict(err.Error())
	case errors.Is(err, repository.ErrForeignKey):
		return apierror.ForeignKeyViolation(err.Error())
	case errors.Is(err, repository.ErrStorageUnavailable):
		return apierror.ServiceUnavailable(err.Error())
	case errors.Is(err, service.ErrCorruptPayload):
		return apierror.CorruptPayload(err.Error())
	case errors.Is(err, service.ErrDocumentTooLarge):
		return apierror.ValidationError(err.Error())
	}
	return apierror.InternalError(err.Error())
}
