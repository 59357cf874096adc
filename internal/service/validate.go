package service

import (
	"strings"

	"sheetsync-api/internal/model"
	"sheetsync-api/pkg/apierror"
)

// Validation bounds for inbound update requests.
const (
	MaxNameLength        = 100
	MaxControls          = 100
	MaxControlNameLength = 200
	MaxControlInfoLength = 1000
)

// ValidateUpdateControlsRequest checks the shape and bounds of an inbound
// controls update. Pure: no I/O, no storage access. Fail-fast: the first
// violation is returned and nothing else is inspected.
func ValidateUpdateControlsRequest(req *model.UpdateControlsRequest) *apierror.Error {
	if strings.TrimSpace(req.CharacterName) == "" {
		return apierror.ValidationError("Character name cannot be empty")
	}
	if len(req.CharacterName) > MaxNameLength {
		return apierror.ValidationError("Character name exceeds maximum length")
	}
	if strings.TrimSpace(req.Game) == "" {
		return apierror.ValidationError("Game name cannot be empty")
	}
	if len(req.Game) > MaxNameLength {
		return apierror.ValidationError("Game name exceeds maximum length")
	}
	if len(req.Controls) > MaxControls {
		return apierror.ValidationError("Too many controls")
	}
	for _, control := range req.Controls {
		if strings.TrimSpace(control.Name) == "" {
			return apierror.ValidationError("Control name cannot be empty")
		}
		if len(control.Name) > MaxControlNameLength {
			return apierror.ValidationError("Control name exceeds maximum length")
		}
		if strings.TrimSpace(control.Type) == "" {
			return apierror.ValidationError("Control type cannot be empty")
		}
		if len(control.Info) > MaxControlInfoLength {
			return apierror.ValidationError("Control info exceeds maximum length")
		}
	}
	return nil
}
