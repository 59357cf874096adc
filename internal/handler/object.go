package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"sheetsync-api/internal/service"
	"sheetsync-api/pkg/apierror"
	"sheetsync-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// ObjectHandler handles object-definition HTTP requests.
type ObjectHandler struct {
	characterService *service.CharacterService
}

// NewObjectHandler creates a new object handler.
func NewObjectHandler(characterService *service.CharacterService) *ObjectHandler {
	return &ObjectHandler{
		characterService: characterService,
	}
}

// createObjectRequest is the body for registering an object definition.
type createObjectRequest struct {
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Properties json.RawMessage `json:"properties,omitempty"`
}

// CreateObject handles POST /api/v1/objects
func (h *ObjectHandler) CreateObject(w http.ResponseWriter, r *http.Request) {
	var req createObjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON body"))
		return
	}
	defer r.Body.Close()

	if strings.TrimSpace(req.Name) == "" {
		response.Error(w, apierror.ValidationError("Object name cannot be empty"))
		return
	}
	if strings.TrimSpace(req.Type) == "" {
		response.Error(w, apierror.ValidationError("Object type cannot be empty"))
		return
	}

	id, err := h.characterService.CreateObject(r.Context(), req.Name, req.Type, req.Properties)
	if err != nil {
		response.Error(w, toAPIError(err))
		return
	}
	response.Created(w, map[string]interface{}{"id": id})
}

// GetObject handles GET /api/v1/objects/{id}
func (h *ObjectHandler) GetObject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.Error(w, apierror.BadRequest("id must be an integer"))
		return
	}

	o, err := h.characterService.GetObject(r.Context(), id)
	if err != nil {
		response.Error(w, toAPIError(err))
		return
	}
	response.OK(w, o)
}

// updateObjectRequest is the body for replacing an object's properties.
type updateObjectRequest struct {
	Properties json.RawMessage `json:"properties"`
}

// UpdateObject handles PUT /api/v1/objects/{id}
func (h *ObjectHandler) UpdateObject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.Error(w, apierror.BadRequest("id must be an integer"))
		return
	}

	var req updateObjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON body"))
		return
	}
	defer r.Body.Close()

	affected, err := h.characterService.UpdateObjectProperties(r.Context(), id, req.Properties)
	if err != nil {
		response.Error(w, toAPIError(err))
		return
	}
	if affected == 0 {
		response.Error(w, apierror.NotFound(""))
		return
	}
	response.OK(w, map[string]interface{}{"id": id})
}

// DeleteObject handles DELETE /api/v1/objects/{id}
func (h *ObjectHandler) DeleteObject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.Error(w, apierror.BadRequest("id must be an integer"))
		return
	}

	affected, err := h.characterService.DeleteObject(r.Context(), id)
	if err != nil {
		response.Error(w, toAPIError(err))
		return
	}
	if affected == 0 {
		response.Error(w, apierror.NotFound(""))
		return
	}
	response.NoContent(w)
}
