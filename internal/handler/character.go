package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"sheetsync-api/internal/model"
	"sheetsync-api/internal/service"
	"sheetsync-api/pkg/apierror"
	"sheetsync-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// CharacterHandler handles character-related HTTP requests.
type CharacterHandler struct {
	characterService *service.CharacterService
}

// NewCharacterHandler creates a new character handler.
func NewCharacterHandler(characterService *service.CharacterService) *CharacterHandler {
	return &CharacterHandler{
		characterService: characterService,
	}
}

// UpdateControls handles POST /api/character/controls, the endpoint the
// virtual-tabletop client pushes to. The controls list replaces the
// "controls" key of the character's document; the character is created on
// first contact.
func (h *CharacterHandler) UpdateControls(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateControlsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON body"))
		return
	}
	defer r.Body.Close()

	if err := service.ValidateUpdateControlsRequest(&req); err != nil {
		response.Error(w, err)
		return
	}

	controls := req.Controls
	if controls == nil {
		controls = []model.ControlItem{}
	}
	value, err := json.Marshal(controls)
	if err != nil {
		response.Error(w, apierror.InternalError("failed to encode controls"))
		return
	}

	characterUUID, err := h.characterService.ApplyPartialUpdate(r.Context(), req.CharacterName, req.Game, "controls", value)
	if err != nil {
		response.Error(w, toAPIError(err))
		return
	}

	response.Flat(w, http.StatusOK, map[string]interface{}{
		"character_uuid": characterUUID,
		"message":        "Controls updated successfully",
	})
}

// GetCharacter handles GET /api/v1/characters/{game}/{name}
func (h *CharacterHandler) GetCharacter(w http.ResponseWriter, r *http.Request) {
	game := chi.URLParam(r, "game")
	name := chi.URLParam(r, "name")

	c, err := h.characterService.GetCharacter(r.Context(), name, game)
	if err != nil {
		response.Error(w, toAPIError(err))
		return
	}
	response.OK(w, c)
}

// DeleteCharacter handles DELETE /api/v1/characters/{game}/{name}
func (h *CharacterHandler) DeleteCharacter(w http.ResponseWriter, r *http.Request) {
	game := chi.URLParam(r, "game")
	name := chi.URLParam(r, "name")

	affected, err := h.characterService.DeleteCharacter(r.Context(), name, game)
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

// grantRequest is the body for granting an object to a character.
type grantRequest struct {
	ObjectID int64 `json:"object_id"`
	Quantity int64 `json:"quantity"`
}

// GrantObject handles POST /api/v1/characters/{game}/{name}/objects
func (h *CharacterHandler) GrantObject(w http.ResponseWriter, r *http.Request) {
	game := chi.URLParam(r, "game")
	name := chi.URLParam(r, "name")

	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON body"))
		return
	}
	defer r.Body.Close()

	id, err := h.characterService.GrantObject(r.Context(), game, name, req.ObjectID, req.Quantity)
	if err != nil {
		response.Error(w, toAPIError(err))
		return
	}
	response.Created(w, map[string]interface{}{"association_id": id})
}

// ListObjects handles GET /api/v1/characters/{game}/{name}/objects
func (h *CharacterHandler) ListObjects(w http.ResponseWriter, r *http.Request) {
	game := chi.URLParam(r, "game")
	name := chi.URLParam(r, "name")

	owned, err := h.characterService.ListOwnedObjects(r.Context(), game, name)
	if err != nil {
		response.Error(w, toAPIError(err))
		return
	}
	response.OK(w, owned)
}

// quantityRequest is the body for updating an owned object's quantity.
type quantityRequest struct {
	Quantity int64 `json:"quantity"`
}

// SetObjectQuantity handles PUT /api/v1/characters/{game}/{name}/objects/{object_id}
func (h *CharacterHandler) SetObjectQuantity(w http.ResponseWriter, r *http.Request) {
	game := chi.URLParam(r, "game")
	name := chi.URLParam(r, "name")
	objectID, err := strconv.ParseInt(chi.URLParam(r, "object_id"), 10, 64)
	if err != nil {
		response.Error(w, apierror.BadRequest("object_id must be an integer"))
		return
	}

	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON body"))
		return
	}
	defer r.Body.Close()

	affected, err := h.characterService.SetObjectQuantity(r.Context(), game, name, objectID, req.Quantity)
	if err != nil {
		response.Error(w, toAPIError(err))
		return
	}
	if affected == 0 {
		response.Error(w, apierror.NotFound(""))
		return
	}
	response.OK(w, map[string]interface{}{"object_id": objectID, "quantity": req.Quantity})
}

// RevokeObject handles DELETE /api/v1/characters/{game}/{name}/objects/{object_id}
func (h *CharacterHandler) RevokeObject(w http.ResponseWriter, r *http.Request) {
	game := chi.URLParam(r, "game")
	name := chi.URLParam(r, "name")
	objectID, err := strconv.ParseInt(chi.URLParam(r, "object_id"), 10, 64)
	if err != nil {
		response.Error(w, apierror.BadRequest("object_id must be an integer"))
		return
	}

	affected, err := h.characterService.RevokeObject(r.Context(), game, name, objectID)
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
