package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetsync-api/internal/handler"
	"sheetsync-api/internal/repository"
	"sheetsync-api/internal/router"
	"sheetsync-api/internal/service"
	"sheetsync-api/pkg/uid"
)

func newTestServer(t *testing.T) (http.Handler, *repository.SQLiteCharacterRepository) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	repo, err := repository.NewSQLiteCharacterRepository(dbPath)
	require.NoError(t, err, "failed to open test store")
	t.Cleanup(func() {
		_ = repo.Close()
	})

	svc := service.NewCharacterService(repo)
	require.NotNil(t, svc)

	r := router.New(router.Config{
		Handler: handler.New("test", func(ctx context.Context) error {
			_, err := svc.Stats(ctx)
			return err
		}),
		CharacterHandler: handler.NewCharacterHandler(svc),
		ObjectHandler:    handler.NewObjectHandler(svc),
		AdminHandler:     handler.NewAdminHandler(svc, "sqlite"),
	})
	return r, repo
}

func postJSON(t *testing.T, h http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	encoded, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(encoded))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestUpdateControls_CreatesCharacter(t *testing.T) {
	h, _ := newTestServer(t)

	rec := postJSON(t, h, "/api/character/controls", map[string]interface{}{
		"character_name": "Test Hero",
		"game":           "Test Campaign",
		"controls": []map[string]interface{}{
			{"num": 1, "name": "Test Building", "type": "building", "info": "A test building"},
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Controls updated successfully", body["message"])

	characterUUID, ok := body["character_uuid"].(string)
	require.True(t, ok)
	assert.True(t, uid.IsValid(characterUUID))
}

func TestUpdateControls_UpdateKeepsIdentity(t *testing.T) {
	h, repo := newTestServer(t)

	first := postJSON(t, h, "/api/character/controls", map[string]interface{}{
		"character_name": "Test Hero",
		"game":           "Test Campaign",
		"controls": []map[string]interface{}{
			{"num": 1, "name": "First Building", "type": "building", "info": "First version"},
		},
	})
	require.Equal(t, http.StatusOK, first.Code)
	firstUUID := decodeBody(t, first)["character_uuid"]

	second := postJSON(t, h, "/api/character/controls", map[string]interface{}{
		"character_name": "Test Hero",
		"game":           "Test Campaign",
		"controls": []map[string]interface{}{
			{"num": 1, "name": "Updated Building", "type": "building", "info": "Updated version"},
			{"num": 2, "name": "Second Building", "type": "building", "info": "New building"},
		},
	})
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, firstUUID, decodeBody(t, second)["character_uuid"])

	c, err := repo.GetCharacter(context.Background(), "Test Hero", "Test Campaign")
	require.NoError(t, err)

	var doc struct {
		Controls []map[string]interface{} `json:"controls"`
	}
	require.NoError(t, json.Unmarshal(c.Data, &doc))
	require.Len(t, doc.Controls, 2)
	assert.Equal(t, "Updated Building", doc.Controls[0]["name"])
}

func TestUpdateControls_ValidationRejectsBeforeStorage(t *testing.T) {
	h, repo := newTestServer(t)

	rec := postJSON(t, h, "/api/character/controls", map[string]interface{}{
		"character_name": "",
		"game":           "Test Campaign",
		"controls":       []map[string]interface{}{},
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "Character name cannot be empty")

	// No row appeared.
	_, err := repo.GetCharacter(context.Background(), "", "Test Campaign")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateControls_TooManyControls(t *testing.T) {
	h, _ := newTestServer(t)

	controls := make([]map[string]interface{}, 101)
	for i := range controls {
		controls[i] = map[string]interface{}{
			"num": i, "name": fmt.Sprintf("Control %d", i), "type": "building", "info": "Test",
		}
	}

	rec := postJSON(t, h, "/api/character/controls", map[string]interface{}{
		"character_name": "Test Hero",
		"game":           "Test Campaign",
		"controls":       controls,
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "Too many controls")
}

func TestReady_ReflectsStoreHealth(t *testing.T) {
	h, repo := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ready", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// With the store gone, readiness must flip to 503.
	require.NoError(t, repo.Close())

	req = httptest.NewRequest(http.MethodGet, "/api/v1/ready", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Ready  bool `json:"ready"`
			Checks []struct {
				Name   string `json:"name"`
				Status string `json:"status"`
			} `json:"checks"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.False(t, body.Data.Ready)
	require.Len(t, body.Data.Checks, 2)
	assert.Equal(t, "store", body.Data.Checks[1].Name)
	assert.Equal(t, "unavailable", body.Data.Checks[1].Status)
}

func TestUpdateControls_InvalidJSONBody(t *testing.T) {
	h, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/character/controls", bytes.NewReader([]byte(`{not json`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["success"])
}

func TestCharacterLifecycleOverHTTP(t *testing.T) {
	h, _ := newTestServer(t)

	rec := postJSON(t, h, "/api/character/controls", map[string]interface{}{
		"character_name": "Hero",
		"game":           "Game1",
		"controls":       []map[string]interface{}{},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Register an object and grant it.
	rec = postJSON(t, h, "/api/v1/objects", map[string]interface{}{
		"name": "Tower", "type": "building", "properties": map[string]int{"height": 30},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	objectID := decodeBody(t, rec)["data"].(map[string]interface{})["id"].(float64)

	rec = postJSON(t, h, "/api/v1/characters/Game1/Hero/objects", map[string]interface{}{
		"object_id": objectID, "quantity": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Listing shows the grant.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/characters/Game1/Hero/objects", nil)
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	require.Equal(t, http.StatusOK, rec2.Code)

	var listBody struct {
		Success bool `json:"success"`
		Data    []struct {
			Name     string `json:"name"`
			Quantity int64  `json:"quantity"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &listBody))
	require.Len(t, listBody.Data, 1)
	assert.Equal(t, "Tower", listBody.Data[0].Name)
	assert.Equal(t, int64(2), listBody.Data[0].Quantity)

	// Deleting the character cascades to the grant.
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/characters/Game1/Hero", nil)
	rec2 = httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	require.Equal(t, http.StatusNoContent, rec2.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/characters/Game1/Hero", nil)
	rec2 = httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	require.Equal(t, http.StatusNotFound, rec2.Code)
}

func TestGrantObject_ForeignKeyViolation(t *testing.T) {
	h, _ := newTestServer(t)

	rec := postJSON(t, h, "/api/v1/characters/Game1/Nobody/objects", map[string]interface{}{
		"object_id": 42, "quantity": 1,
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "FOREIGN_KEY_VIOLATION", body["code"])
}
