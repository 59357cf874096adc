package repository

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetsync-api/pkg/uid"
)

func newTestRepo(t *testing.T) *SQLiteCharacterRepository {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	repo, err := NewSQLiteCharacterRepository(dbPath)
	require.NoError(t, err, "failed to open test store")

	t.Cleanup(func() {
		_ = repo.Close()
	})

	return repo
}

func TestInitializeIdempotent(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "reopen.db")

	repo, err := NewSQLiteCharacterRepository(dbPath)
	require.NoError(t, err)

	characterUUID, err := repo.InsertCharacter(ctx, "Hero", "Game1", []byte(`{"level":1}`))
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	// Opening an existing store must not re-create tables or error.
	reopened, err := NewSQLiteCharacterRepository(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	c, err := reopened.GetCharacter(ctx, "Hero", "Game1")
	require.NoError(t, err)
	assert.Equal(t, characterUUID, c.UUID)
	assert.JSONEq(t, `{"level":1}`, string(c.Data))
}

func TestInsertCharacter_DuplicateKey(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	first, err := repo.InsertCharacter(ctx, "Hero", "Game1", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.True(t, uid.IsValid(first))

	_, err = repo.InsertCharacter(ctx, "Hero", "Game1", []byte(`{"b":2}`))
	require.ErrorIs(t, err, ErrDuplicateKey)

	// The original row is unchanged.
	c, err := repo.GetCharacter(ctx, "Hero", "Game1")
	require.NoError(t, err)
	assert.Equal(t, first, c.UUID)
	assert.JSONEq(t, `{"a":1}`, string(c.Data))

	// The same name in another game is a different character.
	second, err := repo.InsertCharacter(ctx, "Hero", "Game2", nil)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestGetCharacter_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.GetCharacter(ctx, "Nobody", "Game1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetCharacter_NilDataWhenAbsent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.InsertCharacter(ctx, "Hero", "Game1", nil)
	require.NoError(t, err)

	c, err := repo.GetCharacter(ctx, "Hero", "Game1")
	require.NoError(t, err)
	assert.Nil(t, c.Data)
}

func TestUpdateCharacterData_AbsentAffectsZeroRows(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	affected, err := repo.UpdateCharacterData(ctx, "Nobody", "Game1", []byte(`{}`))
	require.NoError(t, err, "update on absence must not error")
	assert.Equal(t, int64(0), affected)
}

func TestUpdateCharacterData_ReplacesDocument(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.InsertCharacter(ctx, "Hero", "Game1", []byte(`{"a":1}`))
	require.NoError(t, err)

	affected, err := repo.UpdateCharacterData(ctx, "Hero", "Game1", []byte(`{"b":2}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	c, err := repo.GetCharacter(ctx, "Hero", "Game1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":2}`, string(c.Data))
}

func TestObjectCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	id, err := repo.InsertObject(ctx, "Tower", "building", []byte(`{"height":30}`))
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	o, err := repo.GetObject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Tower", o.Name)
	assert.Equal(t, "building", o.Type)
	assert.JSONEq(t, `{"height":30}`, string(o.Properties))

	affected, err := repo.UpdateObjectProperties(ctx, id, []byte(`{"height":45}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = repo.DeleteObject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	_, err = repo.GetObject(ctx, id)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAddCharacterObject_ForeignKeyViolation(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.InsertCharacter(ctx, "Hero", "Game1", nil)
	require.NoError(t, err)
	objectID, err := repo.InsertObject(ctx, "Tower", "building", nil)
	require.NoError(t, err)

	// Missing object.
	_, err = repo.AddCharacterObject(ctx, "Game1", "Hero", objectID+999, 1)
	require.ErrorIs(t, err, ErrForeignKey)

	// Missing character.
	_, err = repo.AddCharacterObject(ctx, "Game1", "Nobody", objectID, 1)
	require.ErrorIs(t, err, ErrForeignKey)

	// Character exists but in another game.
	_, err = repo.AddCharacterObject(ctx, "Game2", "Hero", objectID, 1)
	require.ErrorIs(t, err, ErrForeignKey)
}

func TestForeignKeysSurviveConnectionRecycling(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.InsertCharacter(ctx, "Hero", "Game1", nil)
	require.NoError(t, err)
	objectID, err := repo.InsertObject(ctx, "Tower", "building", nil)
	require.NoError(t, err)

	_, err = repo.AddCharacterObject(ctx, "Game1", "Nobody", objectID, 1)
	require.ErrorIs(t, err, ErrForeignKey)

	// Expire the pooled connection so the next operation runs on a
	// freshly opened one.
	repo.db.SetConnMaxLifetime(time.Nanosecond)
	time.Sleep(10 * time.Millisecond)

	var enabled int64
	require.NoError(t, repo.db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled))
	assert.Equal(t, int64(1), enabled, "foreign keys off on a recycled connection")

	_, err = repo.AddCharacterObject(ctx, "Game1", "Nobody", objectID, 1)
	require.ErrorIs(t, err, ErrForeignKey, "orphan ownership row accepted after recycling")

	_, err = repo.AddCharacterObject(ctx, "Game1", "Hero", objectID, 1)
	require.NoError(t, err)

	// Cascades also depend on enforcement staying on.
	_, err = repo.DeleteCharacter(ctx, "Hero", "Game1")
	require.NoError(t, err)
	owned, err := repo.ListCharacterObjects(ctx, "Game1", "Hero")
	require.NoError(t, err)
	assert.Empty(t, owned)
}

func TestListCharacterObjects_InsertionOrder(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.InsertCharacter(ctx, "Hero", "Game1", nil)
	require.NoError(t, err)

	names := []string{"Tower", "Barracks", "Wall"}
	for _, name := range names {
		objectID, err := repo.InsertObject(ctx, name, "building", nil)
		require.NoError(t, err)
		_, err = repo.AddCharacterObject(ctx, "Game1", "Hero", objectID, 2)
		require.NoError(t, err)
	}

	owned, err := repo.ListCharacterObjects(ctx, "Game1", "Hero")
	require.NoError(t, err)
	require.Len(t, owned, 3)
	for i, oo := range owned {
		assert.Equal(t, names[i], oo.Name)
		assert.Equal(t, int64(2), oo.Quantity)
	}
}

func TestSetCharacterObjectQuantity(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.InsertCharacter(ctx, "Hero", "Game1", nil)
	require.NoError(t, err)
	objectID, err := repo.InsertObject(ctx, "Tower", "building", nil)
	require.NoError(t, err)
	_, err = repo.AddCharacterObject(ctx, "Game1", "Hero", objectID, 1)
	require.NoError(t, err)

	affected, err := repo.SetCharacterObjectQuantity(ctx, "Game1", "Hero", objectID, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	owned, err := repo.ListCharacterObjects(ctx, "Game1", "Hero")
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, int64(7), owned[0].Quantity)

	affected, err = repo.SetCharacterObjectQuantity(ctx, "Game1", "Hero", objectID+1, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}

func TestDeleteCharacter_CascadesToOwnership(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.InsertCharacter(ctx, "Hero", "Game1", nil)
	require.NoError(t, err)
	objectID, err := repo.InsertObject(ctx, "Tower", "building", nil)
	require.NoError(t, err)
	_, err = repo.AddCharacterObject(ctx, "Game1", "Hero", objectID, 1)
	require.NoError(t, err)

	affected, err := repo.DeleteCharacter(ctx, "Hero", "Game1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	owned, err := repo.ListCharacterObjects(ctx, "Game1", "Hero")
	require.NoError(t, err)
	assert.Empty(t, owned)

	// The object definition itself survives.
	_, err = repo.GetObject(ctx, objectID)
	require.NoError(t, err)
}

func TestDeleteObject_CascadesToOwnership(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.InsertCharacter(ctx, "Hero", "Game1", nil)
	require.NoError(t, err)
	objectID, err := repo.InsertObject(ctx, "Tower", "building", nil)
	require.NoError(t, err)
	_, err = repo.AddCharacterObject(ctx, "Game1", "Hero", objectID, 1)
	require.NoError(t, err)

	_, err = repo.DeleteObject(ctx, objectID)
	require.NoError(t, err)

	owned, err := repo.ListCharacterObjects(ctx, "Game1", "Hero")
	require.NoError(t, err)
	assert.Empty(t, owned)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.InsertCharacter(ctx, "Hero", "Game1", nil)
	require.NoError(t, err)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats["characters"])
	assert.Equal(t, int64(0), stats["objects"])
}

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()

	repo, err := NewSQLiteCharacterRepository(":memory:")
	require.NoError(t, err)
	defer repo.Close()

	_, err = repo.InsertCharacter(ctx, "Hero", "Game1", mustJSON(t, map[string]int{"hp": 10}))
	require.NoError(t, err)

	c, err := repo.GetCharacter(ctx, "Hero", "Game1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"hp":10}`, string(c.Data))
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
