package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"sheetsync-api/internal/model"
	"sheetsync-api/pkg/uid"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteCharacterRepository implements CharacterRepository using SQLite.
// The connection pool is pinned to a single connection; exclusive access
// across logical operations is granted by the service-level serializer.
type SQLiteCharacterRepository struct {
	db   *sql.DB
	path string
}

// schema materializes the three relations. character_objects references
// characters by (character_name, game) rather than uuid because that is the
// identity the tabletop client speaks; both parents cascade on delete.
const schema = `
CREATE TABLE IF NOT EXISTS characters (
	uuid TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	game TEXT NOT NULL,
	data TEXT,
	PRIMARY KEY (name, game)
);

CREATE TABLE IF NOT EXISTS objects (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	properties TEXT
);

CREATE TABLE IF NOT EXISTS character_objects (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	game TEXT NOT NULL,
	character_name TEXT NOT NULL,
	object_id INTEGER NOT NULL,
	quantity INTEGER NOT NULL DEFAULT 1,
	FOREIGN KEY (character_name, game) REFERENCES characters(name, game) ON DELETE CASCADE,
	FOREIGN KEY (object_id) REFERENCES objects(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_character_objects_owner ON character_objects(character_name, game);
`

// NewSQLiteCharacterRepository creates or opens the character store.
// dbPath is a file path, or ":memory:" for an ephemeral store.
func NewSQLiteCharacterRepository(dbPath string) (*SQLiteCharacterRepository, error) {
	existed := dbPath != ":memory:" && fileExists(dbPath)

	// modernc's _pragma parameters run on every connection the pool opens,
	// so foreign keys stay enforced even after a connection is recycled.
	dsn := dbPath + "?_pragma=foreign_keys(1)"
	if dbPath != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open SQLite at %s: %v", ErrStorageUnavailable, dbPath, err)
	}

	// One logical connection: SQLite supports a single writer, and the
	// merge-upsert relies on every operation seeing the same handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to create tables: %v", ErrStorageUnavailable, err)
	}

	if existed {
		log.Printf("[SQLiteCharacterRepository] Opened existing store at %s", dbPath)
	} else {
		log.Printf("[SQLiteCharacterRepository] Created new store at %s", dbPath)
	}
	return &SQLiteCharacterRepository{db: db, path: dbPath}, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// InsertCharacter creates a character with a fresh UUID.
func (r *SQLiteCharacterRepository) InsertCharacter(ctx context.Context, name, game string, data []byte) (string, error) {
	characterUUID := uid.New()

	query := `INSERT INTO characters (uuid, name, game, data) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, characterUUID, name, game, nullableText(data))
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return "", fmt.Errorf("%w: character %q already exists in game %q", ErrDuplicateKey, name, game)
		}
		return "", fmt.Errorf("failed to insert character: %w", err)
	}
	return characterUUID, nil
}

// GetCharacter fetches a character by (name, game).
func (r *SQLiteCharacterRepository) GetCharacter(ctx context.Context, name, game string) (*model.Character, error) {
	query := `SELECT uuid, name, game, data FROM characters WHERE name = ? AND game = ?`

	var c model.Character
	var data sql.NullString
	err := r.db.QueryRowContext(ctx, query, name, game).Scan(&c.UUID, &c.Name, &c.Game, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: character %q in game %q", ErrNotFound, name, game)
		}
		return nil, fmt.Errorf("failed to get character: %w", err)
	}
	if data.Valid {
		c.Data = []byte(data.String)
	}
	return &c, nil
}

// UpdateCharacterData replaces the free-form document. Absence is not an
// error; callers inspect the affected-row count.
func (r *SQLiteCharacterRepository) UpdateCharacterData(ctx context.Context, name, game string, data []byte) (int64, error) {
	query := `UPDATE characters SET data = ? WHERE name = ? AND game = ?`
	result, err := r.db.ExecContext(ctx, query, nullableText(data), name, game)
	if err != nil {
		return 0, fmt.Errorf("failed to update character data: %w", err)
	}
	return result.RowsAffected()
}

// DeleteCharacter removes a character; ownership rows cascade.
func (r *SQLiteCharacterRepository) DeleteCharacter(ctx context.Context, name, game string) (int64, error) {
	query := `DELETE FROM characters WHERE name = ? AND game = ?`
	result, err := r.db.ExecContext(ctx, query, name, game)
	if err != nil {
		return 0, fmt.Errorf("failed to delete character: %w", err)
	}
	return result.RowsAffected()
}

// InsertObject creates an object definition.
func (r *SQLiteCharacterRepository) InsertObject(ctx context.Context, name, objType string, properties []byte) (int64, error) {
	query := `INSERT INTO objects (name, type, properties) VALUES (?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query, name, objType, nullableText(properties))
	if err != nil {
		return 0, fmt.Errorf("failed to insert object: %w", err)
	}
	return result.LastInsertId()
}

// GetObject fetches an object definition by ID.
func (r *SQLiteCharacterRepository) GetObject(ctx context.Context, id int64) (*model.Object, error) {
	query := `SELECT id, name, type, properties FROM objects WHERE id = ?`

	var o model.Object
	var properties sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(&o.ID, &o.Name, &o.Type, &properties)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: object %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	if properties.Valid {
		o.Properties = []byte(properties.String)
	}
	return &o, nil
}

// UpdateObjectProperties replaces an object's properties document.
func (r *SQLiteCharacterRepository) UpdateObjectProperties(ctx context.Context, id int64, properties []byte) (int64, error) {
	query := `UPDATE objects SET properties = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, nullableText(properties), id)
	if err != nil {
		return 0, fmt.Errorf("failed to update object properties: %w", err)
	}
	return result.RowsAffected()
}

// DeleteObject removes an object definition; ownership rows cascade.
func (r *SQLiteCharacterRepository) DeleteObject(ctx context.Context, id int64) (int64, error) {
	query := `DELETE FROM objects WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete object: %w", err)
	}
	return result.RowsAffected()
}

// AddCharacterObject grants an object to a character.
func (r *SQLiteCharacterRepository) AddCharacterObject(ctx context.Context, game, characterName string, objectID, quantity int64) (int64, error) {
	query := `INSERT INTO character_objects (game, character_name, object_id, quantity) VALUES (?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query, game, characterName, objectID, quantity)
	if err != nil {
		if isSQLiteForeignKeyViolation(err) {
			return 0, fmt.Errorf("%w: character %q in game %q or object %d does not exist", ErrForeignKey, characterName, game, objectID)
		}
		return 0, fmt.Errorf("failed to add character object: %w", err)
	}
	return result.LastInsertId()
}

// RemoveCharacterObject revokes an object from a character.
func (r *SQLiteCharacterRepository) RemoveCharacterObject(ctx context.Context, game, characterName string, objectID int64) (int64, error) {
	query := `DELETE FROM character_objects WHERE game = ? AND character_name = ? AND object_id = ?`
	result, err := r.db.ExecContext(ctx, query, game, characterName, objectID)
	if err != nil {
		return 0, fmt.Errorf("failed to remove character object: %w", err)
	}
	return result.RowsAffected()
}

// SetCharacterObjectQuantity updates the quantity on an association.
func (r *SQLiteCharacterRepository) SetCharacterObjectQuantity(ctx context.Context, game, characterName string, objectID, quantity int64) (int64, error) {
	query := `UPDATE character_objects SET quantity = ? WHERE game = ? AND character_name = ? AND object_id = ?`
	result, err := r.db.ExecContext(ctx, query, quantity, game, characterName, objectID)
	if err != nil {
		return 0, fmt.Errorf("failed to set character object quantity: %w", err)
	}
	return result.RowsAffected()
}

// ListCharacterObjects returns the character's owned objects in insertion
// order (a snapshot: rows are fully drained before returning).
func (r *SQLiteCharacterRepository) ListCharacterObjects(ctx context.Context, game, characterName string) ([]model.OwnedObject, error) {
	query := `
		SELECT co.object_id, o.name, o.type, co.quantity, o.properties
		FROM character_objects co
		JOIN objects o ON o.id = co.object_id
		WHERE co.game = ? AND co.character_name = ?
		ORDER BY co.id`

	rows, err := r.db.QueryContext(ctx, query, game, characterName)
	if err != nil {
		return nil, fmt.Errorf("failed to list character objects: %w", err)
	}
	defer rows.Close()

	owned := []model.OwnedObject{}
	for rows.Next() {
		var oo model.OwnedObject
		var properties sql.NullString
		if err := rows.Scan(&oo.ObjectID, &oo.Name, &oo.Type, &oo.Quantity, &properties); err != nil {
			return nil, fmt.Errorf("failed to scan character object: %w", err)
		}
		if properties.Valid {
			oo.Properties = []byte(properties.String)
		}
		owned = append(owned, oo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list character objects: %w", err)
	}
	return owned, nil
}

// Stats returns statistics about the character store.
func (r *SQLiteCharacterRepository) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	for _, table := range []string{"characters", "objects", "character_objects"} {
		var count int64
		if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			return nil, err
		}
		stats[table] = count
	}

	// Database file size (approximate from page count)
	var pageCount, pageSize int64
	r.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	r.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
	stats["db_size_bytes"] = pageCount * pageSize
	stats["path"] = r.path

	return stats, nil
}

// Close closes the database connection.
func (r *SQLiteCharacterRepository) Close() error {
	return r.db.Close()
}

// nullableText stores empty documents as NULL rather than empty strings.
func nullableText(data []byte) interface{} {
	if len(data) == 0 {
		return nil
	}
	return string(data)
}

// modernc.org/sqlite surfaces constraint failures as formatted error
// strings; there is no exported error type to match against.
func isSQLiteUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isSQLiteForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// Ensure SQLiteCharacterRepository implements CharacterRepository
var _ CharacterRepository = (*SQLiteCharacterRepository)(nil)
