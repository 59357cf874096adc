package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"sheetsync-api/internal/model"
	"sheetsync-api/pkg/uid"

	"github.com/go-sql-driver/mysql"
)

// MySQL error numbers for constraint violations.
const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrNoReferencedRow = 1452
)

// MySQLCharacterRepository implements CharacterRepository using MySQL,
// for deployments where the sheet store is shared with other tooling.
// Semantics match the SQLite backend; the serializer still guards access.
type MySQLCharacterRepository struct {
	db *sql.DB
}

// NewMySQLCharacterRepository opens a MySQL-backed character store.
// dsn format: "user:password@tcp(host:port)/dbname?parseTime=true"
func NewMySQLCharacterRepository(dsn string) (*MySQLCharacterRepository, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open MySQL: %v", ErrStorageUnavailable, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to ping MySQL: %v", ErrStorageUnavailable, err)
	}

	if err := createMySQLTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to create tables: %v", ErrStorageUnavailable, err)
	}

	log.Printf("[MySQLCharacterRepository] Initialized")
	return &MySQLCharacterRepository{db: db}, nil
}

func createMySQLTables(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS characters (
			uuid VARCHAR(36) NOT NULL UNIQUE,
			name VARCHAR(100) NOT NULL,
			game VARCHAR(100) NOT NULL,
			data JSON,
			PRIMARY KEY (name, game)
		)`,
		`CREATE TABLE IF NOT EXISTS objects (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(200) NOT NULL,
			type VARCHAR(100) NOT NULL,
			properties JSON
		)`,
		`CREATE TABLE IF NOT EXISTS character_objects (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			game VARCHAR(100) NOT NULL,
			character_name VARCHAR(100) NOT NULL,
			object_id BIGINT NOT NULL,
			quantity BIGINT NOT NULL DEFAULT 1,
			FOREIGN KEY (character_name, game) REFERENCES characters(name, game) ON DELETE CASCADE,
			FOREIGN KEY (object_id) REFERENCES objects(id) ON DELETE CASCADE
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertCharacter creates a character with a fresh UUID.
func (r *MySQLCharacterRepository) InsertCharacter(ctx context.Context, name, game string, data []byte) (string, error) {
	characterUUID := uid.New()

	query := `INSERT INTO characters (uuid, name, game, data) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, characterUUID, name, game, nullableText(data))
	if err != nil {
		if isMySQLError(err, mysqlErrDuplicateEntry) {
			return "", fmt.Errorf("%w: character %q already exists in game %q", ErrDuplicateKey, name, game)
		}
		return "", fmt.Errorf("failed to insert character: %w", err)
	}
	return characterUUID, nil
}

// GetCharacter fetches a character by (name, game).
func (r *MySQLCharacterRepository) GetCharacter(ctx context.Context, name, game string) (*model.Character, error) {
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

// UpdateCharacterData replaces the free-form document.
func (r *MySQLCharacterRepository) UpdateCharacterData(ctx context.Context, name, game string, data []byte) (int64, error) {
	query := `UPDATE characters SET data = ? WHERE name = ? AND game = ?`
	result, err := r.db.ExecContext(ctx, query, nullableText(data), name, game)
	if err != nil {
		return 0, fmt.Errorf("failed to update character data: %w", err)
	}
	return result.RowsAffected()
}

// DeleteCharacter removes a character; ownership rows cascade.
func (r *MySQLCharacterRepository) DeleteCharacter(ctx context.Context, name, game string) (int64, error) {
	query := `DELETE FROM characters WHERE name = ? AND game = ?`
	result, err := r.db.ExecContext(ctx, query, name, game)
	if err != nil {
		return 0, fmt.Errorf("failed to delete character: %w", err)
	}
	return result.RowsAffected()
}

// InsertObject creates an object definition.
func (r *MySQLCharacterRepository) InsertObject(ctx context.Context, name, objType string, properties []byte) (int64, error) {
	query := `INSERT INTO objects (name, type, properties) VALUES (?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query, name, objType, nullableText(properties))
	if err != nil {
		return 0, fmt.Errorf("failed to insert object: %w", err)
	}
	return result.LastInsertId()
}

// GetObject fetches an object definition by ID.
func (r *MySQLCharacterRepository) GetObject(ctx context.Context, id int64) (*model.Object, error) {
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
func (r *MySQLCharacterRepository) UpdateObjectProperties(ctx context.Context, id int64, properties []byte) (int64, error) {
	query := `UPDATE objects SET properties = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, nullableText(properties), id)
	if err != nil {
		return 0, fmt.Errorf("failed to update object properties: %w", err)
	}
	return result.RowsAffected()
}

// DeleteObject removes an object definition; ownership rows cascade.
func (r *MySQLCharacterRepository) DeleteObject(ctx context.Context, id int64) (int64, error) {
	query := `DELETE FROM objects WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete object: %w", err)
	}
	return result.RowsAffected()
}

// AddCharacterObject grants an object to a character.
func (r *MySQLCharacterRepository) AddCharacterObject(ctx context.Context, game, characterName string, objectID, quantity int64) (int64, error) {
	query := `INSERT INTO character_objects (game, character_name, object_id, quantity) VALUES (?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query, game, characterName, objectID, quantity)
	if err != nil {
		if isMySQLError(err, mysqlErrNoReferencedRow) {
			return 0, fmt.Errorf("%w: character %q in game %q or object %d does not exist", ErrForeignKey, characterName, game, objectID)
		}
		return 0, fmt.Errorf("failed to add character object: %w", err)
	}
	return result.LastInsertId()
}

// RemoveCharacterObject revokes an object from a character.
func (r *MySQLCharacterRepository) RemoveCharacterObject(ctx context.Context, game, characterName string, objectID int64) (int64, error) {
	query := `DELETE FROM character_objects WHERE game = ? AND character_name = ? AND object_id = ?`
	result, err := r.db.ExecContext(ctx, query, game, characterName, objectID)
	if err != nil {
		return 0, fmt.Errorf("failed to remove character object: %w", err)
	}
	return result.RowsAffected()
}

// SetCharacterObjectQuantity updates the quantity on an association.
func (r *MySQLCharacterRepository) SetCharacterObjectQuantity(ctx context.Context, game, characterName string, objectID, quantity int64) (int64, error) {
	query := `UPDATE character_objects SET quantity = ? WHERE game = ? AND character_name = ? AND object_id = ?`
	result, err := r.db.ExecContext(ctx, query, quantity, game, characterName, objectID)
	if err != nil {
		return 0, fmt.Errorf("failed to set character object quantity: %w", err)
	}
	return result.RowsAffected()
}

// ListCharacterObjects returns the character's owned objects in insertion order.
func (r *MySQLCharacterRepository) ListCharacterObjects(ctx context.Context, game, characterName string) ([]model.OwnedObject, error) {
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
func (r *MySQLCharacterRepository) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	for _, table := range []string{"characters", "objects", "character_objects"} {
		var count int64
		if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			return nil, err
		}
		stats[table] = count
	}
	return stats, nil
}

// Close closes the database connection.
func (r *MySQLCharacterRepository) Close() error {
	return r.db.Close()
}

func isMySQLError(err error, number uint16) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == number
}

// Ensure MySQLCharacterRepository implements CharacterRepository
var _ CharacterRepository = (*MySQLCharacterRepository)(nil)
