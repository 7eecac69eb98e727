package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store and Dismissals on a local SQLite database.
// Entities are kept as JSON documents and filtered with json_extract.
type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Every connection to ":memory:" is a distinct database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// List returns the JSON documents of entity matching q.
func (s *SQLiteStore) List(
	ctx context.Context,
	entity string,
	q Query,
) ([]json.RawMessage, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	conditions := []string{"entity = ?"}
	args := []interface{}{entity}

	for _, f := range q.Filters {
		path := jsonPath(f.Field)
		switch f.Op {
		case OpEq:
			conditions = append(conditions, path+" = ?")
			args = append(args, sqlValue(f.Values[0]))
		case OpFold:
			conditions = append(conditions, "lower("+path+") = lower(?)")
			args = append(args, f.Values[0])
		case OpIn:
			if len(f.Values) == 0 {
				conditions = append(conditions, "0")
				continue
			}
			marks := strings.TrimSuffix(strings.Repeat("?, ", len(f.Values)), ", ")
			conditions = append(conditions, fmt.Sprintf("%s IN (%s)", path, marks))
			for _, v := range f.Values {
				args = append(args, sqlValue(v))
			}
		}
	}

	query := "SELECT data FROM entities WHERE " + strings.Join(conditions, " AND ")

	if field, desc := q.SortField(); field != "" {
		direction := "ASC"
		if desc {
			direction = "DESC"
		}
		query += fmt.Sprintf(" ORDER BY %s %s", jsonPath(field), direction)
	} else {
		query += " ORDER BY created_at"
	}

	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	var rows []string
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing %s: %w", entity, err)
	}

	out := make([]json.RawMessage, len(rows))
	for i, r := range rows {
		out[i] = json.RawMessage(r)
	}
	return out, nil
}

// Update merges fields into the stored document of entity id.
func (s *SQLiteStore) Update(
	ctx context.Context,
	entity, id string,
	fields map[string]any,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var data string
	err = tx.GetContext(ctx, &data,
		"SELECT data FROM entities WHERE entity = ? AND id = ?", entity, id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("updating %s %s: %w", entity, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("loading %s %s: %w", entity, id, err)
	}

	doc := make(map[string]any)
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return fmt.Errorf("decoding %s %s: %w", entity, id, err)
	}
	for k, v := range fields {
		doc[k] = v
	}
	now := s.now().UTC()
	doc["id"] = id
	doc["updated_date"] = now.Format(time.RFC3339Nano)

	merged, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding %s %s: %w", entity, id, err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE entities SET data = ?, updated_at = ? WHERE entity = ? AND id = ?",
		string(merged), now, entity, id,
	)
	if err != nil {
		return fmt.Errorf("updating %s %s: %w", entity, id, err)
	}

	return tx.Commit()
}

// Create inserts a new document. A UUID is generated when fields carry no
// "id", and "created_date" defaults to the current time.
func (s *SQLiteStore) Create(
	ctx context.Context,
	entity string,
	fields map[string]any,
) (json.RawMessage, error) {
	doc := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		doc[k] = v
	}

	id, _ := doc["id"].(string)
	if id == "" {
		id = uuid.New().String()
		doc["id"] = id
	}

	now := s.now().UTC()
	if _, ok := doc["created_date"]; !ok {
		doc["created_date"] = now.Format(time.RFC3339Nano)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", entity, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entities (entity, id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		entity, id, string(data), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s %s: %w", entity, id, err)
	}

	return json.RawMessage(data), nil
}

// Dismissed returns the notification ids the viewer dismissed locally.
func (s *SQLiteStore) Dismissed(
	ctx context.Context,
	viewerKey string,
) (map[string]bool, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids,
		"SELECT notification_id FROM local_dismissals WHERE viewer = ?", viewerKey,
	)
	if err != nil {
		return nil, fmt.Errorf("querying dismissals for %s: %w", viewerKey, err)
	}

	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// Dismiss records a local dismissal. Repeated calls are no-ops.
func (s *SQLiteStore) Dismiss(
	ctx context.Context,
	viewerKey, notificationID string,
) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO local_dismissals (viewer, notification_id, dismissed_at)
		VALUES (?, ?, ?)`,
		viewerKey, notificationID, s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("dismissing %s for %s: %w", notificationID, viewerKey, err)
	}
	return nil
}

// jsonPath returns the json_extract expression for a validated field name.
func jsonPath(field string) string {
	return fmt.Sprintf("json_extract(data, '$.%s')", field)
}

// sqlValue converts filter values to what json_extract yields for them.
func sqlValue(v any) any {
	switch t := v.(type) {
	case bool:
		return boolToInt(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	}
	return v
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
