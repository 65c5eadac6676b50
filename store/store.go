// Package store provides SQLite-backed persistence for field catalogs,
// cached raw records, and named mapping sets. Structured columns hold the
// lookup keys; variable-shape payloads (field lists, record bodies,
// transformation configs) live in JSON columns.
package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/teleskop/fieldbridge/errors"
	"github.com/teleskop/fieldbridge/mapping"
	"github.com/teleskop/fieldbridge/schema"
	"github.com/teleskop/fieldbridge/transform"
)

// Schema DDL, applied idempotently on startup
const SchemaDDL = `
	CREATE TABLE IF NOT EXISTS field_catalogs (
		provider_id TEXT NOT NULL,
		project_id  TEXT NOT NULL,
		fields      TEXT NOT NULL,
		fetched_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (provider_id, project_id)
	);

	CREATE TABLE IF NOT EXISTS records (
		provider_id TEXT NOT NULL,
		record_id   TEXT NOT NULL,
		fields      TEXT NOT NULL,
		fetched_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (provider_id, record_id)
	);

	CREATE TABLE IF NOT EXISTS mapping_sets (
		name            TEXT NOT NULL,
		position        INTEGER NOT NULL,
		source_field_id TEXT NOT NULL,
		target_field_id TEXT NOT NULL,
		transformation  TEXT NOT NULL,
		PRIMARY KEY (name, position)
	);`

// Query constants
const (
	catalogUpsertQuery = `
		INSERT INTO field_catalogs (provider_id, project_id, fields)
		VALUES (?, ?, ?)
		ON CONFLICT (provider_id, project_id) DO UPDATE SET
			fields = excluded.fields,
			fetched_at = CURRENT_TIMESTAMP`

	catalogSelectQuery = `
		SELECT fields FROM field_catalogs
		WHERE provider_id = ? AND project_id = ?`

	recordUpsertQuery = `
		INSERT INTO records (provider_id, record_id, fields)
		VALUES (?, ?, ?)
		ON CONFLICT (provider_id, record_id) DO UPDATE SET
			fields = excluded.fields,
			fetched_at = CURRENT_TIMESTAMP`

	recordSelectQuery = `
		SELECT fields FROM records
		WHERE provider_id = ? AND record_id = ?`

	recordIDsSelectQuery = `
		SELECT record_id FROM records
		WHERE provider_id = ?
		ORDER BY record_id ASC`

	mappingSetDeleteQuery = `
		DELETE FROM mapping_sets WHERE name = ?`

	mappingSetInsertQuery = `
		INSERT INTO mapping_sets (name, position, source_field_id, target_field_id, transformation)
		VALUES (?, ?, ?, ?, ?)`

	mappingSetSelectQuery = `
		SELECT source_field_id, target_field_id, transformation
		FROM mapping_sets
		WHERE name = ?
		ORDER BY position ASC`
)

// SQLStore implements schema.CatalogProvider and schema.RecordSource over
// a SQLite database, and persists named mapping sets.
type SQLStore struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewSQLStore creates a store over an opened database handle
func NewSQLStore(db *sql.DB, logger *zap.SugaredLogger) *SQLStore {
	return &SQLStore{db: db, logger: logger}
}

// InitSchema applies the schema DDL
func (s *SQLStore) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, SchemaDDL); err != nil {
		return errors.Wrap(err, "applying store schema")
	}
	return nil
}

// SaveCatalog persists a provider's field catalog for a project,
// replacing any earlier snapshot.
func (s *SQLStore) SaveCatalog(ctx context.Context, providerID, projectID string, fields []schema.Field) error {
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return errors.Wrap(err, "marshaling field catalog")
	}

	if _, err := s.db.ExecContext(ctx, catalogUpsertQuery, providerID, projectID, string(fieldsJSON)); err != nil {
		return errors.Wrapf(err, "saving catalog %s/%s", providerID, projectID)
	}
	s.logger.Debugw("Field catalog saved",
		"provider", providerID,
		"project", projectID,
		"fields", len(fields))
	return nil
}

// FieldCatalog returns the stored field catalog for a provider/project pair
func (s *SQLStore) FieldCatalog(ctx context.Context, providerID, projectID string) ([]schema.Field, error) {
	var fieldsJSON string
	err := s.db.QueryRowContext(ctx, catalogSelectQuery, providerID, projectID).Scan(&fieldsJSON)
	if err == sql.ErrNoRows {
		return nil, errors.NewCatalogUnavailable("no stored catalog for %s/%s", providerID, projectID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "loading catalog %s/%s", providerID, projectID)
	}

	var fields []schema.Field
	if err := json.Unmarshal([]byte(fieldsJSON), &fields); err != nil {
		return nil, errors.Wrapf(err, "unmarshaling catalog %s/%s", providerID, projectID)
	}
	return fields, nil
}

// SaveRecord persists one raw record, replacing any earlier snapshot
func (s *SQLStore) SaveRecord(ctx context.Context, providerID, recordID string, record schema.Record) error {
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return errors.Wrapf(err, "marshaling record %s", recordID)
	}

	if _, err := s.db.ExecContext(ctx, recordUpsertQuery, providerID, recordID, string(recordJSON)); err != nil {
		return errors.Wrapf(err, "saving record %s/%s", providerID, recordID)
	}
	return nil
}

// RawRecord returns one stored raw record
func (s *SQLStore) RawRecord(ctx context.Context, providerID, recordID string) (schema.Record, error) {
	var recordJSON string
	err := s.db.QueryRowContext(ctx, recordSelectQuery, providerID, recordID).Scan(&recordJSON)
	if err == sql.ErrNoRows {
		return nil, errors.NewRecordNotFound("record %s/%s", providerID, recordID)
	}
	if err != nil {
		return nil, errors.Wrapf(errors.ErrTransientIO, "loading record %s/%s: %v", providerID, recordID, err)
	}

	var record schema.Record
	if err := json.Unmarshal([]byte(recordJSON), &record); err != nil {
		return nil, errors.Wrapf(err, "unmarshaling record %s/%s", providerID, recordID)
	}
	return record, nil
}

// RecordIDs returns the stored record ids for a provider, ordered
func (s *SQLStore) RecordIDs(ctx context.Context, providerID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, recordIDsSelectQuery, providerID)
	if err != nil {
		return nil, errors.Wrapf(err, "listing records for %s", providerID)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrapf(err, "scanning record ids for %s", providerID)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "iterating record ids for %s", providerID)
	}
	return ids, nil
}

// SaveMappingSet persists a named mapping set, replacing any earlier set
// under the same name. Order is preserved through the position column.
func (s *SQLStore) SaveMappingSet(ctx context.Context, name string, set mapping.Set) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning mapping-set transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, mappingSetDeleteQuery, name); err != nil {
		return errors.Wrapf(err, "clearing mapping set %q", name)
	}

	for i, m := range set {
		configJSON, err := json.Marshal(m.Transformation)
		if err != nil {
			return errors.Wrapf(err, "marshaling transformation for %s", m.SourceFieldID)
		}
		if _, err := tx.ExecContext(ctx, mappingSetInsertQuery,
			name, i, m.SourceFieldID, m.TargetFieldID, string(configJSON)); err != nil {
			return errors.Wrapf(err, "saving mapping %s -> %s", m.SourceFieldID, m.TargetFieldID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrapf(err, "committing mapping set %q", name)
	}
	s.logger.Infow("Mapping set saved",
		"name", name,
		"mappings", len(set))
	return nil
}

// LoadMappingSet returns a named mapping set in its persisted order.
// A name with no rows yields an empty set, not an error.
func (s *SQLStore) LoadMappingSet(ctx context.Context, name string) (mapping.Set, error) {
	rows, err := s.db.QueryContext(ctx, mappingSetSelectQuery, name)
	if err != nil {
		return nil, errors.Wrapf(err, "loading mapping set %q", name)
	}
	defer rows.Close()

	var set mapping.Set
	for rows.Next() {
		var m mapping.FieldMapping
		var configJSON string
		if err := rows.Scan(&m.SourceFieldID, &m.TargetFieldID, &configJSON); err != nil {
			return nil, errors.Wrapf(err, "scanning mapping set %q", name)
		}
		// Malformed stored configs degrade to NONE rather than failing the load
		m.Transformation = transform.ParseConfig([]byte(configJSON))
		set = append(set, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "iterating mapping set %q", name)
	}
	return set, nil
}
