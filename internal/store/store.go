// Package store provides the durable record store over SQLite.
//
// Each logical table holds opaque JSON documents keyed by their "id"
// field, with created/updated timestamps kept in indexed columns for
// secondary lookups. The store is the only component that touches the
// underlying storage medium.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	apperrors "github.com/tablewise/poscore/internal/errors"
	"github.com/tablewise/poscore/internal/logging"
	"github.com/tablewise/poscore/internal/models"
)

// Store is the SQLite-backed record store.
type Store struct {
	db  *sql.DB
	log *logging.Logger

	// Prepared statement cache keyed by query string. Statements are
	// prepared on first use and reused for the life of the store.
	stmtCache sync.Map // map[string]*sql.Stmt
}

// Open opens (or creates) the store under dataDir.
// The database is opened with:
// - WAL mode for concurrent reads/writes
// - a single writer connection (SQLite does not support multiple writers)
// All tables of the fixed schema are created if absent; existing data is
// never touched, so reopening after a schema addition is a non-destructive
// upgrade.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to create data directory", err)
	}

	dbPath := filepath.Join(dataDir, "poscore.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to open database", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to enable WAL mode", err)
	}

	s := &Store{
		db:  db,
		log: logging.Get().WithComponent("store"),
	}

	if err := s.ensureTables(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// ensureTables creates every table of the fixed schema if absent.
func (s *Store) ensureTables() error {
	for _, table := range models.AllTables() {
		query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %q (
			id TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);`, table)
		if _, err := s.db.Exec(query); err != nil {
			return apperrors.Wrap(apperrors.ErrStorageUnavailable,
				fmt.Sprintf("failed to create table %s", table), err)
		}
	}
	return nil
}

// prepareStmt gets or creates a prepared statement from the cache.
func (s *Store) prepareStmt(query string) (*sql.Stmt, error) {
	if stmt, ok := s.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	actual, loaded := s.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		// Another goroutine already prepared this, close our duplicate
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}

	return stmt, nil
}

// checkTable rejects tables outside the fixed schema.
func checkTable(table string) error {
	if !models.IsKnownTable(table) {
		return apperrors.Newf(apperrors.ErrStorageUnavailable, "unknown table %q", table)
	}
	return nil
}

// Put upserts a record into the table, keyed by the record's id.
// Insert-or-replace semantics are required because the engine always
// pre-assigns keys before reaching the store.
func (s *Store) Put(table string, rec models.Record) error {
	if err := checkTable(table); err != nil {
		return err
	}
	if rec.ID() == "" {
		return apperrors.New(apperrors.ErrInvalid, "record has no id")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to serialize record", err)
	}

	query := fmt.Sprintf(`
	INSERT INTO %q (id, data, created_at, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		data = excluded.data,
		updated_at = excluded.updated_at
	`, table)

	stmt, err := s.prepareStmt(query)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to prepare upsert", err)
	}

	if _, err := stmt.Exec(rec.ID(), string(data), rec.CreatedAt(), rec.UpdatedAt()); err != nil {
		return apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to write record", err)
	}
	return nil
}

// Get retrieves a record by key. The second return value reports whether
// the record exists.
func (s *Store) Get(table, key string) (models.Record, bool, error) {
	if err := checkTable(table); err != nil {
		return nil, false, err
	}

	query := fmt.Sprintf(`SELECT data FROM %q WHERE id = ?`, table)
	stmt, err := s.prepareStmt(query)
	if err != nil {
		return nil, false, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to prepare select", err)
	}

	var data string
	err = stmt.QueryRow(key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to read record", err)
	}

	var rec models.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, false, apperrors.Wrap(apperrors.ErrStorageUnavailable, "corrupt record", err)
	}
	return rec, true, nil
}

// GetAll returns every record in the table in insertion (created_at,
// then id) order. Corrupt rows are skipped with a warning rather than
// failing the whole read.
func (s *Store) GetAll(table string) ([]models.Record, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, data FROM %q ORDER BY created_at, id`, table)
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to read table", err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to scan row", err)
		}

		var rec models.Record
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			s.log.Warn("Skipping corrupt record", map[string]interface{}{
				"table": table,
				"id":    id,
			})
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to iterate table", err)
	}
	return records, nil
}

// Delete removes a record by key. Deleting an absent key is not an error.
func (s *Store) Delete(table, key string) error {
	if err := checkTable(table); err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %q WHERE id = ?`, table)
	stmt, err := s.prepareStmt(query)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to prepare delete", err)
	}
	if _, err := stmt.Exec(key); err != nil {
		return apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to delete record", err)
	}
	return nil
}

// Clear removes every record in the table.
func (s *Store) Clear(table string) error {
	if err := checkTable(table); err != nil {
		return err
	}
	query := fmt.Sprintf(`DELETE FROM %q`, table)
	if _, err := s.db.Exec(query); err != nil {
		return apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to clear table", err)
	}
	return nil
}

// Count returns the number of records in the table.
func (s *Store) Count(table string) (int, error) {
	if err := checkTable(table); err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %q`, table)
	var n int
	if err := s.db.QueryRow(query).Scan(&n); err != nil {
		return 0, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to count table", err)
	}
	return n, nil
}

// ReplaceAll atomically replaces the full contents of a table inside a
// single SQLite transaction. Either every record lands or none do.
func (s *Store) ReplaceAll(table string, records []models.Record) error {
	if err := checkTable(table); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM %q`, table)); err != nil {
		return apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to clear table", err)
	}

	insert := fmt.Sprintf(`INSERT INTO %q (id, data, created_at, updated_at) VALUES (?, ?, ?, ?)`, table)
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to serialize record", err)
		}
		if _, err := tx.Exec(insert, rec.ID(), string(data), rec.CreatedAt(), rec.UpdatedAt()); err != nil {
			return apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to write record", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to commit replacement", err)
	}
	return nil
}

// Close closes all cached statements and the database connection.
func (s *Store) Close() error {
	s.stmtCache.Range(func(key, value interface{}) bool {
		value.(*sql.Stmt).Close()
		return true
	})
	return s.db.Close()
}
