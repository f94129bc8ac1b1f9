package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/handiism/moviedata/internal/collection"
	ioutils "github.com/handiism/moviedata/internal/io"
	"github.com/handiism/moviedata/internal/model"
	_ "modernc.org/sqlite"
)

// Store is a SQLite snapshot of one collection.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the archive database at dbPath.
func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("archive: db path is empty")
	}
	if err := ioutils.EnsureParent(dbPath); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: dbPath}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	ddl := []string{`
CREATE TABLE IF NOT EXISTS movies (
	id TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	title TEXT NOT NULL,
	year INTEGER NOT NULL,
	minutes INTEGER NOT NULL,
	acquired TEXT NOT NULL,
	notes TEXT NOT NULL DEFAULT ''
);`, `
CREATE TABLE IF NOT EXISTS snapshot (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	source TEXT NOT NULL DEFAULT '',
	archived_at TEXT NOT NULL
);`}
	for _, stmt := range ddl {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Export replaces the archived snapshot with the contents of c in a single
// transaction. The container itself is not modified.
func (s *Store) Export(ctx context.Context, c *collection.Container) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to archive: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM movies;`); err != nil {
		return "", fmt.Errorf("failed to archive: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO movies (id, position, title, year, minutes, acquired, notes) VALUES (?, ?, ?, ?, ?, ?, ?);`)
	if err != nil {
		return "", fmt.Errorf("failed to archive: %w", err)
	}
	defer stmt.Close()

	n := 0
	for m := range c.All() {
		_, err := stmt.ExecContext(ctx, m.ID.String(), n, m.Title, m.Year, m.Minutes, model.FormatDate(m.Acquired), m.Notes)
		if err != nil {
			return "", fmt.Errorf("failed to archive %q: %w", m.Title, err)
		}
		n++
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.ExecContext(ctx, `INSERT INTO snapshot (id, source, archived_at) VALUES (1, ?, ?)
ON CONFLICT(id) DO UPDATE SET source = excluded.source, archived_at = excluded.archived_at;`, c.Filename(), now)
	if err != nil {
		return "", fmt.Errorf("failed to archive: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to archive: %w", err)
	}
	return fmt.Sprintf("Archived %d movie records to %s", n, filepath.Base(s.path)), nil
}

// Import replaces the contents of c with the archived snapshot. Like an XML
// import, the container ends up dirty and without a filename. On error c is
// left unchanged.
func (s *Store) Import(ctx context.Context, c *collection.Container) (string, error) {
	movies, err := s.fetch(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to restore: %w", err)
	}

	c.Clear(true)
	c.AddAll(movies)
	c.SetDirty(true)
	return fmt.Sprintf("Restored %d movie records from %s", c.Len(), filepath.Base(s.path)), nil
}

func (s *Store) fetch(ctx context.Context) ([]*model.Movie, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, year, minutes, acquired, notes FROM movies ORDER BY position;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movies []*model.Movie
	for rows.Next() {
		var id, title, acquiredStr, notes string
		var year, minutes int
		if err := rows.Scan(&id, &title, &year, &minutes, &acquiredStr, &notes); err != nil {
			return nil, err
		}
		acquired, err := model.ParseDate(acquiredStr)
		if err != nil {
			return nil, fmt.Errorf("movie %q: invalid acquired date: %w", title, err)
		}
		m := model.NewMovie(title, year, minutes, acquired, notes)
		if parsed, err := uuid.Parse(id); err == nil {
			m.ID = parsed
		}
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return movies, nil
}

// Count returns the number of archived movies.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies;`).Scan(&n)
	return n, err
}

// Snapshot describes the last export.
type Snapshot struct {
	Source     string
	ArchivedAt time.Time
}

// Info returns details of the last export, or false when nothing has been
// archived yet.
func (s *Store) Info(ctx context.Context) (Snapshot, bool, error) {
	var snap Snapshot
	var archivedAt string
	err := s.db.QueryRowContext(ctx, `SELECT source, archived_at FROM snapshot WHERE id = 1;`).Scan(&snap.Source, &archivedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	if parsed, err := time.Parse(time.RFC3339, archivedAt); err == nil {
		snap.ArchivedAt = parsed
	}
	return snap, true, nil
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}
