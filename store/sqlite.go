package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore keeps photons and atoms in two tables of a single SQLite file.
// Photon rows are keyed by their position in the sequence.
type SQLiteStore struct {
	db       *sql.DB
	path     string
	n        int
	readOnly bool
	closed   bool
}

var (
	createPhotonsSQL = createTableSQL("photons", photonColumns, true)
	createAtomsSQL   = createTableSQL("atoms", atomColumns, false)
	insertPhotonSQL  = `INSERT INTO photons (seq, ` +
		strings.Join(photonColumns[:], ", ") + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	insertAtomSQL = `INSERT INTO atoms (` +
		strings.Join(atomColumns[:], ", ") + `) VALUES (?, ?, ?, ?, ?, ?)`
)

func createTableSQL(name string, cols [6]string, seq bool) string {
	defs := make([]string, 0, 7)
	if seq {
		defs = append(defs, "seq INTEGER PRIMARY KEY")
	}
	for _, c := range cols {
		defs = append(defs, c+" REAL NOT NULL")
	}
	// No IF NOT EXISTS: creating a table twice must fail.
	return fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(defs, ", "))
}

// CreateSQLite creates a new database at path. Any existing database there
// is removed first.
func CreateSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to truncate %s: %w", p, err)
		}
	}

	s, err := openSQLite(path, false)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.Exec(createPhotonsSQL); err != nil {
		_ = s.db.Close()
		return nil, fmt.Errorf("failed to create photons table: %w", err)
	}
	return s, nil
}

// OpenSQLite opens an existing database read-only. Nothing is written to
// the file, so it may live on read-only media.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	s, err := openSQLite(path, true)
	if err != nil {
		return nil, err
	}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM photons`).Scan(&s.n); err != nil {
		_ = s.db.Close()
		return nil, fmt.Errorf("failed to count photons in %s: %w", path, err)
	}
	return s, nil
}

func openSQLite(path string, readOnly bool) (*SQLiteStore, error) {
	dsn := path
	if readOnly {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: "mode=ro"}
		dsn = u.String()
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if readOnly {
		return &SQLiteStore{db: db, path: path, readOnly: true}, nil
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set %q: %w", p, err)
		}
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// AppendPhotons appends recs to the photon sequence in one transaction.
func (s *SQLiteStore) AppendPhotons(ctx context.Context, recs []PhotonRecord) error {
	if s.readOnly {
		return ErrReadOnly
	} else if s.closed {
		return ErrClosed
	}
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin photon append: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertPhotonSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare photon insert: %w", err)
	}
	defer stmt.Close()

	for i := range recs {
		x := recs[i].row()
		_, err := stmt.ExecContext(ctx,
			s.n+i, x[0], x[1], x[2], x[3], x[4], x[5])
		if err != nil {
			return fmt.Errorf("failed to write photon %d: %w", s.n+i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %d photons: %w", len(recs), err)
	}
	s.n += len(recs)
	return nil
}

// WriteAtoms creates the atoms table and fills it with recs.
func (s *SQLiteStore) WriteAtoms(ctx context.Context, recs []AtomRecord) error {
	if s.readOnly {
		return ErrReadOnly
	} else if s.closed {
		return ErrClosed
	}
	if len(recs) == 0 {
		return nil
	}

	exists, err := s.hasAtoms(ctx)
	if err != nil {
		return err
	} else if exists {
		return fmt.Errorf("%s: %w", s.path, ErrAtomsWritten)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin atom write: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, createAtomsSQL); err != nil {
		return fmt.Errorf("failed to create atoms table: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertAtomSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare atom insert: %w", err)
	}
	defer stmt.Close()

	for i := range recs {
		x := recs[i].row()
		if _, err := stmt.ExecContext(ctx,
			x[0], x[1], x[2], x[3], x[4], x[5]); err != nil {
			return fmt.Errorf("failed to write atom %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %d atoms: %w", len(recs), err)
	}
	return nil
}

func (s *SQLiteStore) hasAtoms(ctx context.Context) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'atoms'`,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to look up atoms table: %w", err)
	}
	return count > 0, nil
}

// Len returns the number of photon records.
func (s *SQLiteStore) Len(ctx context.Context) (int, error) { return s.n, nil }

// ReadPhotons returns every photon record in sequence order.
func (s *SQLiteStore) ReadPhotons(ctx context.Context) ([]PhotonRecord, error) {
	rows, err := s.readRows(ctx, `SELECT `+strings.Join(photonColumns[:], ", ")+
		` FROM photons ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to read photons: %w", err)
	}
	recs := make([]PhotonRecord, len(rows))
	for i := range rows {
		recs[i] = photonFromRow(rows[i])
	}
	return recs, nil
}

// ReadAtoms returns the initial atom table in insertion order.
func (s *SQLiteStore) ReadAtoms(ctx context.Context) ([]AtomRecord, error) {
	exists, err := s.hasAtoms(ctx)
	if err != nil || !exists {
		return nil, err
	}
	rows, err := s.readRows(ctx, `SELECT `+strings.Join(atomColumns[:], ", ")+
		` FROM atoms ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to read atoms: %w", err)
	}
	recs := make([]AtomRecord, len(rows))
	for i := range rows {
		recs[i] = atomFromRow(rows[i])
	}
	return recs, nil
}

func (s *SQLiteStore) readRows(ctx context.Context, query string) ([][6]float64, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := [][6]float64{}
	for rows.Next() {
		var x [6]float64
		if err := rows.Scan(&x[0], &x[1], &x[2], &x[3], &x[4], &x[5]); err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, rows.Err()
}

// Close closes the database. A writable database is checkpointed and
// switched back to a rollback journal first, so the closed store is a
// single self-contained file.
func (s *SQLiteStore) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if !s.readOnly {
		_, err = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE);")
		if err == nil {
			_, err = s.db.Exec("PRAGMA journal_mode=DELETE;")
		}
		if err != nil {
			err = fmt.Errorf("failed to checkpoint %s: %w", s.path, err)
		}
	}
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	return err
}
