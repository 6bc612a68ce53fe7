package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rotisserie/eris"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS entities (
	uuid TEXT PRIMARY KEY,
	data BLOB NOT NULL
)`

// SQLiteStore keeps entities in a single table of a SQLite database.
type SQLiteStore struct {
	*base
	db *sql.DB
}

type sqliteBlobs struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path.
func NewSQLiteStore(path string, p Persister, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, eris.Wrap(err, "failed to open database")
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "failed to connect to database")
	}
	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000", sqliteSchema} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "failed to execute %q", stmt)
		}
	}
	return &SQLiteStore{
		base: newBase("sqlite", p, sqliteBlobs{db: db}, opts),
		db:   db,
	}, nil
}

func (s sqliteBlobs) get(ctx context.Context, key uuid.UUID) ([]byte, bool, error) {
	var bz []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM entities WHERE uuid = ?`, key.String()).Scan(&bz)
	if eris.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, eris.Wrap(err, "")
	}
	return bz, true, nil
}

func (s sqliteBlobs) put(ctx context.Context, key uuid.UUID, bz []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entities (uuid, data) VALUES (?, ?)
		ON CONFLICT(uuid) DO UPDATE SET data = excluded.data`,
		key.String(), bz,
	)
	return eris.Wrap(err, "")
}

func (s sqliteBlobs) close() error {
	return eris.Wrap(s.db.Close(), "")
}
