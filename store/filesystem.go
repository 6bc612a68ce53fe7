package store

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// FileSystemStore keeps one file per entity, named after its uuid, in a single directory.
type FileSystemStore struct {
	*base
	dir string
}

type fsBlobs struct {
	dir string
}

// Option configures any store.
type Option func(*base)

// WithLogger sets the logger a store reports reads and writes to.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *base) {
		b.logger = logger
	}
}

func newBase(backend string, p Persister, bl blobs, opts []Option) *base {
	b := &base{
		persister: p,
		blobs:     bl,
		logger:    log.Logger,
		backend:   backend,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With().Str("store", backend).Logger()
	return b
}

// NewFileSystemStore creates dir if needed and stores entities in it.
func NewFileSystemStore(dir string, p Persister, opts ...Option) (*FileSystemStore, error) {
	if dir == "" {
		return nil, eris.New("store directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "failed to create store directory %q", dir)
	}
	return &FileSystemStore{
		base: newBase("filesystem", p, fsBlobs{dir: dir}, opts),
		dir:  dir,
	}, nil
}

// Dir returns the directory entities are stored in.
func (s *FileSystemStore) Dir() string {
	return s.dir
}

func (f fsBlobs) path(key uuid.UUID) string {
	return filepath.Join(f.dir, key.String())
}

func (f fsBlobs) get(_ context.Context, key uuid.UUID) ([]byte, bool, error) {
	bz, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, eris.Wrap(err, "")
	}
	return bz, true, nil
}

// put writes to a temporary file first so a crash never leaves a half written entity behind.
func (f fsBlobs) put(_ context.Context, key uuid.UUID, bz []byte) error {
	tmp, err := os.CreateTemp(f.dir, key.String()+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "")
	}
	if _, err := tmp.Write(bz); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return eris.Wrap(err, "")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return eris.Wrap(err, "")
	}
	return eris.Wrap(os.Rename(tmp.Name(), f.path(key)), "")
}

func (fsBlobs) close() error {
	return nil
}
