package checkpoint

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dselans/undbc/checkpoint/types"
	"github.com/dselans/undbc/config"
	"github.com/dselans/undbc/validate"
)

// Store persists a checkpoint between runs.
type Store interface {
	// Load returns the stored checkpoint, or nil when there is none.
	Load(ctx context.Context) (*types.Checkpoint, error)
	Save(ctx context.Context, cp *types.Checkpoint) error
	Reset(ctx context.Context) error
	Close() error
}

// NewStore returns the store selected by config.checkpoint_backend.
func NewStore(c *config.TOMLConfig) (Store, error) {
	if c == nil {
		return nil, errors.New("config cannot be nil")
	}

	switch c.CheckpointBackend {
	case "file":
		return NewFileStore(c.CheckpointFile), nil
	case "redis":
		return NewRedisStore(c.RedisAddr, c.RedisKey)
	default:
		return nil, errors.Errorf("unsupported checkpoint backend '%s'", c.CheckpointBackend)
	}
}

// Load returns the stored checkpoint, or a fresh one if there is none or
// resume is false. A fresh checkpoint replaces whatever was stored.
func Load(ctx context.Context, s Store, resume bool) (*types.Checkpoint, error) {
	startedAt := time.Now()
	logrus.Debugf("checkpoint loading started at '%s'", startedAt)

	defer func() {
		logrus.Debugf("checkpoint loading took '%s'", time.Since(startedAt))
	}()

	if !resume {
		logrus.Debug("resume disabled, discarding stored checkpoint")

		if err := s.Reset(ctx); err != nil {
			return nil, errors.Wrap(err, "unable to reset checkpoint")
		}

		return types.New(), nil
	}

	cp, err := s.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load checkpoint")
	}

	if cp == nil {
		logrus.Debug("no stored checkpoint, starting fresh")
		return types.New(), nil
	}

	if err := validate.Checkpoint(cp); err != nil {
		return nil, errors.Wrap(err, "stored checkpoint is invalid")
	}

	logrus.Debugf("resuming with '%d' completed files", cp.Len())

	return cp, nil
}

// FileStore keeps the checkpoint as JSON in a single file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load(_ context.Context) (*types.Checkpoint, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, errors.Wrap(err, "unable to read checkpoint file")
	}

	cp := &types.Checkpoint{}
	if err := json.Unmarshal(data, cp); err != nil {
		return nil, errors.Wrap(err, "unable to unmarshal checkpoint file")
	}

	return cp, nil
}

// Save writes to a temp file in the same directory and renames it over the
// checkpoint, so a crash never leaves a partial file behind.
func (f *FileStore) Save(_ context.Context, cp *types.Checkpoint) error {
	data, err := json.MarshalIndent(cp.Snapshot(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "unable to marshal checkpoint file")
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "unable to create temp checkpoint file")
	}

	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "unable to write checkpoint file")
	}

	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "unable to close temp checkpoint file")
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return errors.Wrap(err, "unable to replace checkpoint file")
	}

	return nil
}

func (f *FileStore) Reset(_ context.Context) error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "unable to remove checkpoint file")
	}

	return nil
}

func (f *FileStore) Close() error {
	return nil
}
