package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dselans/undbc/checkpoint/types"
	"github.com/dselans/undbc/config"
)

func completedFile(source string) *types.File {
	return &types.File{
		Source:      source,
		Output:      strings.TrimSuffix(source, ".dbc") + ".dbf",
		SHA256:      strings.Repeat("0f", 32),
		InputSize:   100,
		OutputSize:  400,
		NumRecords:  7,
		CompletedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	s := NewFileStore(path)

	cp, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, cp)

	cp = types.New()
	cp.MarkDone(completedFile("in/a.dbc"))
	cp.MarkDone(completedFile("in/b.dbc"))
	require.NoError(t, s.Save(ctx, cp))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.True(t, loaded.Done("in/a.dbc"))
	assert.True(t, loaded.Done("in/b.dbc"))
	assert.False(t, loaded.Done("in/c.dbc"))
	assert.Equal(t, cp.Files(), loaded.Files())

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, s.Reset(ctx))
	require.NoError(t, s.Reset(ctx))

	cp, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, cp)
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewFileStore(path).Load(context.Background())
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(filepath.Join(t.TempDir(), "checkpoint.json"))

	cp, err := Load(ctx, s, true)
	require.NoError(t, err)
	assert.Zero(t, cp.Len())

	cp.MarkDone(completedFile("in/a.dbc"))
	require.NoError(t, s.Save(ctx, cp))

	cp, err = Load(ctx, s, true)
	require.NoError(t, err)
	assert.True(t, cp.Done("in/a.dbc"))

	// without resume the stored checkpoint is discarded
	cp, err = Load(ctx, s, false)
	require.NoError(t, err)
	assert.Zero(t, cp.Len())

	stored, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestLoadInvalid(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(filepath.Join(t.TempDir(), "checkpoint.json"))

	cp := types.New()
	f := completedFile("in/a.dbc")
	f.SHA256 = "nope"
	cp.MarkDone(f)
	require.NoError(t, s.Save(ctx, cp))

	_, err := Load(ctx, s, true)
	assert.Error(t, err)
}

func TestMsgpackEncoding(t *testing.T) {
	cp := types.New()
	cp.MarkDone(completedFile("in/a.dbc"))

	data, err := encodeCheckpoint(cp)
	require.NoError(t, err)

	decoded, err := decodeCheckpoint(data)
	require.NoError(t, err)

	require.Len(t, decoded.Files(), 1)
	got, want := decoded.Files()[0], cp.Files()[0]

	assert.Equal(t, want.Source, got.Source)
	assert.Equal(t, want.SHA256, got.SHA256)
	assert.Equal(t, want.OutputSize, got.OutputSize)
	assert.True(t, want.CompletedAt.Equal(got.CompletedAt))
	assert.True(t, cp.StartedAt.Equal(decoded.StartedAt))

	_, err = decodeCheckpoint([]byte{0xc1})
	assert.Error(t, err)
}

func TestNewStore(t *testing.T) {
	s, err := NewStore(&config.TOMLConfig{
		CheckpointBackend: "file",
		CheckpointFile:    filepath.Join(t.TempDir(), "cp.json"),
	})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = NewStore(&config.TOMLConfig{CheckpointBackend: "etcd"})
	assert.Error(t, err)

	_, err = NewStore(nil)
	assert.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("UNDBC_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("UNDBC_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()

	s, err := NewRedisStore(addr, "undbc:test:checkpoint")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Reset(ctx))

	cp, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, cp)

	cp = types.New()
	cp.MarkDone(completedFile("in/a.dbc"))
	require.NoError(t, s.Save(ctx, cp))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, loaded.Done("in/a.dbc"))

	require.NoError(t, s.Reset(ctx))
}
