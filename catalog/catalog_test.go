package catalog

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dselans/undbc/checkpoint/types"
	"github.com/dselans/undbc/config"
)

func testFile() *types.File {
	return &types.File{
		Source:      "in/a.dbc",
		Output:      "out/a.dbf",
		SHA256:      strings.Repeat("ab", 32),
		InputSize:   10,
		OutputSize:  40,
		NumRecords:  3,
		CompletedAt: time.Now().UTC(),
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	c, err := New(ctx, &config.TOMLCatalog{Type: "none"})
	require.NoError(t, err)
	assert.Equal(t, Noop{}, c)
	assert.NoError(t, c.Record(ctx, testFile()))
	assert.NoError(t, c.Close())

	_, err = New(ctx, &config.TOMLCatalog{Type: "oracle"})
	assert.Error(t, err)

	_, err = New(ctx, nil)
	assert.Error(t, err)
}

func TestNewPostgresBadDSN(t *testing.T) {
	_, err := NewPostgres(context.Background(), "postgres://user@host:notaport/db", "files")
	assert.Error(t, err)
}

func TestSQL(t *testing.T) {
	p := &Postgres{table: `"dbc_conversions"`}
	assert.Contains(t, p.createSQL(), `CREATE TABLE IF NOT EXISTS "dbc_conversions"`)
	assert.Contains(t, p.insertSQL(), "$7")
	assert.Contains(t, p.insertSQL(), "ON CONFLICT (source)")

	m := &MySQL{table: quoteMySQL("dbc`conversions")}
	assert.Equal(t, "`dbc``conversions`", m.table)
	assert.Contains(t, m.insertSQL(), ":completed_at")
	assert.Contains(t, m.insertSQL(), "ON DUPLICATE KEY UPDATE")
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("UNDBC_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("UNDBC_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()

	p, err := NewPostgres(ctx, dsn, "undbc_test_conversions")
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Record(ctx, testFile()))

	// recording the same source again updates the row
	require.NoError(t, p.Record(ctx, testFile()))
}

func TestMySQL(t *testing.T) {
	dsn := os.Getenv("UNDBC_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("UNDBC_TEST_MYSQL_DSN not set")
	}

	ctx := context.Background()

	m, err := NewMySQL(ctx, dsn, "undbc_test_conversions")
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Record(ctx, testFile()))
	require.NoError(t, m.Record(ctx, testFile()))
}
