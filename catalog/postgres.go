package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dselans/undbc/checkpoint/types"
)

type Postgres struct {
	pool  *pgxpool.Pool
	table string
	log   *logrus.Entry
}

func NewPostgres(ctx context.Context, dsn, table string) (*Postgres, error) {
	pool, err := createPGPool(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "error creating postgres connection pool")
	}

	p := &Postgres{
		pool:  pool,
		table: pgx.Identifier{table}.Sanitize(),
		log:   logrus.WithField("pkg", "catalog"),
	}

	if _, err := pool.Exec(ctx, p.createSQL()); err != nil {
		pool.Close()
		return nil, errors.Wrapf(err, "unable to create table %s", p.table)
	}

	return p, nil
}

func createPGPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing postgres dsn")
	}

	config.ConnConfig.ConnectTimeout = 5 * time.Second

	pool, err := pgxpool.ConnectConfig(ctx, config)
	if err != nil {
		return nil, errors.Wrap(err, "error connecting to postgres")
	}

	return pool, nil
}

func (p *Postgres) createSQL() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	source       TEXT PRIMARY KEY,
	output       TEXT NOT NULL,
	sha256       CHAR(64) NOT NULL,
	input_size   BIGINT NOT NULL,
	output_size  BIGINT NOT NULL,
	num_records  BIGINT NOT NULL,
	completed_at TIMESTAMPTZ NOT NULL
)`, p.table)
}

func (p *Postgres) insertSQL() string {
	return fmt.Sprintf(`INSERT INTO %s (source, output, sha256, input_size, output_size, num_records, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (source) DO UPDATE SET
	output = EXCLUDED.output,
	sha256 = EXCLUDED.sha256,
	input_size = EXCLUDED.input_size,
	output_size = EXCLUDED.output_size,
	num_records = EXCLUDED.num_records,
	completed_at = EXCLUDED.completed_at`, p.table)
}

func (p *Postgres) Record(ctx context.Context, f *types.File) error {
	_, err := p.pool.Exec(ctx, p.insertSQL(),
		f.Source, f.Output, f.SHA256, f.InputSize, f.OutputSize, int64(f.NumRecords), f.CompletedAt)
	if err != nil {
		return errors.Wrapf(err, "unable to record '%s'", f.Source)
	}

	p.log.Debugf("recorded '%s' in %s", f.Source, p.table)

	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
