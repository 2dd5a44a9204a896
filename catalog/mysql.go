package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dselans/undbc/checkpoint/types"
)

type MySQL struct {
	db    *sqlx.DB
	table string
	log   *logrus.Entry
}

type mysqlRow struct {
	Source      string    `db:"source"`
	Output      string    `db:"output"`
	SHA256      string    `db:"sha256"`
	InputSize   int64     `db:"input_size"`
	OutputSize  int64     `db:"output_size"`
	NumRecords  uint32    `db:"num_records"`
	CompletedAt time.Time `db:"completed_at"`
}

func NewMySQL(ctx context.Context, dsn, table string) (*MySQL, error) {
	db, err := sqlx.ConnectContext(ctx, "mysql", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "error connecting to mysql")
	}

	m := &MySQL{
		db:    db,
		table: quoteMySQL(table),
		log:   logrus.WithField("pkg", "catalog"),
	}

	if _, err := db.ExecContext(ctx, m.createSQL()); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "unable to create table %s", m.table)
	}

	return m, nil
}

func quoteMySQL(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (m *MySQL) createSQL() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	source       VARCHAR(1024) NOT NULL,
	output       VARCHAR(1024) NOT NULL,
	sha256       CHAR(64) NOT NULL,
	input_size   BIGINT NOT NULL,
	output_size  BIGINT NOT NULL,
	num_records  BIGINT UNSIGNED NOT NULL,
	completed_at DATETIME(6) NOT NULL,
	PRIMARY KEY (source(255))
)`, m.table)
}

func (m *MySQL) insertSQL() string {
	return fmt.Sprintf(`INSERT INTO %s (source, output, sha256, input_size, output_size, num_records, completed_at)
VALUES (:source, :output, :sha256, :input_size, :output_size, :num_records, :completed_at)
ON DUPLICATE KEY UPDATE
	output = VALUES(output),
	sha256 = VALUES(sha256),
	input_size = VALUES(input_size),
	output_size = VALUES(output_size),
	num_records = VALUES(num_records),
	completed_at = VALUES(completed_at)`, m.table)
}

func (m *MySQL) Record(ctx context.Context, f *types.File) error {
	row := &mysqlRow{
		Source:      f.Source,
		Output:      f.Output,
		SHA256:      f.SHA256,
		InputSize:   f.InputSize,
		OutputSize:  f.OutputSize,
		NumRecords:  f.NumRecords,
		CompletedAt: f.CompletedAt,
	}

	if _, err := m.db.NamedExecContext(ctx, m.insertSQL(), row); err != nil {
		return errors.Wrapf(err, "unable to record '%s'", f.Source)
	}

	m.log.Debugf("recorded '%s' in %s", f.Source, m.table)

	return nil
}

func (m *MySQL) Close() error {
	return m.db.Close()
}
