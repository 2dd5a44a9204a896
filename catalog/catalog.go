// Package catalog records converted files in a database table.
package catalog

import (
	"context"

	"github.com/pkg/errors"

	"github.com/dselans/undbc/checkpoint/types"
	"github.com/dselans/undbc/config"
)

type Catalog interface {
	// Record stores one row describing a converted file.
	Record(ctx context.Context, f *types.File) error
	Close() error
}

// New connects to the catalog selected by [catalog] type.
func New(ctx context.Context, c *config.TOMLCatalog) (Catalog, error) {
	if c == nil {
		return nil, errors.New("catalog config cannot be nil")
	}

	switch c.Type {
	case "", "none":
		return Noop{}, nil
	case "postgres":
		return NewPostgres(ctx, c.DSN, c.Table)
	case "mysql":
		return NewMySQL(ctx, c.DSN, c.Table)
	default:
		return nil, errors.Errorf("unsupported catalog type '%s'", c.Type)
	}
}

// Noop discards every record.
type Noop struct{}

func (Noop) Record(context.Context, *types.File) error {
	return nil
}

func (Noop) Close() error {
	return nil
}
