package converter

import (
	"context"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/dselans/undbc/checkpoint/types"
)

// runWriter records finished files in the catalog and the checkpoint. It
// runs until resultCh is closed and closes cpCh on return.
func (c *Converter) runWriter(ctx context.Context, resultCh <-chan *Result, cpCh chan<- *types.File) error {
	llog := c.log.WithFields(logrus.Fields{
		"method": "runWriter",
	})

	llog.Debug("start")
	defer llog.Debug("exit")

	defer close(cpCh)

	var numWritten int

	for res := range resultCh {
		if res.Err != nil {
			atomic.AddInt64(&c.stats.Failed, 1)
			continue
		}

		if err := c.catalog.Record(ctx, res.File); err != nil {
			llog.Errorf("error recording '%s' in catalog: %v", res.File.Source, err)
		}

		c.cp.MarkDone(res.File)

		atomic.AddInt64(&c.stats.Converted, 1)
		atomic.AddInt64(&c.stats.Bytes, res.File.OutputSize)

		cpCh <- res.File

		numWritten++
	}

	llog.Debugf("handled '%d' results", numWritten)

	return nil
}
