package converter

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dselans/undbc/checkpoint/types"
)

// runCheckpointer persists the checkpoint at most once per
// checkpoint_interval while files complete, and once more when cpCh is
// closed so that the final state is always saved.
func (c *Converter) runCheckpointer(cpCh <-chan *types.File) error {
	llog := c.log.WithFields(logrus.Fields{
		"method": "runCheckpointer",
	})

	llog.Debug("start")
	defer llog.Debug("exit")

	if c.store == nil {
		llog.Debug("checkpointing disabled")

		for range cpCh {
		}

		return nil
	}

	var pending bool

	for f := range cpCh {
		llog.Debugf("received checkpoint for '%s'", f.Source)

		pending = true

		saved, err := c.saveCheckpoint(false)
		if err != nil {
			llog.Errorf("error saving checkpoint after '%s': %v", f.Source, err)
		}

		if saved {
			pending = false
		}
	}

	if pending {
		if _, err := c.saveCheckpoint(true); err != nil {
			return errors.Wrap(err, "unable to save final checkpoint")
		}
	}

	return nil
}

func (c *Converter) saveCheckpoint(force bool) (bool, error) {
	llog := c.log.WithFields(logrus.Fields{
		"method": "saveCheckpoint",
	})

	interval := time.Duration(c.cfg.TOML.Config.CheckpointInterval)

	// Skip unless forced, or this is the first save, or the interval passed
	if !force && !c.last.IsZero() && c.last.Add(interval).After(time.Now()) {
		llog.Debugf("skipping checkpoint save, last save was %v ago", time.Since(c.last))
		return false, nil
	}

	llog.Debugf("saving checkpoint with '%d' completed files", c.cp.Len())

	if err := c.store.Save(context.Background(), c.cp); err != nil {
		return false, errors.Wrap(err, "unable to save checkpoint")
	}

	// Note that a checkpoint save has occurred
	c.last = time.Now()

	return true, nil
}
