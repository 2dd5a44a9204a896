package converter

import (
	"context"
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// runReader expands the source patterns and hands every file that is not in
// the checkpoint to the workers. workCh is closed on return.
func (c *Converter) runReader(shutdownCtx context.Context, workCh chan<- *Job) error {
	llog := c.log.WithFields(logrus.Fields{
		"method": "runReader",
	})

	llog.Debug("start")
	defer llog.Debug("exit")

	defer close(workCh)

	sources, err := expandSources(c.cfg.TOML.Source.Files)
	if err != nil {
		return errors.Wrap(err, "unable to expand source patterns")
	}

	atomic.AddInt64(&c.stats.Found, int64(len(sources)))

	var numSent int

MAIN:
	for _, source := range sources {
		if c.cp.Done(source) {
			llog.Debugf("skipping '%s', already converted", source)
			atomic.AddInt64(&c.stats.Skipped, 1)

			continue
		}

		select {
		case <-shutdownCtx.Done():
			llog.Debug("received shutdown signal")
			break MAIN
		case workCh <- &Job{Source: source}:
			numSent++
		}
	}

	llog.Debugf("sent '%d' jobs", numSent)

	return nil
}

// expandSources returns the files matching patterns, sorted and without
// duplicates.
func expandSources(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	sources := make([]string, 0)

	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid pattern '%s'", pattern)
		}

		for _, m := range matches {
			m = filepath.Clean(m)

			if _, ok := seen[m]; ok {
				continue
			}

			seen[m] = struct{}{}
			sources = append(sources, m)
		}
	}

	sort.Strings(sources)

	return sources, nil
}
