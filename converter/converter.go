// Package converter converts batches of DBC files to DBF with a pool of
// workers, recording progress in a checkpoint so an interrupted run can
// resume where it left off.
package converter

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dselans/undbc/catalog"
	"github.com/dselans/undbc/checkpoint"
	"github.com/dselans/undbc/checkpoint/types"
	"github.com/dselans/undbc/config"
)

const (
	DefaultShutdownTimeout = 5 * time.Second
)

// Job is a single source file handed to a worker.
type Job struct {
	Source string
}

// Result is what a worker reports for a job.
type Result struct {
	File *types.File
	Err  error
}

// Stats summarizes a run.
type Stats struct {
	Found     int64
	Skipped   int64
	Converted int64
	Failed    int64
	Bytes     int64
}

type Converter struct {
	cfg     *config.Config
	log     *logrus.Entry
	store   checkpoint.Store
	catalog catalog.Catalog
	tracer  opentracing.Tracer
	cp      *types.Checkpoint
	last    time.Time
	stats   Stats

	shutdownTimeout time.Duration
}

type Option func(c *Converter)

// WithStore replaces the checkpoint store selected by the config.
func WithStore(s checkpoint.Store) Option {
	return func(c *Converter) {
		c.store = s
	}
}

// WithCatalog replaces the catalog selected by the config.
func WithCatalog(cat catalog.Catalog) Option {
	return func(c *Converter) {
		c.catalog = cat
	}
}

func WithTracer(t opentracing.Tracer) Option {
	return func(c *Converter) {
		c.tracer = t
	}
}

func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Converter, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "error validating config")
	}

	c := &Converter{
		cfg:             cfg,
		log:             logrus.WithField("pkg", "converter"),
		tracer:          opentracing.GlobalTracer(),
		shutdownTimeout: DefaultShutdownTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.store == nil && !cfg.TOML.Config.DisableCheckpointing {
		store, err := checkpoint.NewStore(cfg.TOML.Config)
		if err != nil {
			return nil, errors.Wrap(err, "unable to create checkpoint store")
		}

		c.store = store
	}

	if c.catalog == nil {
		if cfg.CLI.DryRun {
			c.catalog = catalog.Noop{}
		} else {
			cat, err := catalog.New(ctx, cfg.TOML.Catalog)
			if err != nil {
				return nil, errors.Wrap(err, "unable to create catalog")
			}

			c.catalog = cat
		}
	}

	// Load checkpoint (or start a fresh one)
	if cfg.TOML.Config.DisableCheckpointing {
		c.cp = types.New()
	} else {
		cp, err := checkpoint.Load(ctx, c.store, !cfg.CLI.DisableResume)
		if err != nil {
			return nil, errors.Wrap(err, "unable to load checkpoint")
		}

		c.cp = cp
	}

	return c, nil
}

// Run converts every source file not yet in the checkpoint. It returns once
// all stages have exited; files that failed to convert are counted in the
// stats and reported as an error.
func (c *Converter) Run(shutdownCtx context.Context) (*Stats, error) {
	numWorkers := c.cfg.TOML.Config.NumWorkers

	ctx, cancel := context.WithCancel(shutdownCtx)
	defer cancel()

	var (
		errOnce sync.Once
		runErr  error
	)

	fail := func(stage string, err error) {
		errOnce.Do(func() {
			runErr = errors.Wrapf(err, "error in %s", stage)
		})

		cancel()
	}

	wg := &sync.WaitGroup{}
	workCh := make(chan *Job, numWorkers)
	resultCh := make(chan *Result, numWorkers)
	cpCh := make(chan *types.File, 1000)
	doneCh := make(chan struct{})

	// Launch reader
	wg.Add(1)
	go func() {
		defer wg.Done()

		if err := c.runReader(ctx, workCh); err != nil {
			fail("reader", err)
		}
	}()

	// Launch workers
	workersWg := &sync.WaitGroup{}

	for i := 0; i < numWorkers; i++ {
		workersWg.Add(1)

		go func(id int) {
			defer workersWg.Done()

			if err := c.runWorker(ctx, id, workCh, resultCh); err != nil {
				fail("worker", err)
			}
		}(i)
	}

	go func() {
		workersWg.Wait()
		close(resultCh)
	}()

	// Launch writer; it drains resultCh even after a shutdown so that no
	// finished file goes unrecorded
	wg.Add(1)
	go func() {
		defer wg.Done()

		if err := c.runWriter(context.WithoutCancel(ctx), resultCh, cpCh); err != nil {
			fail("writer", err)
		}
	}()

	// Launch checkpointer
	wg.Add(1)
	go func() {
		defer wg.Done()

		if err := c.runCheckpointer(cpCh); err != nil {
			fail("checkpointer", err)
		}
	}()

	go func() {
		wg.Wait()
		close(doneCh)
	}()

	select {
	case <-doneCh:
	case <-ctx.Done():
		c.log.Debug("received shutdown signal, waiting for workers to stop")

		if err := c.waitWorkers(doneCh); err != nil {
			return c.Stats(), err
		}
	}

	stats := c.Stats()

	if runErr != nil {
		return stats, runErr
	}

	if err := shutdownCtx.Err(); err != nil {
		return stats, errors.Wrap(err, "run interrupted")
	}

	if stats.Failed > 0 {
		return stats, errors.Errorf("%d of %d files failed to convert", stats.Failed, stats.Found-stats.Skipped)
	}

	c.log.Debug("converter run completed")

	return stats, nil
}

// Stats returns a snapshot of the counters of the current or last run.
func (c *Converter) Stats() *Stats {
	return &Stats{
		Found:     atomic.LoadInt64(&c.stats.Found),
		Skipped:   atomic.LoadInt64(&c.stats.Skipped),
		Converted: atomic.LoadInt64(&c.stats.Converted),
		Failed:    atomic.LoadInt64(&c.stats.Failed),
		Bytes:     atomic.LoadInt64(&c.stats.Bytes),
	}
}

// Checkpoint returns the checkpoint the converter is working against.
func (c *Converter) Checkpoint() *types.Checkpoint {
	return c.cp
}

// Close releases the checkpoint store and the catalog.
func (c *Converter) Close() error {
	var err error

	if c.store != nil {
		if serr := c.store.Close(); serr != nil {
			err = errors.Wrap(serr, "unable to close checkpoint store")
		}
	}

	if cerr := c.catalog.Close(); cerr != nil && err == nil {
		err = errors.Wrap(cerr, "unable to close catalog")
	}

	return err
}

func (c *Converter) waitWorkers(doneCh <-chan struct{}) error {
	select {
	case <-doneCh:
		c.log.Debug("workers have exited successfully")
		return nil
	case <-time.After(c.shutdownTimeout):
		c.log.Warn("timed out waiting for workers and/or checkpointer to exit")
		return errors.New("timed out waiting for workers and/or checkpointer to exit")
	}
}
