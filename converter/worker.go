package converter

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/timpalpant/gzran"

	"github.com/dselans/undbc/blast"
	"github.com/dselans/undbc/checkpoint/types"
	"github.com/dselans/undbc/dbc"
)

var ErrOutputExists = errors.New("output file already exists")

func (c *Converter) runWorker(
	shutdownCtx context.Context,
	id int,
	workCh <-chan *Job,
	resultCh chan<- *Result,
) error {
	llog := c.log.WithFields(logrus.Fields{
		"method": "runWorker",
		"id":     id,
	})

	llog.Debug("start")
	defer llog.Debug("exit")

	var numProcessed int

MAIN:
	for {
		select {
		case <-shutdownCtx.Done():
			llog.Debug("received shutdown signal")
			break MAIN
		case job, open := <-workCh:
			if !open {
				llog.Debug("job channel closed - exiting worker")
				break MAIN
			}

			llog.Debugf("received job for '%s'", job.Source)

			f, err := c.convertFile(shutdownCtx, job)
			if err != nil {
				llog.Errorf("unable to convert '%s': %v", job.Source, err)
			}

			// The writer drains resultCh until it is closed, so this never
			// blocks for good.
			resultCh <- &Result{File: f, Err: err}

			numProcessed++
		}
	}

	llog.Debugf("handled '%d' jobs", numProcessed)

	return nil
}

// convertFile decompresses job.Source into the destination directory, or
// only verifies it in dry-run mode.
func (c *Converter) convertFile(ctx context.Context, job *Job) (*types.File, error) {
	span, ctx := opentracing.StartSpanFromContextWithTracer(ctx, c.tracer, "convert_file")
	defer span.Finish()

	span.SetTag("source", job.Source)

	f, err := c.convert(ctx, job)
	if err != nil {
		ext.Error.Set(span, true)
		span.SetTag("code", int(blast.CodeOf(err)))
		span.LogKV("event", "error", "message", err.Error())

		return nil, err
	}

	span.SetTag("output_size", f.OutputSize)
	span.SetTag("num_records", f.NumRecords)

	return f, nil
}

func (c *Converter) convert(ctx context.Context, job *Job) (*types.File, error) {
	in, err := os.Open(job.Source)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open source file")
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "unable to stat source file")
	}

	var src io.Reader = in

	if c.cfg.TOML.Source.FileType == "gzip" {
		gz, err := gzran.NewReader(in)
		if err != nil {
			return nil, errors.Wrap(err, "unable to create gzip reader")
		}
		defer gz.Close()

		src = gz
	}

	d, err := dbc.NewStream(ctx, src, c.cfg.TOML.Config.WindowSize, c.cfg.TOML.Config.StreamDepth)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read DBC header")
	}
	defer d.Close()

	output := c.outputPath(job.Source)
	h := sha256.New()

	var n int64

	if c.cfg.CLI.DryRun {
		n, err = io.Copy(h, d)
		if err != nil {
			return nil, errors.Wrap(err, "unable to decompress")
		}
	} else {
		n, err = writeAtomic(output, c.cfg.TOML.Destination.Overwrite, io.TeeReader(d, h))
		if err != nil {
			return nil, err
		}
	}

	hdr := d.Header()

	if hdr.RecordLength > 0 {
		want := int64(hdr.Length) + int64(hdr.NumRecords)*int64(hdr.RecordLength)
		if n < want {
			c.log.Warnf("'%s' is shorter than its header declares: %d < %d bytes", job.Source, n, want)
		}
	}

	return &types.File{
		Source:      job.Source,
		Output:      output,
		SHA256:      fmt.Sprintf("%x", h.Sum(nil)),
		InputSize:   info.Size(),
		OutputSize:  n,
		NumRecords:  hdr.NumRecords,
		CompletedAt: time.Now().UTC(),
	}, nil
}

// outputPath maps a source file to its destination: "in/Sales.dbc.gz"
// becomes "<dir>/Sales.dbf".
func (c *Converter) outputPath(source string) string {
	base := filepath.Base(source)

	if c.cfg.TOML.Source.FileType == "gzip" && strings.EqualFold(filepath.Ext(base), ".gz") {
		base = base[:len(base)-len(".gz")]
	}

	base = strings.TrimSuffix(base, filepath.Ext(base))

	return filepath.Join(c.cfg.TOML.Destination.Dir, base+c.cfg.TOML.Destination.Extension)
}

// writeAtomic copies r to a temp file next to path and renames it into place
// once r is exhausted. On error nothing is left at path.
func writeAtomic(path string, overwrite bool, r io.Reader) (int64, error) {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return 0, errors.Wrapf(ErrOutputExists, "'%s'", path)
		} else if !os.IsNotExist(err) {
			return 0, errors.Wrap(err, "unable to stat output file")
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, errors.Wrap(err, "unable to create temp output file")
	}

	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return n, errors.Wrap(err, "unable to decompress")
	}

	if err := tmp.Close(); err != nil {
		return n, errors.Wrap(err, "unable to close temp output file")
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return n, errors.Wrap(err, "unable to move output file into place")
	}

	return n, nil
}
