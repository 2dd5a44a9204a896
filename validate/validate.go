package validate

import (
	"encoding/hex"

	"github.com/pkg/errors"

	"github.com/dselans/undbc/checkpoint/types"
)

func Checkpoint(cp *types.Checkpoint) error {
	if cp == nil {
		return errors.New("checkpoint is nil")
	}

	for source, f := range cp.Completed {
		if err := checkpointFile(source, f); err != nil {
			return errors.Wrapf(err, "invalid entry for '%s'", source)
		}
	}

	return nil
}

func checkpointFile(source string, f *types.File) error {
	if f == nil {
		return errors.New("entry is nil")
	}

	if source == "" || f.Source != source {
		return errors.Errorf("entry source '%s' does not match its key", f.Source)
	}

	if f.Output == "" {
		return errors.New("output cannot be empty")
	}

	if f.InputSize < 0 || f.OutputSize < 0 {
		return errors.New("sizes cannot be negative")
	}

	sum, err := hex.DecodeString(f.SHA256)
	if err != nil || len(sum) != 32 {
		return errors.Errorf("sha256 '%s' is not a hex encoded digest", f.SHA256)
	}

	return nil
}
