package types

import (
	"sort"
	"sync"
	"time"
)

// File describes one converted source file.
type File struct {
	Source      string    `json:"source" codec:"source"`
	Output      string    `json:"output" codec:"output"`
	SHA256      string    `json:"sha256" codec:"sha256"`
	InputSize   int64     `json:"input_size" codec:"input_size"`
	OutputSize  int64     `json:"output_size" codec:"output_size"`
	NumRecords  uint32    `json:"num_records" codec:"num_records"`
	CompletedAt time.Time `json:"completed_at" codec:"completed_at"`
}

// Checkpoint contains the files completed so far, keyed by source path
type Checkpoint struct {
	Completed   map[string]*File `json:"completed" codec:"completed"`
	StartedAt   time.Time        `json:"started_at" codec:"started_at"`
	LastUpdated time.Time        `json:"last_updated" codec:"last_updated"`

	mu sync.RWMutex
}

func New() *Checkpoint {
	now := time.Now().UTC()

	return &Checkpoint{
		Completed:   make(map[string]*File),
		StartedAt:   now,
		LastUpdated: now,
	}
}

// Done reports whether source has been converted.
func (cp *Checkpoint) Done(source string) bool {
	cp.mu.RLock()
	defer cp.mu.RUnlock()

	_, ok := cp.Completed[source]

	return ok
}

func (cp *Checkpoint) MarkDone(f *File) {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	if cp.Completed == nil {
		cp.Completed = make(map[string]*File)
	}

	cp.Completed[f.Source] = f
	cp.LastUpdated = time.Now().UTC()
}

func (cp *Checkpoint) Len() int {
	cp.mu.RLock()
	defer cp.mu.RUnlock()

	return len(cp.Completed)
}

// Files returns the completed files ordered by source path.
func (cp *Checkpoint) Files() []*File {
	cp.mu.RLock()
	defer cp.mu.RUnlock()

	files := make([]*File, 0, len(cp.Completed))
	for _, f := range cp.Completed {
		files = append(files, f)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Source < files[j].Source
	})

	return files
}

// Snapshot returns a copy that is safe to encode while cp keeps changing.
func (cp *Checkpoint) Snapshot() *Checkpoint {
	cp.mu.RLock()
	defer cp.mu.RUnlock()

	completed := make(map[string]*File, len(cp.Completed))
	for k, v := range cp.Completed {
		f := *v
		completed[k] = &f
	}

	return &Checkpoint{
		Completed:   completed,
		StartedAt:   cp.StartedAt,
		LastUpdated: cp.LastUpdated,
	}
}
