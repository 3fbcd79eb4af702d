package observers

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Retention prunes timeline files in Dir. Files older than MaxAge go first;
// then the oldest files beyond MaxFiles. Zero disables a limit.
type Retention struct {
	Dir      string
	MaxAge   time.Duration
	MaxFiles int

	now func() time.Time
}

type timelineInfo struct {
	path string
	mod  time.Time
}

// Purge removes expired timelines and returns how many were deleted. A
// missing directory is not an error.
func (r Retention) Purge() (int, error) {
	if strings.TrimSpace(r.Dir) == "" || (r.MaxAge <= 0 && r.MaxFiles <= 0) {
		return 0, nil
	}
	files, err := r.timelines()
	if err != nil {
		return 0, err
	}
	now := time.Now
	if r.now != nil {
		now = r.now
	}

	// Newest first, so everything past MaxFiles is the tail.
	sort.Slice(files, func(i, j int) bool { return files[i].mod.After(files[j].mod) })
	var (
		removed int
		errs    error
	)
	for i, f := range files {
		expired := r.MaxAge > 0 && now().Sub(f.mod) > r.MaxAge
		overflow := r.MaxFiles > 0 && i >= r.MaxFiles
		if !expired && !overflow {
			continue
		}
		if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = errors.Join(errs, err)
			continue
		}
		removed++
	}
	return removed, errs
}

func (r Retention) timelines() ([]timelineInfo, error) {
	entries, err := os.ReadDir(r.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]timelineInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".jsonl" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, timelineInfo{path: filepath.Join(r.Dir, entry.Name()), mod: info.ModTime()})
	}
	return out, nil
}
