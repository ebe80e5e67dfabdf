package documents

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
)

// Usage summarizes what the root currently holds.
type Usage struct {
	Files int64 `json:"files"`
	Dirs  int64 `json:"dirs"`
	Bytes int64 `json:"bytes"`
}

func (u Usage) String() string {
	return fmt.Sprintf("%d files, %s used", u.Files, formatBytes(u.Bytes))
}

// Usage counts files, directories and bytes under the base directory with a
// parallel walk. Excluded entries are not counted.
func (s *Service) Usage(ctx context.Context) (Usage, error) {
	var files, dirs, size atomic.Int64
	base := s.codec.Base()
	conf := fastwalk.Config{Follow: false}

	err := fastwalk.Walk(&conf, base, func(p string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil || filepath.Clean(p) == base {
			return nil
		}
		if s.excluded(p) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			dirs.Add(1)
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		files.Add(1)
		size.Add(info.Size())
		return nil
	})
	if err != nil {
		return Usage{}, fmt.Errorf("usage walk failed: %w", err)
	}

	return Usage{Files: files.Load(), Dirs: dirs.Load(), Bytes: size.Load()}, nil
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"KB", "MB", "GB", "TB", "PB"}
	return fmt.Sprintf("%.2f %s", float64(bytes)/float64(div), units[exp])
}
