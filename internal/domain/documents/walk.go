package documents

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// errStopWalk ends a walk early without reporting an error.
var errStopWalk = errors.New("stop walk")

// visitFunc receives every file reached by walk. Returning errStopWalk ends
// the traversal.
type visitFunc func(path string, info fs.FileInfo) error

type walkItem struct {
	path string
	dir  bool
}

// walk drains a FIFO work list starting at dir: directories are expanded onto
// the back of the list, files are handed to visit. Entries that disappear
// mid-walk are skipped. It returns the number of entries taken off the list.
func (s *Service) walk(ctx context.Context, dir string, visit visitFunc) (int, error) {
	pending := []walkItem{{path: dir, dir: true}}
	visited := 0

	for len(pending) > 0 {
		select {
		case <-ctx.Done():
			return visited, ctx.Err()
		default:
		}

		item := pending[0]
		pending[0] = walkItem{}
		pending = pending[1:]
		visited++

		if item.dir {
			entries, err := os.ReadDir(item.path)
			if err != nil {
				if item.path == dir {
					return visited, err
				}
				continue
			}
			for _, entry := range entries {
				p := filepath.Join(item.path, entry.Name())
				if s.excluded(p) {
					continue
				}
				if entry.Type()&fs.ModeSymlink != 0 && s.escapes(p) {
					continue
				}
				pending = append(pending, walkItem{path: p, dir: entry.IsDir()})
			}
			continue
		}

		info, err := os.Stat(item.path)
		if err != nil || info.IsDir() {
			continue
		}
		if err := visit(item.path, info); err != nil {
			if errors.Is(err, errStopWalk) {
				return visited, nil
			}
			return visited, err
		}
	}
	return visited, nil
}

// Search walks the subtree under parentID breadth-first and returns files
// whose name contains query, ignoring case. It stops at SearchLimit results.
func (s *Service) Search(ctx context.Context, parentID, query string) (docs []Document, err error) {
	defer s.observe("search", time.Now(), &err)

	dir, info, err := s.resolve("search", parentID)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, newError("search", parentID, ErrInvalidRequest, "not a directory")
	}

	needle := strings.ToLower(query)
	docs = make([]Document, 0)
	visited, err := s.walk(ctx, dir, func(p string, info fs.FileInfo) error {
		if !strings.Contains(strings.ToLower(info.Name()), needle) {
			return nil
		}
		doc, err := s.projectPath(p, info)
		if err != nil {
			return nil
		}
		docs = append(docs, doc)
		if len(docs) >= s.cfg.SearchLimit {
			return errStopWalk
		}
		return nil
	})
	if s.metrics != nil {
		s.metrics.ObserveTraversal("search", visited)
	}
	if err != nil {
		return nil, s.walkFailure("search", parentID, err)
	}
	return docs, nil
}

// Recent walks the whole subtree under rootID and returns up to RecentLimit
// files, most recently modified first.
func (s *Service) Recent(ctx context.Context, rootID string) (docs []Document, err error) {
	defer s.observe("recent", time.Now(), &err)

	dir, info, err := s.resolve("recent", rootID)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, newError("recent", rootID, ErrInvalidRequest, "not a directory")
	}

	newest := newRecentSet(s.cfg.RecentLimit)
	visited, err := s.walk(ctx, dir, func(p string, info fs.FileInfo) error {
		newest.offer(p, info)
		return nil
	})
	if s.metrics != nil {
		s.metrics.ObserveTraversal("recent", visited)
	}
	if err != nil {
		return nil, s.walkFailure("recent", rootID, err)
	}

	docs = make([]Document, 0, newest.len())
	for _, entry := range newest.newestFirst() {
		doc, err := s.projectPath(entry.path, entry.info)
		if err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *Service) walkFailure(op, id string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, fs.ErrNotExist) {
		return newError(op, id, ErrNotFound, "%w", err)
	}
	return newError(op, id, ErrOperationFailed, "%w", err)
}
