package documents

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Write copies src into the document named by id using the open semantics of
// mode ("w", "wt", "rwt" truncate, "wa" appends, "rw" overwrites from the
// start). The bytes are staged in a temporary file beside the document and
// renamed over it only once src is drained, so a failed write leaves the
// previous content untouched.
//
// A positive limit caps the bytes taken from src; exceeding it fails with
// ErrTooLarge. The close listeners are notified with the outcome either way.
func (s *Service) Write(id, mode string, src io.Reader, limit int64) (written int64, err error) {
	defer s.observe("write", time.Now(), &err)

	flag, err := ParseMode(mode)
	if err != nil {
		docErr := err.(*Error)
		docErr.Op, docErr.ID = "write", id
		return 0, err
	}
	if !isWriteMode(flag) {
		return 0, newError("write", id, ErrInvalidRequest, "mode %q does not write", mode)
	}

	p, info, err := s.resolve("write", id)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, newError("write", id, ErrInvalidRequest, "cannot write a directory")
	}
	target, err := filepath.EvalSymlinks(p)
	if err != nil {
		return 0, newError("write", id, ErrNotFound, "%w", err)
	}

	written, err = s.stage(target, info.Mode().Perm(), flag, src, limit)
	if errors.Is(err, errLimit) {
		err = newError("write", id, ErrTooLarge, "more than %d bytes", limit)
	} else if err != nil {
		err = newError("write", id, ErrOperationFailed, "%w", err)
	}

	s.notify(id, err)
	if err != nil {
		s.logger.Warn("Write discarded", zap.String("id", id), zap.String("mode", mode), zap.Error(err))
		return 0, err
	}
	s.logger.Debug("Document written", zap.String("id", id), zap.String("mode", mode), zap.Int64("bytes", written))
	return written, nil
}

var errLimit = errors.New("write limit exceeded")

// stage fills a temporary sibling of target and renames it into place. For
// modes that keep existing bytes the current content is copied in first.
func (s *Service) stage(target string, perm fs.FileMode, flag int, src io.Reader, limit int64) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.partial")
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if flag&os.O_TRUNC == 0 {
		if err := copyInto(tmp, target); err != nil {
			return 0, err
		}
		if flag&os.O_APPEND == 0 {
			if _, err := tmp.Seek(0, io.SeekStart); err != nil {
				return 0, err
			}
		}
	}

	if limit > 0 {
		src = io.LimitReader(src, limit+1)
	}
	n, err := io.Copy(tmp, src)
	if err != nil {
		return n, err
	}
	if limit > 0 && n > limit {
		return n, errLimit
	}

	if err := tmp.Chmod(perm); err != nil {
		return n, err
	}
	if err := tmp.Close(); err != nil {
		return n, err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return n, err
	}
	committed = true
	return n, nil
}

func copyInto(dst io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(dst, f)
	return err
}

// notify hands the current state of id and the write outcome to the close
// listeners.
func (s *Service) notify(id string, err error) {
	if len(s.listeners) == 0 {
		return
	}
	doc, qerr := s.QueryDocument(id)
	if qerr != nil {
		doc = Document{ID: id}
	}
	for _, fn := range s.listeners {
		fn(doc, err)
	}
}
