package documents

import (
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CloseFunc is notified once when a handle opened for writing is closed. doc
// reflects the file after the close; err is the close error or the reason
// the document could not be re-read.
type CloseFunc func(doc Document, err error)

// ParseMode maps a mode string to open flags. Accepted modes are "r", "w",
// "wt", "wa", "rw" and "rwt".
func ParseMode(mode string) (int, error) {
	switch mode {
	case "r":
		return os.O_RDONLY, nil
	case "w", "wt":
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC, nil
	case "wa":
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND, nil
	case "rw":
		return os.O_RDWR | os.O_CREATE, nil
	case "rwt":
		return os.O_RDWR | os.O_CREATE | os.O_TRUNC, nil
	}
	return 0, newError("open", "", ErrInvalidRequest, "bad mode %q", mode)
}

func isWriteMode(flag int) bool {
	return flag&(os.O_WRONLY|os.O_RDWR) != 0
}

// Handle is an open document. The caller owns it and must Close it.
type Handle struct {
	*os.File

	id        string
	svc       *Service
	listeners []CloseFunc
	opened    time.Time

	once     sync.Once
	closeErr error
}

// ID returns the identifier the handle was opened with.
func (h *Handle) ID() string { return h.id }

// Close closes the file and, for handles opened for writing, notifies the
// close listeners. Repeated calls return the first result.
func (h *Handle) Close() error {
	h.once.Do(func() {
		h.closeErr = h.File.Close()
		if h.svc.metrics != nil {
			h.svc.metrics.DecOpenHandles()
		}
		if len(h.listeners) == 0 {
			return
		}

		doc, err := h.svc.QueryDocument(h.id)
		if err != nil {
			doc = Document{ID: h.id}
		}
		if h.closeErr != nil {
			err = h.closeErr
		}
		h.svc.logger.Debug("Write handle closed",
			zap.String("id", h.id),
			zap.Int64("size", doc.Size),
			zap.Duration("held", time.Since(h.opened)),
			zap.Error(err),
		)
		for _, fn := range h.listeners {
			fn(doc, err)
		}
	})
	return h.closeErr
}

// Open opens the document named by id. onClose, when non-nil and the mode
// writes, runs after the listeners installed with WithCloseListener.
func (s *Service) Open(id, mode string, onClose CloseFunc) (h *Handle, err error) {
	defer s.observe("open", time.Now(), &err)

	flag, err := ParseMode(mode)
	if err != nil {
		err.(*Error).ID = id
		return nil, err
	}
	return s.open("open", id, flag, onClose)
}

// OpenThumbnail returns a read-only handle on the document bytes. No
// thumbnail is generated; sizeHint is accepted for callers that downsample.
func (s *Service) OpenThumbnail(id string, sizeHint int) (h *Handle, err error) {
	defer s.observe("thumbnail", time.Now(), &err)

	s.logger.Debug("Thumbnail requested", zap.String("id", id), zap.Int("size_hint", sizeHint))
	return s.open("thumbnail", id, os.O_RDONLY, nil)
}

func (s *Service) open(op, id string, flag int, onClose CloseFunc) (*Handle, error) {
	p, info, err := s.resolve(op, id)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, newError(op, id, ErrInvalidRequest, "cannot open a directory")
	}

	f, err := os.OpenFile(p, flag, s.fileMode)
	if err != nil {
		return nil, newError(op, id, ErrOperationFailed, "%w", err)
	}

	h := &Handle{File: f, id: id, svc: s, opened: time.Now()}
	if isWriteMode(flag) {
		h.listeners = append(h.listeners, s.listeners...)
		if onClose != nil {
			h.listeners = append(h.listeners, onClose)
		}
	}
	if s.metrics != nil {
		s.metrics.IncOpenHandles()
	}
	return h, nil
}
