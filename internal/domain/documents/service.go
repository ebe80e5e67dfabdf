package documents

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/DocSandbox/backend/internal/infrastructure/monitoring"
)

const (
	DefaultTag         = "root"
	DefaultTitle       = "Sandbox"
	DefaultIcon        = "ic_root"
	DefaultSearchLimit = 20
	DefaultRecentLimit = 5

	serviceName = "documents"
)

// rootMIMETypes is the filter set advertised for the root.
var rootMIMETypes = []string{"image/*", "text/*", "*/*"}

// Config binds the service to its base directory.
type Config struct {
	BasePath      string
	Tag           string
	Title         string
	Summary       string
	Icon          string
	SearchLimit   int
	RecentLimit   int
	ValidateNames bool
	// Exclude holds doublestar patterns matched against slash-separated
	// paths relative to the base. Matching entries are left out of listings,
	// search, recent and usage.
	Exclude      []string
	UsageSummary bool
}

// Root describes the single root exposed by the service.
type Root struct {
	RootID         string    `json:"root_id"`
	DocumentID     string    `json:"document_id"`
	Title          string    `json:"title"`
	Summary        string    `json:"summary,omitempty"`
	Icon           string    `json:"icon"`
	Flags          RootFlags `json:"flags"`
	MIMETypes      string    `json:"mime_types"`
	AvailableBytes uint64    `json:"available_bytes"`
}

// Service is the document namespace over one base directory.
type Service struct {
	cfg       Config
	codec     Codec
	fileMode  os.FileMode
	dirMode   os.FileMode
	logger    *zap.Logger
	metrics   *monitoring.Metrics
	listeners []CloseFunc
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the logger used for lifecycle and mutation events.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCloseListener registers fn for every handle opened for writing and
// every Write, successful or not.
func WithCloseListener(fn CloseFunc) Option {
	return func(s *Service) {
		if fn != nil {
			s.listeners = append(s.listeners, fn)
		}
	}
}

// WithFileMode sets the permission bits for created files.
func WithFileMode(mode os.FileMode) Option {
	return func(s *Service) { s.fileMode = mode }
}

// WithDirMode sets the permission bits for created directories.
func WithDirMode(mode os.FileMode) Option {
	return func(s *Service) { s.dirMode = mode }
}

// New resolves the base directory and returns a ready service. Any failure
// wraps ErrFatal.
func New(cfg Config, opts ...Option) (*Service, error) {
	if cfg.BasePath == "" {
		return nil, newError("init", "", ErrFatal, "base path is required")
	}
	abs, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, newError("init", "", ErrFatal, "resolve %s: %w", cfg.BasePath, err)
	}
	base, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, newError("init", "", ErrFatal, "resolve %s: %w", abs, err)
	}
	info, err := os.Stat(base)
	if err != nil {
		return nil, newError("init", "", ErrFatal, "stat %s: %w", base, err)
	}
	if !info.IsDir() {
		return nil, newError("init", "", ErrFatal, "%s is not a directory", base)
	}

	if cfg.Tag == "" {
		cfg.Tag = DefaultTag
	}
	if strings.ContainsRune(cfg.Tag, ':') {
		return nil, newError("init", "", ErrFatal, "root tag %q must not contain ':'", cfg.Tag)
	}
	if cfg.Title == "" {
		cfg.Title = DefaultTitle
	}
	if cfg.Icon == "" {
		cfg.Icon = DefaultIcon
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = DefaultSearchLimit
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = DefaultRecentLimit
	}
	for _, pattern := range cfg.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, newError("init", "", ErrFatal, "invalid exclude pattern %q", pattern)
		}
	}
	cfg.BasePath = base

	s := &Service{
		cfg:      cfg,
		codec:    NewCodec(cfg.Tag, base),
		fileMode: 0o644,
		dirMode:  0o755,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger.Info("Document namespace ready",
		zap.String("base", base),
		zap.String("tag", cfg.Tag),
		zap.Int("search_limit", cfg.SearchLimit),
		zap.Int("recent_limit", cfg.RecentLimit),
	)
	return s, nil
}

// WithMetrics adds operation metrics to the service
func (s *Service) WithMetrics(metrics *monitoring.Metrics) *Service {
	s.metrics = metrics
	return s
}

// Codec returns the identifier codec bound to the base directory.
func (s *Service) Codec() Codec { return s.codec }

// RootID returns the identifier of the base directory.
func (s *Service) RootID() string { return s.codec.RootID() }

// Config returns the effective configuration.
func (s *Service) Config() Config { return s.cfg }

// Resolve decodes id and checks that the entry exists right now.
func (s *Service) Resolve(id string) (string, error) {
	p, _, err := s.resolve("resolve", id)
	return p, err
}

func (s *Service) resolve(op, id string) (string, fs.FileInfo, error) {
	p, err := s.codec.Decode(id)
	if err != nil {
		var docErr *Error
		if errors.As(err, &docErr) {
			docErr.Op = op
		}
		return "", nil, err
	}
	target, err := filepath.EvalSymlinks(p)
	if err != nil {
		return "", nil, newError(op, id, ErrNotFound, "missing file at %s: %w", p, err)
	}
	if !s.within(target) {
		return "", nil, newError(op, id, ErrNotFound, "%s resolves outside the root", p)
	}
	info, err := os.Stat(target)
	if err != nil {
		return "", nil, newError(op, id, ErrNotFound, "missing file at %s: %w", p, err)
	}
	return p, info, nil
}

// within reports whether the symlink-free path target lies in the base
// directory.
func (s *Service) within(target string) bool {
	_, err := s.codec.Encode(target)
	return err == nil
}

// escapes reports whether the symlink at p points outside the base
// directory or nowhere.
func (s *Service) escapes(p string) bool {
	target, err := filepath.EvalSymlinks(p)
	return err != nil || !s.within(target)
}

// Roots returns the single root row with live free space.
func (s *Service) Roots(ctx context.Context) (roots []Root, err error) {
	defer s.observe("roots", time.Now(), &err)

	avail, err := freeSpace(s.codec.Base())
	if err != nil {
		return nil, newError("roots", s.RootID(), ErrOperationFailed, "query free space: %w", err)
	}

	summary := s.cfg.Summary
	if summary == "" && s.cfg.UsageSummary {
		usage, uerr := s.Usage(ctx)
		if uerr != nil {
			s.logger.Warn("Usage summary unavailable", zap.Error(uerr))
		} else {
			summary = usage.String()
		}
	}

	return []Root{{
		RootID:         s.codec.Tag(),
		DocumentID:     s.RootID(),
		Title:          s.cfg.Title,
		Summary:        summary,
		Icon:           s.cfg.Icon,
		Flags:          RootFlagSupportsCreate | RootFlagSupportsRecents | RootFlagSupportsSearch,
		MIMETypes:      strings.Join(rootMIMETypes, "\n"),
		AvailableBytes: avail,
	}}, nil
}

// QueryDocument returns the metadata row for id.
func (s *Service) QueryDocument(id string) (doc Document, err error) {
	defer s.observe("query", time.Now(), &err)

	p, info, err := s.resolve("query", id)
	if err != nil {
		return Document{}, err
	}
	return s.projectPath(p, info)
}

// DocumentType returns the MIME type of id.
func (s *Service) DocumentType(id string) (string, error) {
	_, info, err := s.resolve("type", id)
	if err != nil {
		return "", err
	}
	return typeForInfo(info), nil
}

// ListChildren returns one row per immediate child of parentID in
// enumeration order.
func (s *Service) ListChildren(parentID string) (docs []Document, err error) {
	defer s.observe("children", time.Now(), &err)

	dir, info, err := s.resolve("children", parentID)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, newError("children", parentID, ErrInvalidRequest, "not a directory")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newError("children", parentID, ErrNotFound, "%w", err)
		}
		return nil, newError("children", parentID, ErrOperationFailed, "%w", err)
	}

	docs = make([]Document, 0, len(entries))
	for _, entry := range entries {
		p := filepath.Join(dir, entry.Name())
		if s.excluded(p) {
			continue
		}
		if entry.Type()&fs.ModeSymlink != 0 && s.escapes(p) {
			continue
		}
		childInfo, err := os.Stat(p)
		if err != nil {
			continue
		}
		doc, err := s.projectPath(p, childInfo)
		if err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Create makes an empty file, or a directory when mime is MIMETypeDir, named
// displayName under parentID and returns its identifier.
func (s *Service) Create(parentID, mime, displayName string) (id string, err error) {
	defer s.observe("create", time.Now(), &err)

	parent, info, err := s.resolve("create", parentID)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", newError("create", parentID, ErrInvalidRequest, "parent is not a directory")
	}
	if displayName == "" || displayName == "." || displayName == ".." || strings.ContainsAny(displayName, `/\`) {
		return "", newError("create", parentID, ErrInvalidRequest, "invalid display name %q", displayName)
	}

	mime = strings.ToLower(strings.TrimSpace(mime))
	name := displayName
	if s.cfg.ValidateNames {
		name = ValidateDisplayName(mime, displayName)
	}
	target := filepath.Join(parent, name)

	if mime == MIMETypeDir {
		if err := os.Mkdir(target, s.dirMode); err != nil {
			return "", s.createFailure(parentID, target, err)
		}
	} else {
		f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, s.fileMode)
		if err != nil {
			return "", s.createFailure(parentID, target, err)
		}
		if err := f.Close(); err != nil {
			return "", newError("create", parentID, ErrOperationFailed, "close %s: %w", target, err)
		}
	}

	id, err = s.codec.Encode(target)
	if err != nil {
		return "", err
	}
	s.logger.Info("Document created",
		zap.String("id", id),
		zap.String("mime_type", mime),
	)
	return id, nil
}

func (s *Service) createFailure(parentID, target string, err error) error {
	if errors.Is(err, fs.ErrExist) {
		return newError("create", parentID, ErrOperationFailed, "%w: %w", ErrExists, err)
	}
	return newError("create", parentID, ErrOperationFailed, "create %s: %w", target, err)
}

// Delete removes the entry named by id. Directories must be empty.
func (s *Service) Delete(id string) (err error) {
	defer s.observe("delete", time.Now(), &err)

	p, _, err := s.resolve("delete", id)
	if err != nil {
		return err
	}
	if p == s.codec.Base() {
		return newError("delete", id, ErrInvalidRequest, "the root cannot be deleted")
	}
	if err := os.Remove(p); err != nil {
		return newError("delete", id, ErrOperationFailed, "%w", err)
	}

	s.logger.Info("Document deleted", zap.String("id", id))
	return nil
}

// excluded reports whether path matches one of the exclude patterns.
func (s *Service) excluded(path string) bool {
	if len(s.cfg.Exclude) == 0 {
		return false
	}
	rel, err := filepath.Rel(s.codec.Base(), path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range s.cfg.Exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// observe records duration and outcome of an operation.
func (s *Service) observe(op string, start time.Time, errp *error) {
	if s.metrics == nil {
		return
	}
	status := statusLabel(*errp)
	s.metrics.RecordServiceCall(serviceName, op, status, time.Since(start))
	if *errp != nil {
		s.metrics.RecordServiceError(serviceName, op, status)
	}
}

func statusLabel(err error) string {
	switch KindOf(err) {
	case nil:
		if err != nil {
			return "error"
		}
		return "ok"
	case ErrNotFound:
		return "not_found"
	case ErrInvalidRequest:
		return "invalid_request"
	case ErrExists:
		return "exists"
	case ErrTooLarge:
		return "too_large"
	case ErrOperationFailed:
		return "operation_failed"
	default:
		return "fatal"
	}
}
