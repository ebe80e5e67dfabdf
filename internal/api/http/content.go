package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/DocSandbox/backend/internal/infrastructure/monitoring"
)

const (
	encodingZstd     = "zstd"
	encodingGzip     = "gzip"
	encodingIdentity = "identity"
)

// negotiateEncoding picks zstd, then gzip, from an Accept-Encoding header.
// Entries with q=0 are refused. It returns "identity" when neither is
// acceptable.
func negotiateEncoding(header string) string {
	accepted := make(map[string]bool)
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		q := 1.0
		if v, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				q = parsed
			}
		}
		accepted[name] = q > 0
	}

	for _, enc := range []string{encodingZstd, encodingGzip} {
		if ok, listed := accepted[enc]; listed {
			if ok {
				return enc
			}
			continue
		}
		if accepted["*"] {
			return enc
		}
	}
	return encodingIdentity
}

// compressor wraps w for the chosen encoding.
func compressor(w io.Writer, encoding string) (io.WriteCloser, error) {
	switch encoding {
	case encodingZstd:
		return zstd.NewWriter(w)
	case encodingGzip:
		return gzip.NewWriterLevel(w, gzip.DefaultCompression)
	}
	return nil, fmt.Errorf("unsupported encoding %q", encoding)
}

// decompressor unwraps a request body sent with Content-Encoding. A positive
// maxMemory bounds the zstd decoder window.
func decompressor(r io.Reader, encoding string, maxMemory int64) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", encodingIdentity:
		return io.NopCloser(r), nil
	case encodingGzip:
		return gzip.NewReader(r)
	case encodingZstd:
		var opts []zstd.DOption
		if maxMemory > 0 {
			opts = append(opts, zstd.WithDecoderMaxMemory(uint64(maxMemory)))
		}
		dec, err := zstd.NewReader(r, opts...)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	}
	return nil, fmt.Errorf("unsupported content encoding %q", encoding)
}

// Download streams document bytes. Identity responses go through
// http.ServeContent so range and conditional requests work.
func (h *Handlers) Download(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}
	timer := monitoring.NewTimer(h.metrics, "content", "download")
	defer func() { timer.Stop(outcome(c)) }()

	doc, err := h.docs.QueryDocument(id)
	if err != nil {
		respondError(c, err)
		return
	}
	handle, err := h.docs.Open(id, "r", nil)
	if err != nil {
		respondError(c, err)
		return
	}
	defer handle.Close()

	c.Header("Content-Type", doc.MIMEType)
	c.Header("X-Document-ID", doc.ID)
	c.Header("Vary", "Accept-Encoding")

	encoding := negotiateEncoding(c.GetHeader("Accept-Encoding"))
	if encoding == encodingIdentity || c.GetHeader("Range") != "" {
		http.ServeContent(c.Writer, c.Request, doc.DisplayName, time.UnixMilli(doc.LastModified), handle)
		h.countBytes("read", int64(c.Writer.Size()))
		return
	}

	c.Header("Content-Encoding", encoding)
	c.Status(http.StatusOK)
	enc, err := compressor(c.Writer, encoding)
	if err != nil {
		respondError(c, err)
		return
	}
	n, err := io.Copy(enc, handle)
	if cerr := enc.Close(); err == nil {
		err = cerr
	}
	h.countBytes("read", n)
	if err != nil {
		// headers are gone; all that is left is to log and cut the stream
		_ = c.Error(err)
		h.logger.Warn("Content stream aborted", zap.String("id", id), zap.String("encoding", encoding), zap.Error(err))
	}
}

// Upload writes the request body into a document. The mode query parameter
// selects truncate ("w", "wt", "rwt", the default being "wt") or append
// ("wa") semantics; "rw" overwrites in place. The upload cap applies to the
// decompressed bytes, and a rejected upload leaves the document unchanged.
func (h *Handlers) Upload(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}
	timer := monitoring.NewTimer(h.metrics, "content", "upload")
	defer func() { timer.Stop(outcome(c)) }()

	mode := c.DefaultQuery("mode", "wt")
	if mode == "r" {
		badRequest(c, "mode r cannot be used for upload")
		return
	}

	body, err := decompressor(c.Request.Body, c.GetHeader("Content-Encoding"), h.maxUpload)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	defer body.Close()

	src := &bodyReader{r: body}
	written, err := h.docs.Write(id, mode, src, h.maxUpload)
	if err != nil {
		switch {
		case src.err != nil && oversized(src.err):
			tooLarge(c, src.err)
		case src.err != nil:
			_ = c.Error(err)
			badRequest(c, "unreadable request body: "+src.err.Error())
		default:
			respondError(c, err)
		}
		return
	}
	h.countBytes("write", written)

	c.JSON(http.StatusOK, gin.H{"id": id, "written": written})
}

// bodyReader remembers the first read error so a failed upload can be blamed
// on the client rather than the filesystem.
type bodyReader struct {
	r   io.Reader
	err error
}

func (b *bodyReader) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err != nil && err != io.EOF && b.err == nil {
		b.err = err
	}
	return n, err
}

// oversized reports whether a body read failed because a size cap was hit
// before the service's own limit.
func oversized(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) ||
		errors.Is(err, zstd.ErrDecoderSizeExceeded) ||
		errors.Is(err, zstd.ErrWindowSizeExceeded)
}

func tooLarge(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, errorResponse{Error: err.Error(), Code: "too_large"})
}

// Thumbnail returns the document bytes for use as a preview image.
func (h *Handlers) Thumbnail(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}
	size := 0
	if raw := c.Query("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			badRequest(c, "size must be a non-negative integer")
			return
		}
		size = parsed
	}

	doc, err := h.docs.QueryDocument(id)
	if err != nil {
		respondError(c, err)
		return
	}
	handle, err := h.docs.OpenThumbnail(id, size)
	if err != nil {
		respondError(c, err)
		return
	}
	defer handle.Close()

	c.Header("Content-Type", doc.MIMEType)
	http.ServeContent(c.Writer, c.Request, doc.DisplayName, time.UnixMilli(doc.LastModified), handle)
	h.countBytes("read", int64(c.Writer.Size()))
}

// outcome labels a finished content request for the service metrics.
func outcome(c *gin.Context) string {
	if len(c.Errors) > 0 || c.Writer.Status() >= http.StatusBadRequest {
		return "error"
	}
	return "ok"
}

func (h *Handlers) countBytes(direction string, n int64) {
	if h.metrics != nil {
		h.metrics.AddBytes(direction, n)
	}
}
