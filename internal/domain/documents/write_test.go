package documents

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/DocSandbox/backend/internal/infrastructure/monitoring"
)

// failingReader yields data and then fails with err.
type failingReader struct {
	data string
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.data == "" {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestWriteModes(t *testing.T) {
	tests := []struct {
		mode string
		want string
	}{
		{"w", "NEW"},
		{"wt", "NEW"},
		{"rwt", "NEW"},
		{"wa", "original contentNEW"},
		{"rw", "NEWginal content"},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			rec := &closeRecorder{}
			svc := newTestService(t, Config{}, WithCloseListener(rec.record))
			path := filepath.Join(svc.Codec().Base(), "notes.txt")
			writeFile(t, path, "original content")

			n, err := svc.Write("root:notes.txt", tt.mode, strings.NewReader("NEW"), 0)
			require.NoError(t, err)
			assert.Equal(t, int64(3), n)

			got, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))

			require.Equal(t, 1, rec.calls)
			assert.NoError(t, rec.errs[0])
			assert.Equal(t, int64(len(tt.want)), rec.docs[0].Size)
		})
	}
}

func TestWriteKeepsPermissions(t *testing.T) {
	svc := newTestService(t, Config{})
	path := filepath.Join(svc.Codec().Base(), "script.sh")
	writeFile(t, path, "#!/bin/sh\n")
	require.NoError(t, os.Chmod(path, 0o750))

	_, err := svc.Write("root:script.sh", "wt", strings.NewReader("exit 0\n"), 0)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o750), info.Mode().Perm())
}

func TestWriteOverLimitKeepsContent(t *testing.T) {
	for _, mode := range []string{"wt", "wa", "rw"} {
		t.Run(mode, func(t *testing.T) {
			rec := &closeRecorder{}
			svc := newTestService(t, Config{}, WithCloseListener(rec.record))
			base := svc.Codec().Base()
			path := filepath.Join(base, "notes.txt")
			writeFile(t, path, "original content")

			_, err := svc.Write("root:notes.txt", mode, strings.NewReader(strings.Repeat("x", 2048)), 1024)
			assert.ErrorIs(t, err, ErrTooLarge)
			assert.Equal(t, ErrTooLarge, KindOf(err))

			got, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "original content", string(got))

			entries, err := os.ReadDir(base)
			require.NoError(t, err)
			assert.Len(t, entries, 1, "staging file must be removed")

			require.Equal(t, 1, rec.calls)
			assert.ErrorIs(t, rec.errs[0], ErrTooLarge)
			assert.Equal(t, int64(len("original content")), rec.docs[0].Size)
		})
	}
}

func TestWriteExactlyAtLimit(t *testing.T) {
	svc := newTestService(t, Config{})
	writeFile(t, filepath.Join(svc.Codec().Base(), "a.bin"), "")

	n, err := svc.Write("root:a.bin", "wt", strings.NewReader(strings.Repeat("x", 1024)), 1024)
	require.NoError(t, err)
	assert.Equal(t, int64(1024), n)
}

func TestWriteSourceFailureKeepsContent(t *testing.T) {
	rec := &closeRecorder{}
	svc := newTestService(t, Config{}, WithCloseListener(rec.record))
	path := filepath.Join(svc.Codec().Base(), "notes.txt")
	writeFile(t, path, "original content")

	boom := errors.New("connection reset")
	_, err := svc.Write("root:notes.txt", "wt", &failingReader{data: "partial", err: boom}, 0)
	assert.ErrorIs(t, err, ErrOperationFailed)
	assert.ErrorIs(t, err, boom)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "original content", string(got))

	require.Equal(t, 1, rec.calls)
	assert.ErrorIs(t, rec.errs[0], boom)
}

func TestWriteFailures(t *testing.T) {
	svc := newTestService(t, Config{})
	base := svc.Codec().Base()
	writeFile(t, filepath.Join(base, "dir", "a.txt"), "a")

	tests := []struct {
		name string
		id   string
		mode string
		want error
	}{
		{"read mode", "root:dir/a.txt", "r", ErrInvalidRequest},
		{"bad mode", "root:dir/a.txt", "zz", ErrInvalidRequest},
		{"directory", "root:dir", "wt", ErrInvalidRequest},
		{"missing", "root:dir/b.txt", "wt", ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Write(tt.id, tt.mode, strings.NewReader("x"), 0)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestWriteThroughSymlinkKeepsLink(t *testing.T) {
	svc := newTestService(t, Config{})
	base := svc.Codec().Base()
	writeFile(t, filepath.Join(base, "real.txt"), "old")
	require.NoError(t, os.Symlink("real.txt", filepath.Join(base, "alias.txt")))

	_, err := svc.Write("root:alias.txt", "wt", strings.NewReader("new"), 0)
	require.NoError(t, err)

	info, err := os.Lstat(filepath.Join(base, "alias.txt"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink)

	got, err := os.ReadFile(filepath.Join(base, "real.txt"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestWriteMetrics(t *testing.T) {
	metrics := monitoring.NewMetrics()
	svc := newTestService(t, Config{})
	svc.WithMetrics(metrics)
	writeFile(t, filepath.Join(svc.Codec().Base(), "a.txt"), "")

	_, err := svc.Write("root:a.txt", "wt", io.LimitReader(strings.NewReader("abc"), 3), 0)
	require.NoError(t, err)
	_, err = svc.Write("root:a.txt", "wt", strings.NewReader("abcdef"), 2)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ServiceCalls.WithLabelValues("documents", "write", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ServiceErrors.WithLabelValues("documents", "write", "too_large")))
	assert.Equal(t, int64(0), metrics.Snapshot().OpenHandles)
}
