package archive

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourname/staticserve/internal/logger"
	tu "github.com/yourname/staticserve/internal/testutil"
)

func TestExtract_LogsMtimeFailure(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	root := t.TempDir()
	ex := New(root, logger.New(&logs, "debug"))
	ex.chtimes = func(string, time.Time, time.Time) error { return errors.New("read-only mount") }

	_, err := ex.Extract(context.Background(), bytes.NewReader(tu.Tar(t, tu.Reg("a.txt", "x"))))
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(root, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(b))

	assert.Contains(t, logs.String(), `msg="set mtime"`)
	assert.Contains(t, logs.String(), "name=a.txt")
	assert.Contains(t, logs.String(), `error="read-only mount"`)
}

func TestRealPath(t *testing.T) {
	t.Parallel()

	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a", "b"), 0o755))
	require.NoError(t, os.Symlink("a/b", filepath.Join(dir, "ab")))
	require.NoError(t, os.Symlink("missing", filepath.Join(dir, "dangling")))

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "plain", path: dir + "/a/b", want: dir + "/a/b"},
		{name: "missing_tail", path: dir + "/a/new/file", want: dir + "/a/new/file"},
		{name: "through_link", path: dir + "/ab/x", want: dir + "/a/b/x"},
		{name: "dotdot_after_link", path: dir + "/ab/..", want: dir + "/a"},
		{name: "dangling", path: dir + "/dangling/x", wantErr: true},
	}

	for _, tt := range tests {
		got, err := realPath(filepath.FromSlash(tt.path))
		if tt.wantErr {
			assert.Error(t, err, tt.name)
			continue
		}
		require.NoError(t, err, tt.name)
		assert.Equal(t, filepath.FromSlash(tt.want), got, tt.name)
	}
}
