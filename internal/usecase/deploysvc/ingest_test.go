package deploysvc_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourname/staticserve/internal/chunkio"
	"github.com/yourname/staticserve/internal/metrics"
	"github.com/yourname/staticserve/internal/models"
	"github.com/yourname/staticserve/internal/reload"
	tu "github.com/yourname/staticserve/internal/testutil"
	"github.com/yourname/staticserve/internal/usecase/deploysvc"
)

type countingReloader struct {
	calls atomic.Int32
}

func (r *countingReloader) Request() bool {
	return r.calls.Add(1) == 1
}

func site(t *testing.T) []tu.File {
	t.Helper()

	big := bytes.Repeat([]byte("0123456789abcdef"), 700) // > нескольких блоков tar
	return []tu.File{
		tu.Dir("public/"),
		tu.Reg("public/index.html", "<html>index</html>"),
		tu.Reg("public/assets/app.js", string(big)),
		tu.Reg("public/assets/app.css", "body{margin:0}"),
		tu.Symlink("public/start.html", "index.html"),
	}
}

func newService(t *testing.T, dir string, r deploysvc.Reloader) *deploysvc.Deploys {
	t.Helper()
	return deploysvc.New(deploysvc.Deps{Dir: dir, Reloader: r, Metrics: metrics.New("test")})
}

func TestDetectFormat(t *testing.T) {
	t.Parallel()

	tests := map[string]models.Format{
		"site.tar":     models.FormatTar,
		"SITE.TAR":     models.FormatTar,
		"site.tar.zst": models.FormatTarZstd,
		"site.tzst":    models.FormatTarZstd,
		"site.tar.gz":  models.FormatTarGzip,
		"site.tgz":     models.FormatTarGzip,
		"site.zip":     models.FormatUnknown,
		"site.tar.bz2": models.FormatUnknown,
		"tar":          models.FormatUnknown,
		"":             models.FormatUnknown,
	}
	for name, want := range tests {
		assert.Equal(t, want, deploysvc.DetectFormat(name), name)
	}
}

func TestIngest_ChunkSizesGiveIdenticalTrees(t *testing.T) {
	t.Parallel()

	data := tu.Tar(t, site(t)...)

	var trees []map[string]string
	for _, size := range []int{1, 7, 512, 4096} {
		dir := t.TempDir()
		rl := &countingReloader{}

		res, err := newService(t, dir, rl).IngestChunks(context.Background(), "site.tar", chunkio.Split(data, size))
		require.NoError(t, err, "chunk size %d", size)
		assert.Equal(t, 5, res.Entries)
		assert.EqualValues(t, 1, rl.calls.Load())

		trees = append(trees, tu.ReadTree(t, dir))
	}

	for i := 1; i < len(trees); i++ {
		assert.Equal(t, trees[0], trees[i])
	}
	assert.Equal(t, "<html>index</html>", trees[0]["public/index.html"])
}

func TestIngest_CompressedEqualsPlain(t *testing.T) {
	t.Parallel()

	files := site(t)
	plainDir := t.TempDir()
	_, err := newService(t, plainDir, nil).IngestChunks(context.Background(), "site.tar", chunkio.Split(tu.Tar(t, files...), 4096))
	require.NoError(t, err)
	want := tu.ReadTree(t, plainDir)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "site.tar.zst", data: tu.TarZstd(t, files...)},
		{name: "site.tzst", data: tu.TarZstd(t, files...)},
		{name: "site.tar.gz", data: tu.TarGzip(t, files...)},
		{name: "site.tgz", data: tu.TarGzip(t, files...)},
	}

	for _, tt := range tests {
		for _, size := range []int{1, 7, 512, 4096} {
			dir := t.TempDir()
			rl := &countingReloader{}

			res, err := newService(t, dir, rl).IngestChunks(context.Background(), tt.name, chunkio.Split(tt.data, size))
			require.NoError(t, err, "%s chunk size %d", tt.name, size)
			assert.Equal(t, deploysvc.DetectFormat(tt.name), res.Format)
			assert.Equal(t, want, tu.ReadTree(t, dir), "%s chunk size %d", tt.name, size)
			assert.EqualValues(t, 1, rl.calls.Load())
		}
	}
}

func TestIngest_OneReloadForManyEntries(t *testing.T) {
	t.Parallel()

	var files []tu.File
	for i := 0; i < 20; i++ {
		files = append(files, tu.Reg(fmt.Sprintf("page-%02d.html", i), "page"))
	}

	sig := reload.NewSignal()
	_, err := newService(t, t.TempDir(), sig).Ingest(context.Background(), "pages.tar", bytes.NewReader(tu.Tar(t, files...)))
	require.NoError(t, err)

	sig.Close()
	var got []reload.Decision
	for d := range sig.C() {
		got = append(got, d)
	}
	assert.Equal(t, []reload.Decision{reload.Restart}, got)
}

func TestIngest_FailureKeepsEarlierEntriesAndSkipsReload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	data := tu.Tar(t,
		tu.Reg("1.txt", "one"),
		tu.Reg("2.txt", "two"),
		tu.Reg("../escape.txt", "three"),
		tu.Reg("4.txt", "four"),
		tu.Reg("5.txt", "five"),
	)

	rl := &countingReloader{}
	res, err := newService(t, dir, rl).IngestChunks(context.Background(), "bad.tar", chunkio.Split(data, 7))
	require.ErrorIs(t, err, models.ErrExtract)
	assert.Equal(t, 2, res.Entries)

	assert.Equal(t, map[string]string{"1.txt": "one", "2.txt": "two"}, tu.ReadTree(t, dir))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(dir), "escape.txt"))
	assert.Zero(t, rl.calls.Load())
}

func TestIngest_UnknownSuffixIsSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rl := &countingReloader{}

	// Источник с ошибкой: пропуск не должен его читать.
	src := chunkio.NewSliceSource().FailWith(errors.New("must not be read"))

	res, err := newService(t, dir, rl).IngestChunks(context.Background(), "readme.txt", src)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.False(t, res.Extracted())
	assert.Zero(t, rl.calls.Load())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIngest_Errors(t *testing.T) {
	t.Parallel()

	data := tu.Tar(t, site(t)...)
	boom := errors.New("connection reset by peer")

	tests := []struct {
		name    string
		file    string
		src     chunkio.ChunkSource
		max     int64
		wantErr error
	}{
		{
			name:    "corrupt_zstd",
			file:    "site.tar.zst",
			src:     chunkio.Split(bytes.Repeat([]byte{0xde, 0xad}, 512), 64),
			wantErr: models.ErrDecode,
		},
		{
			name:    "corrupt_gzip",
			file:    "site.tar.gz",
			src:     chunkio.Split([]byte("definitely not gzip"), 4),
			wantErr: models.ErrDecode,
		},
		{
			name:    "transport_failure_mid_tar",
			file:    "site.tar",
			src:     chunkio.Split(data[:2000], 512).FailWith(boom),
			wantErr: models.ErrTransport,
		},
		{
			name:    "too_large",
			file:    "site.tar",
			src:     chunkio.Split(data, 512),
			max:     1024,
			wantErr: models.ErrTooLarge,
		},
		{
			name:    "truncated_tar",
			file:    "site.tar",
			src:     chunkio.Split(data[:1500], 512),
			wantErr: models.ErrExtract,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rl := &countingReloader{}
			svc := deploysvc.New(deploysvc.Deps{Dir: t.TempDir(), Reloader: rl, MaxBytes: tt.max})

			_, err := svc.IngestChunks(context.Background(), tt.file, tt.src)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, rl.calls.Load())
		})
	}
}

func TestIngest_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rl := &countingReloader{}
	_, err := newService(t, t.TempDir(), rl).IngestChunks(ctx, "site.tar", chunkio.NewPipe())
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, rl.calls.Load())
}
