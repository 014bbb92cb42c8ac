// Package testutil собирает архивы и читает деревья каталогов для тестов.
package testutil

import (
	"archive/tar"
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
)

// File — запись будущего архива. Пустой Type означает обычный файл.
type File struct {
	Name     string
	Body     string
	Type     byte
	Linkname string
	Mode     int64
}

// Dir — запись каталога.
func Dir(name string) File {
	return File{Name: name, Type: tar.TypeDir, Mode: 0o755}
}

// Reg — обычный файл.
func Reg(name, body string) File {
	return File{Name: name, Body: body}
}

// Symlink — символическая ссылка name -> target.
func Symlink(name, target string) File {
	return File{Name: name, Type: tar.TypeSymlink, Linkname: target}
}

// Tar собирает несжатый tar.
func Tar(t testing.TB, files ...File) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	mtime := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for _, f := range files {
		typ := f.Type
		if typ == 0 {
			typ = tar.TypeReg
		}
		mode := f.Mode
		if mode == 0 {
			mode = 0o644
		}

		hdr := &tar.Header{
			Name:     f.Name,
			Typeflag: typ,
			Linkname: f.Linkname,
			Mode:     mode,
			ModTime:  mtime,
		}
		if typ == tar.TypeReg {
			hdr.Size = int64(len(f.Body))
		}

		require.NoError(t, tw.WriteHeader(hdr))
		if typ == tar.TypeReg {
			_, err := tw.Write([]byte(f.Body))
			require.NoError(t, err)
		}
	}

	require.NoError(t, tw.Close())
	return buf.Bytes()
}

// TarZstd собирает tar и сжимает его zstd.
func TarZstd(t testing.TB, files ...File) []byte {
	t.Helper()

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()

	return enc.EncodeAll(Tar(t, files...), nil)
}

// TarGzip собирает tar и сжимает его gzip.
func TarGzip(t testing.TB, files ...File) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(Tar(t, files...))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// ReadTree возвращает содержимое обычных файлов под root: относительный путь -> тело.
// Каталоги попадают в карту с суффиксом "/" и пустым телом.
func ReadTree(t testing.TB, root string) map[string]string {
	t.Helper()

	out := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return err
		}
		rel = filepath.ToSlash(rel)

		switch {
		case d.IsDir():
			out[rel+"/"] = ""
		case d.Type()&fs.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			out[rel] = "-> " + target
		default:
			b, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			out[rel] = string(b)
		}
		return nil
	})
	require.NoError(t, err)
	return out
}
