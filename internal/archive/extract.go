// Package archive распаковывает tar-поток в каталог последовательно, запись за записью,
// без перемотки источника.
package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yourname/staticserve/internal/logger"
	"github.com/yourname/staticserve/internal/models"
)

// Entry описывает распакованную запись архива.
type Entry struct {
	Name string
	Type byte
	Size int64
}

// Stats — итог распаковки.
type Stats struct {
	Entries int
	Bytes   int64
	Skipped int
}

// Extractor пишет записи tar-потока в Root. Существующие файлы перезаписываются.
type Extractor struct {
	Root    string
	Logger  *slog.Logger
	OnEntry func(Entry)

	chtimes func(name string, atime, mtime time.Time) error
}

// New создаёт распаковщик в каталог root.
func New(root string, log *slog.Logger) *Extractor {
	return &Extractor{
		Root:   filepath.Clean(root),
		Logger: logger.OrDiscard(log),
	}
}

// Extract читает tar из r до конца архива. При первой ошибке распаковка
// прерывается; уже записанные файлы остаются на диске.
func (e *Extractor) Extract(ctx context.Context, r io.Reader) (Stats, error) {
	var st Stats
	log := logger.OrDiscard(e.Logger)
	tr := tar.NewReader(r)

	j, err := newJail(e.Root)
	if err != nil {
		return st, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return st, err
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return st, nil
		}
		if err != nil {
			return st, readError(err)
		}

		target, err := SafeJoin(e.Root, hdr.Name)
		if err != nil {
			return st, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err = j.check(hdr.Name, target); err != nil {
				return st, err
			}
			if err = os.MkdirAll(target, 0o755); err != nil {
				return st, fmt.Errorf("%w: create directory %s: %w", models.ErrIO, hdr.Name, err)
			}
		case tar.TypeReg:
			n, err := e.writeFile(j, target, tr, hdr)
			st.Bytes += n
			if err != nil {
				return st, err
			}
		case tar.TypeSymlink:
			if err = e.symlink(j, target, hdr); err != nil {
				return st, err
			}
		case tar.TypeLink:
			if err = e.hardlink(j, target, hdr); err != nil {
				return st, err
			}
		default:
			log.Debug("skip tar entry", "name", hdr.Name, "type", string(hdr.Typeflag))
			st.Skipped++
			continue
		}

		st.Entries++
		if e.OnEntry != nil {
			e.OnEntry(Entry{Name: hdr.Name, Type: hdr.Typeflag, Size: hdr.Size})
		}
	}
}

// SafeJoin склеивает root и имя записи архива. Абсолютные имена и имена,
// выходящие за root через "..", отклоняются с models.ErrExtract.
func SafeJoin(root, name string) (string, error) {
	local := filepath.FromSlash(strings.TrimPrefix(name, "./"))
	if local == "" || local == "." {
		return filepath.Clean(root), nil
	}
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("%w: entry %q escapes destination", models.ErrExtract, name)
	}

	cleanRoot := filepath.Clean(root)
	target := filepath.Join(cleanRoot, local)
	if target != cleanRoot && !strings.HasPrefix(target, cleanRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: entry %q escapes destination", models.ErrExtract, name)
	}

	return target, nil
}

func (e *Extractor) writeFile(j *jail, target string, r io.Reader, hdr *tar.Header) (int64, error) {
	if err := j.check(hdr.Name, filepath.Dir(target)); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("%w: create parent of %s: %w", models.ErrIO, hdr.Name, err)
	}
	// Не пишем сквозь оставшуюся на месте символическую ссылку.
	if err := removeSymlink(target); err != nil {
		return 0, fmt.Errorf("%w: %w", models.ErrIO, err)
	}

	mode := hdr.FileInfo().Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}

	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return 0, fmt.Errorf("%w: create file %s: %w", models.ErrIO, hdr.Name, err)
	}

	n, err := io.Copy(fileWriter{f}, r)
	// закрываем сразу, а не через defer: файлов в архиве может быть много
	closeErr := f.Close()
	if err != nil {
		if errors.Is(err, models.ErrIO) {
			return n, err
		}
		return n, readError(err)
	}
	if closeErr != nil {
		return n, fmt.Errorf("%w: close %s: %w", models.ErrIO, hdr.Name, closeErr)
	}

	if !hdr.ModTime.IsZero() {
		chtimes := e.chtimes
		if chtimes == nil {
			chtimes = os.Chtimes
		}
		if err = chtimes(target, hdr.ModTime, hdr.ModTime); err != nil {
			logger.OrDiscard(e.Logger).Debug("set mtime", "name", hdr.Name, logger.Error(err))
		}
	}

	return n, nil
}

func (e *Extractor) symlink(j *jail, target string, hdr *tar.Header) error {
	link := filepath.FromSlash(hdr.Linkname)
	if filepath.IsAbs(link) {
		return fmt.Errorf("%w: symlink %q points to absolute path", models.ErrExtract, hdr.Name)
	}

	parent := filepath.Dir(target)
	if err := j.check(hdr.Name, parent); err != nil {
		return err
	}
	// Цель не склеиваем через Join: "a/b/.." должно пройти через ссылку a/b на диске.
	if err := j.check(hdr.Name, parent+string(filepath.Separator)+link); err != nil {
		return fmt.Errorf("%w: symlink %q escapes destination", models.ErrExtract, hdr.Name)
	}

	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("%w: create parent of %s: %w", models.ErrIO, hdr.Name, err)
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: replace %s: %w", models.ErrIO, hdr.Name, err)
	}
	if err := os.Symlink(link, target); err != nil {
		return fmt.Errorf("%w: symlink %s: %w", models.ErrIO, hdr.Name, err)
	}

	return nil
}

func (e *Extractor) hardlink(j *jail, target string, hdr *tar.Header) error {
	source, err := SafeJoin(e.Root, hdr.Linkname)
	if err != nil {
		return err
	}
	if err = j.check(hdr.Linkname, source); err != nil {
		return err
	}
	if err = j.check(hdr.Name, filepath.Dir(target)); err != nil {
		return err
	}

	if err = os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("%w: create parent of %s: %w", models.ErrIO, hdr.Name, err)
	}
	if err = os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: replace %s: %w", models.ErrIO, hdr.Name, err)
	}
	if err = os.Link(source, target); err != nil {
		return fmt.Errorf("%w: link %s: %w", models.ErrIO, hdr.Name, err)
	}

	return nil
}

func removeSymlink(path string) error {
	fi, err := os.Lstat(path)
	if err != nil {
		return nil
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		return os.Remove(path)
	}
	return nil
}

// fileWriter помечает ошибки записи на диск как models.ErrIO,
// чтобы отличать их от ошибок чтения потока в io.Copy.
type fileWriter struct {
	f *os.File
}

func (w fileWriter) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	if err != nil {
		return n, fmt.Errorf("%w: %w", models.ErrIO, err)
	}
	return n, nil
}

// readError классифицирует ошибку чтения архива. Ошибки транспорта, декодера,
// лимита и отмены уже несут свой класс; остальное — повреждённый архив.
func readError(err error) error {
	switch {
	case errors.Is(err, models.ErrTransport),
		errors.Is(err, models.ErrDecode),
		errors.Is(err, models.ErrTooLarge),
		errors.Is(err, models.ErrIO),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", models.ErrExtract, err)
	}
}
