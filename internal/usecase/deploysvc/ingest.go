package deploysvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/yourname/staticserve/internal/archive"
	"github.com/yourname/staticserve/internal/logger"
	"github.com/yourname/staticserve/internal/metrics"
	"github.com/yourname/staticserve/internal/models"
)

// DetectFormat определяет формат по суффиксу имени (без учёта регистра).
func DetectFormat(name string) models.Format {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		return models.FormatTarZstd
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return models.FormatTarGzip
	case strings.HasSuffix(lower, ".tar"):
		return models.FormatTar
	default:
		return models.FormatUnknown
	}
}

// Ingest выбирает декодер по суффиксу и распаковывает поток в Dir.
// Неизвестный суффикс — не ошибка: часть пропускается, источник не читается.
// При успехе отправляется запрос перезагрузки; при ошибке — нет, а уже
// записанные файлы остаются.
func (s *Deploys) Ingest(ctx context.Context, name string, src io.Reader) (models.IngestResult, error) {
	res := models.IngestResult{Name: name, Format: DetectFormat(name)}
	log := s.Logger.With("archive", name, "format", string(res.Format))

	if res.Format == models.FormatUnknown {
		log.Info("skip upload part with unknown suffix")
		res.Skipped = true
		s.Metrics.ObserveArchive("", metrics.ResultSkipped, 0, 0, 0)
		return res, nil
	}

	start := time.Now()
	log.Info("untar")

	st, err := s.extract(ctx, res.Format, src)
	res.Entries, res.Bytes = st.Entries, st.Bytes
	if err != nil {
		log.Error("extract archive", logger.Error(err), slog.Int("entries", st.Entries), logger.Elapsed(start))
		s.Metrics.ObserveArchive(string(res.Format), metrics.ResultError, st.Entries, st.Bytes, time.Since(start))
		return res, fmt.Errorf("extract %s: %w", name, err)
	}

	log.Info("archive extracted", slog.Int("entries", st.Entries), slog.Int64("bytes", st.Bytes), logger.Elapsed(start))
	s.Metrics.ObserveArchive(string(res.Format), metrics.ResultOK, st.Entries, st.Bytes, time.Since(start))

	if s.Reloader != nil {
		s.Reloader.Request()
	}
	return res, nil
}

func (s *Deploys) extract(ctx context.Context, format models.Format, src io.Reader) (archive.Stats, error) {
	r, release, err := decoder(format, src)
	if err != nil {
		return archive.Stats{}, err
	}
	defer release()

	ex := archive.New(s.Dir, s.Logger)
	ex.OnEntry = func(e archive.Entry) {
		s.Logger.Debug("entry extracted", "name", e.Name, "size", e.Size)
	}
	return ex.Extract(ctx, r)
}

// decoder возвращает потоковый декодер поверх src. Декодер читает src по
// запросу распаковщика в той же горутине.
func decoder(format models.Format, src io.Reader) (io.Reader, func(), error) {
	switch format {
	case models.FormatTar:
		return src, func() {}, nil
	case models.FormatTarZstd:
		dec, err := zstd.NewReader(src,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(true),
		)
		if err != nil {
			return nil, nil, decodeError(err)
		}
		return decodeReader{dec}, dec.Close, nil
	case models.FormatTarGzip:
		zr, err := gzip.NewReader(src)
		if err != nil {
			return nil, nil, decodeError(err)
		}
		return decodeReader{zr}, func() { _ = zr.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("%w: unsupported format %q", models.ErrDecode, format)
	}
}

// decodeReader помечает ошибки декомпрессии классом models.ErrDecode.
type decodeReader struct {
	r io.Reader
}

func (d decodeReader) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		err = decodeError(err)
	}
	return n, err
}

func decodeError(err error) error {
	switch {
	case errors.Is(err, models.ErrTransport),
		errors.Is(err, models.ErrTooLarge),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", models.ErrDecode, err)
	}
}
