package sitehttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourname/staticserve/internal/chunkio"
	"github.com/yourname/staticserve/internal/logger"
	"github.com/yourname/staticserve/internal/models"
	"github.com/yourname/staticserve/pkg/deployproto"
	"github.com/yourname/staticserve/pkg/httperrors"
)

const fallbackFileName = "upload"

// upload читает multipart-поток по частям и отдаёт каждую часть "file" сервису
// распаковки. Части обрабатываются по очереди; первая ошибка прерывает запрос,
// уже распакованные архивы остаются на диске.
func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	log := s.Logger.With(logger.UploadID(id))

	mr, err := r.MultipartReader()
	if err != nil {
		httperrors.Write(w, fmt.Errorf("%w: %w", models.ErrTransport, err))
		return
	}

	report := models.DeployReport{UploadID: id, Archives: []models.IngestResult{}}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Warn("read multipart", logger.Error(err))
			httperrors.Write(w, fmt.Errorf("%w: %w", models.ErrTransport, err))
			return
		}

		if part.FormName() != deployproto.FieldName || part.FileName() == "" {
			_ = part.Close()
			continue
		}

		name := sanitizeFileName(part.FileName())
		pipe, stop := chunkio.Pump(r.Context(), part, int(s.Config.ChunkSize.Int64()))
		res, err := s.Deploys.IngestChunks(r.Context(), name, pipe)
		if err != nil {
			// Остаток тела не дочитываем: часть не закрываем, чтение обрываем.
			abortBody(w)
			stop()
			log.Debug("upload aborted", "name", name, logger.Error(err))
			httperrors.Write(w, err)
			return
		}
		stop()
		_ = part.Close()

		report.Archives = append(report.Archives, res)
		if res.Extracted() {
			report.Reload = true
		}
	}

	if len(report.Archives) == 0 {
		httperrors.Write(w, fmt.Errorf("%w: expected form field %q", models.ErrNoArchive, deployproto.FieldName))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}

// abortBody прекращает приём тела запроса: заблокированное чтение сразу
// возвращает ошибку, а соединение закрывается после ответа без дочитывания.
func abortBody(w http.ResponseWriter) {
	w.Header().Set("Connection", "close")
	_ = http.NewResponseController(w).SetReadDeadline(time.Now())
}

// sanitizeFileName оставляет только базовое имя без управляющих и зарезервированных символов.
func sanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(`/\:*?"<>|`, r) {
			continue
		}
		b.WriteRune(r)
	}

	out := strings.Trim(b.String(), ". ")
	if out == "" {
		return fallbackFileName
	}
	return out
}
