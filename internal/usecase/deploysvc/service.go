package deploysvc

import (
	"context"
	"io"
	"log/slog"

	"github.com/yourname/staticserve/internal/chunkio"
	"github.com/yourname/staticserve/internal/logger"
	"github.com/yourname/staticserve/internal/metrics"
	"github.com/yourname/staticserve/internal/models"
)

type (
	// Reloader принимает запрос перезагрузки после успешной распаковки.
	Reloader interface {
		Request() bool
	}

	// Service распаковывает загруженные архивы в каталог сайта.
	Service interface {
		// Ingest распаковывает архив name из pull-источника src.
		Ingest(ctx context.Context, name string, src io.Reader) (models.IngestResult, error)
		// IngestChunks строит мост над push-источником и вызывает Ingest.
		IngestChunks(ctx context.Context, name string, src chunkio.ChunkSource) (models.IngestResult, error)
	}
)

type Deps struct {
	// Dir — корень распаковки.
	Dir      string
	Reloader Reloader
	Metrics  *metrics.Collector
	Logger   *slog.Logger
	// MaxBytes ограничивает объём сырых байт одной части; 0 — без ограничения.
	MaxBytes int64
}

type Deploys struct {
	Deps
}

// New конструирует сервис распаковки с заданными зависимостями.
func New(deps Deps) *Deploys {
	deps.Logger = logger.OrDiscard(deps.Logger)
	return &Deploys{Deps: deps}
}

var _ Service = (*Deploys)(nil)

// IngestChunks оборачивает src лимитом MaxBytes и мостом chunkio.Bridge.
func (s *Deploys) IngestChunks(ctx context.Context, name string, src chunkio.ChunkSource) (models.IngestResult, error) {
	return s.Ingest(ctx, name, chunkio.NewBridge(ctx, chunkio.Limit(src, s.MaxBytes)))
}
