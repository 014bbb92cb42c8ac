package reload

import (
	"context"
	"log/slog"

	"github.com/yourname/staticserve/internal/logger"
)

// Coordinator ждёт запрос перезагрузки и останавливает сессию.
type Coordinator struct {
	sig    *Signal
	logger *slog.Logger
}

// NewCoordinator создаёт координатора для сигнала sig.
func NewCoordinator(sig *Signal, log *slog.Logger) *Coordinator {
	return &Coordinator{sig: sig, logger: logger.OrDiscard(log)}
}

// Watch запускает ожидающую горутину. session отменяется, когда сессия
// завершается по любой причине; stop просит сессию остановиться (graceful).
// Возвращённая функция дожидается горутины и отдаёт решение.
func (c *Coordinator) Watch(session context.Context, stop func() error) func() Decision {
	done := make(chan struct{})
	decision := Stop

	go func() {
		defer close(done)

		select {
		case d, ok := <-c.sig.C():
			if !ok || d != Restart {
				return
			}
			// Процесс уже завершается: перезагрузка проигрывает гонку.
			if session.Err() != nil {
				return
			}

			c.logger.Info("reload requested, stopping session")
			if err := stop(); err != nil {
				c.logger.Error("stop session for reload", logger.Error(err))
			}
			decision = Restart
		case <-session.Done():
		}
	}()

	return func() Decision {
		<-done
		return decision
	}
}

// Loop крутит сессии, пока run возвращает Restart и ctx жив.
func Loop(ctx context.Context, log *slog.Logger, run func(ctx context.Context) (Decision, error)) error {
	log = logger.OrDiscard(log)

	for {
		d, err := run(ctx)
		if err != nil {
			return err
		}
		if d != Restart || ctx.Err() != nil {
			log.Info("stop server")
			return nil
		}
		log.Info("restart server")
	}
}
