// Package reload решает, перезапускать ли сессию обслуживания после её остановки.
//
// Обработчики загрузок держат общий Signal и вызывают Request после успешной
// распаковки. Coordinator ждёт сигнал в отдельной горутине, останавливает сессию
// и сообщает решение: Restart, если остановка вызвана запросом, иначе Stop.
package reload

import "sync"

// Decision — итог сессии обслуживания.
type Decision int

const (
	// Stop — сессия завершилась сама (сигнал процесса, ошибка bind): выходим.
	Stop Decision = iota
	// Restart — сессию остановил запрос перезагрузки: поднимаем снова.
	Restart
)

func (d Decision) String() string {
	if d == Restart {
		return "restart"
	}
	return "stop"
}

// Signal — одноразовый канал запроса перезагрузки: много отправителей, один получатель.
// Учитывается только первый запрос.
type Signal struct {
	mu        sync.Mutex
	ch        chan Decision
	requested bool
	closed    bool
}

// NewSignal создаёт сигнал для одной сессии.
func NewSignal() *Signal {
	return &Signal{ch: make(chan Decision, 1)}
}

// Request отправляет запрос перезагрузки. Возвращает true только для первого
// запроса; последующие и запросы после Close ничего не делают.
func (s *Signal) Request() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.requested || s.closed {
		return false
	}
	s.requested = true
	s.ch <- Restart
	return true
}

// Requested сообщает, был ли запрос.
func (s *Signal) Requested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requested
}

// C возвращает сторону получателя. Закрытый канал без сообщения означает Stop.
func (s *Signal) C() <-chan Decision {
	return s.ch
}

// Close закрывает канал; повторный вызов безопасен.
func (s *Signal) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
