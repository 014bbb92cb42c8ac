package chunkio

import (
	"context"
	"io"
	"sync"
)

// Pipe — push-конец для транспорта, который сам доставляет чанки.
// Push блокируется, пока читатель не заберёт чанк: вперёд не буферизуется ничего.
// Push и Close вызываются одним производителем последовательно.
type Pipe struct {
	ch   chan []byte
	done chan struct{}
	once sync.Once

	mu  sync.Mutex
	err error
}

// NewPipe создаёт пустой Pipe.
func NewPipe() *Pipe {
	return &Pipe{
		ch:   make(chan []byte),
		done: make(chan struct{}),
	}
}

// Push передаёт чанк читателю. Владение срезом переходит к читателю.
func (p *Pipe) Push(ctx context.Context, data []byte) error {
	select {
	case p.ch <- data:
		return nil
	case <-p.done:
		return io.ErrClosedPipe
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close завершает поток: читатель получит io.EOF.
func (p *Pipe) Close() error {
	p.CloseWithError(nil)
	return nil
}

// CloseWithError завершает поток ошибкой err (nil — io.EOF). Повторные вызовы игнорируются.
func (p *Pipe) CloseWithError(err error) {
	if err == nil {
		err = io.EOF
	}
	p.once.Do(func() {
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
		close(p.done)
	})
}

// NextChunk ждёт очередной Push, закрытия или отмены ctx.
func (p *Pipe) NextChunk(ctx context.Context) ([]byte, error) {
	select {
	case data := <-p.ch:
		return data, nil
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return nil, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Pump читает r порциями по size в отдельной горутине и проталкивает их в Pipe:
// следующая порция читается из сети, пока потребитель разбирает текущую.
// Возвращённая функция закрывает Pipe и ждёт горутину; после неё r свободен.
// Если горутина стоит в r.Read, ожидание длится до возврата из него:
// зависшее чтение прерывает владелец r (дедлайном или закрытием).
func Pump(ctx context.Context, r io.Reader, size int) (*Pipe, func()) {
	p := NewPipe()
	src := NewReaderSource(r, size)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			chunk, err := src.NextChunk(ctx)
			if err != nil {
				p.CloseWithError(err)
				return
			}
			if err := p.Push(ctx, chunk); err != nil {
				return
			}
		}
	}()

	return p, func() {
		p.CloseWithError(io.ErrClosedPipe)
		<-done
	}
}
