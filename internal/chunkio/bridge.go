package chunkio

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/yourname/staticserve/internal/models"
)

// ChunkSource — push-транспорт, доставляющий байты порциями.
// NextChunk блокируется, пока порция не готова; io.EOF означает конец источника.
// Пустая порция допустима и не означает конец данных.
type ChunkSource interface {
	NextChunk(ctx context.Context) ([]byte, error)
}

// chunk — принятая порция и курсор уже прочитанных байт (pos <= len(buf)).
type chunk struct {
	buf []byte
	pos int
}

func (c *chunk) remaining() []byte { return c.buf[c.pos:] }

func (c *chunk) exhausted() bool { return c.pos >= len(c.buf) }

// Bridge реализует io.Reader и io.ByteReader поверх ChunkSource.
// Не безопасен для конкурентного использования: читатель один.
type Bridge struct {
	ctx context.Context
	src ChunkSource

	// cur == nil — состояние Empty, иначе Holding.
	cur *chunk
	// peek — сколько байт открыл последний Fill и ещё можно Consume.
	peek int
	// err залипает: после ошибки транспорта или EOF источник больше не опрашивается.
	err error
}

// NewBridge создаёт мост. ctx передаётся в каждый NextChunk и отменяет ожидание.
func NewBridge(ctx context.Context, src ChunkSource) *Bridge {
	return &Bridge{ctx: ctx, src: src}
}

// Fill возвращает срез ещё не прочитанных байт удерживаемого чанка без копирования.
// Если чанка нет, опрашивает источник. Конец данных — (nil, io.EOF).
// Срез действителен до следующего вызова Consume, Read или Fill.
func (b *Bridge) Fill() ([]byte, error) {
	for {
		if b.cur != nil && !b.cur.exhausted() {
			view := b.cur.remaining()
			b.peek = len(view)
			return view, nil
		}
		b.cur = nil
		b.peek = 0

		if b.err != nil {
			return nil, b.err
		}

		data, err := b.src.NextChunk(b.ctx)
		if err != nil {
			b.err = classify(err)
			return nil, b.err
		}

		// Пустой чанк не сохраняем: следующий виток снова уйдёт в NextChunk.
		if len(data) > 0 {
			b.cur = &chunk{buf: data}
		}
	}
}

// Consume сдвигает курсор на n байт из открытых последним Fill.
func (b *Bridge) Consume(n int) {
	if n < 0 || n > b.peek {
		panic(fmt.Sprintf("chunkio: consume %d bytes, only %d filled", n, b.peek))
	}
	if n == 0 {
		return
	}

	b.cur.pos += n
	b.peek -= n
	if b.cur.exhausted() {
		b.cur = nil
		b.peek = 0
	}
}

// Read копирует в p не больше, чем доступно в текущем чанке.
// 0, io.EOF возвращается только в конце источника.
func (b *Bridge) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	view, err := b.Fill()
	if err != nil {
		return 0, err
	}

	n := copy(p, view)
	b.Consume(n)
	return n, nil
}

// ReadByte реализует io.ByteReader: декодеры не заворачивают мост в лишний bufio.
func (b *Bridge) ReadByte() (byte, error) {
	view, err := b.Fill()
	if err != nil {
		return 0, err
	}

	c := view[0]
	b.Consume(1)
	return c, nil
}

// Buffered возвращает число байт, доступных без обращения к источнику.
func (b *Bridge) Buffered() int {
	if b.cur == nil {
		return 0
	}
	return len(b.cur.remaining())
}

// classify приводит ошибку источника к классу models.ErrTransport.
// io.EOF и отмена контекста возвращаются как есть.
func classify(err error) error {
	switch {
	case errors.Is(err, io.EOF):
		return io.EOF
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, models.ErrTransport), errors.Is(err, models.ErrTooLarge):
		return err
	default:
		return fmt.Errorf("%w: %w", models.ErrTransport, err)
	}
}
