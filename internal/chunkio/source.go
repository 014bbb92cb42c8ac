package chunkio

import (
	"context"
	"fmt"
	"io"

	"github.com/yourname/staticserve/internal/models"
)

// DefaultChunkSize — размер одной доставки ReaderSource по умолчанию.
const DefaultChunkSize = 64 << 10

// ReaderSource доставляет данные io.Reader-транспорта порциями:
// один вызов Read — один чанк в новом буфере, которым дальше владеет мост.
type ReaderSource struct {
	r    io.Reader
	size int
	err  error
}

// NewReaderSource создаёт источник; size <= 0 означает DefaultChunkSize.
func NewReaderSource(r io.Reader, size int) *ReaderSource {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &ReaderSource{r: r, size: size}
}

// NextChunk читает следующую порцию. Ошибка, пришедшая вместе с данными,
// отдаётся следующим вызовом.
func (s *ReaderSource) NextChunk(ctx context.Context) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buf := make([]byte, s.size)
	n, err := s.r.Read(buf)
	if err != nil {
		s.err = err
		if n == 0 {
			return nil, err
		}
	}

	return buf[:n], nil
}

// SliceSource отдаёт заранее известный список чанков, затем io.EOF
// (или ошибку, заданную FailWith).
type SliceSource struct {
	chunks [][]byte
	next   int
	err    error
}

// NewSliceSource создаёт источник из чанков в порядке доставки.
func NewSliceSource(chunks ...[]byte) *SliceSource {
	return &SliceSource{chunks: chunks, err: io.EOF}
}

// Split режет data на чанки по размерам sizes, повторяя последний размер.
func Split(data []byte, sizes ...int) *SliceSource {
	if len(sizes) == 0 {
		sizes = []int{len(data)}
	}

	var chunks [][]byte
	for i := 0; len(data) > 0; i++ {
		sz := max(sizes[min(i, len(sizes)-1)], 1)
		if sz > len(data) {
			sz = len(data)
		}
		chunks = append(chunks, data[:sz])
		data = data[sz:]
	}

	return NewSliceSource(chunks...)
}

// FailWith завершает источник ошибкой err вместо io.EOF.
func (s *SliceSource) FailWith(err error) *SliceSource {
	s.err = err
	return s
}

func (s *SliceSource) NextChunk(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.chunks) {
		return nil, s.err
	}

	c := s.chunks[s.next]
	s.next++
	return c, nil
}

// LimitSource обрывает источник ошибкой models.ErrTooLarge, как только
// суммарный объём доставленных чанков превышает max.
type LimitSource struct {
	src  ChunkSource
	max  int64
	seen int64
}

// Limit оборачивает src; max <= 0 отключает ограничение.
func Limit(src ChunkSource, max int64) ChunkSource {
	if max <= 0 {
		return src
	}
	return &LimitSource{src: src, max: max}
}

func (l *LimitSource) NextChunk(ctx context.Context) ([]byte, error) {
	data, err := l.src.NextChunk(ctx)
	if err != nil {
		return nil, err
	}

	l.seen += int64(len(data))
	if l.seen > l.max {
		return nil, fmt.Errorf("%w: more than %d bytes", models.ErrTooLarge, l.max)
	}
	return data, nil
}
