package deployclient

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/docker/go-units"
)

const (
	meterCells  = 30
	redrawEvery = 120 * time.Millisecond
)

type meterPhase uint8

const (
	meterIdle meterPhase = iota // байтов ещё не было, строка не выводится
	meterRunning
	meterClosed
)

// meter — строка состояния одной попытки отправки. Нулевой *meter молчит.
type meter struct {
	mu sync.Mutex

	term  io.Writer
	label string
	size  int64 // 0, если размер неизвестен
	sent  int64
	due   time.Time
	phase meterPhase
}

func newMeter(term io.Writer, label string, size int64) *meter {
	if term == nil {
		return nil
	}
	return &meter{term: term, label: label, size: size}
}

func (m *meter) advance(n int64) {
	if m == nil || n <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.phase {
	case meterClosed:
		return
	case meterIdle:
		m.phase = meterRunning
	}
	m.sent += n

	now := time.Now()
	if now.Before(m.due) {
		return
	}
	m.due = now.Add(redrawEvery)
	m.draw("")
}

// done закрывает строку итогом: nil — успех. Повторные вызовы ничего не делают.
func (m *meter) done(err error) {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	running := m.phase == meterRunning
	m.phase = meterClosed
	if !running {
		return
	}

	if err != nil {
		m.draw(" ✗ " + err.Error() + "\n")
		return
	}
	m.draw(" ✓\n")
}

// draw возвращает каретку и стирает строку целиком перед выводом.
func (m *meter) draw(tail string) {
	fmt.Fprintf(m.term, "\r\x1b[2K%s%s", statusLine(m.label, m.sent, m.size), tail)
}

func statusLine(label string, sent, size int64) string {
	if size <= 0 {
		return label + " " + units.BytesSize(float64(sent)) + " sent"
	}

	pct := int(min(sent*100/size, 100))
	cells := pct * meterCells / 100

	var b strings.Builder
	b.WriteString(label)
	b.WriteString(" [")
	b.WriteString(strings.Repeat("#", cells))
	b.WriteString(strings.Repeat(".", meterCells-cells))
	fmt.Fprintf(&b, "] %3d%% %s of %s", pct, units.BytesSize(float64(sent)), units.BytesSize(float64(size)))
	return b.String()
}

// meteredWriter сообщает meter, сколько байт принял Writer.
type meteredWriter struct {
	io.Writer
	m *meter
}

func (w meteredWriter) Write(b []byte) (int, error) {
	n, err := w.Writer.Write(b)
	w.m.advance(int64(n))
	return n, err
}
