// Package deployclient загружает архивы сайта на POST /upload с повторами и индикатором прогресса.
package deployclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/yourname/staticserve/internal/models"
	"github.com/yourname/staticserve/pkg/deployproto"
)

const (
	defaultRetries = 3
	maxErrorBody   = 4 << 10
)

var (
	errAborted = errors.New("upload aborted")
	errRetry   = errors.New("retrying")
)

// UploadRequest описывает один архив. Open вызывается на каждую попытку.
type UploadRequest struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

type Client interface {
	// Upload отправляет архив и возвращает отчёт сервера.
	Upload(ctx context.Context, baseURL string, req UploadRequest) (models.DeployReport, error)
}

// Option настраивает клиента.
type Option func(*httpClient)

// WithToken задаёт статический токен загрузки.
func WithToken(token string) Option {
	return func(c *httpClient) { c.token = token }
}

// WithBearer задаёт JWT для заголовка Authorization.
func WithBearer(jwt string) Option {
	return func(c *httpClient) { c.bearer = jwt }
}

// WithRetries задаёт число повторов после первой попытки.
func WithRetries(n int) Option {
	return func(c *httpClient) { c.rc.RetryMax = n }
}

// WithRetryWait задаёт границы паузы между попытками.
func WithRetryWait(lo, hi time.Duration) Option {
	return func(c *httpClient) {
		c.rc.RetryWaitMin = lo
		c.rc.RetryWaitMax = hi
	}
}

// WithProgress выводит индикатор в w; nil отключает вывод.
func WithProgress(w io.Writer) Option {
	return func(c *httpClient) { c.progress = w }
}

// WithLogger подключает журнал повторов (подходит *slog.Logger).
func WithLogger(l retryablehttp.LeveledLogger) Option {
	return func(c *httpClient) { c.rc.Logger = l }
}

type httpClient struct {
	rc       *retryablehttp.Client
	token    string
	bearer   string
	progress io.Writer
}

// New создаёт HTTP-клиент загрузки.
func New(opts ...Option) Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = defaultRetries
	rc.Logger = nil
	// последний ответ нужен, чтобы показать статус сервера
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &httpClient{rc: rc}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upload стримит multipart-тело через pipe: файл не читается в память целиком.
func (h *httpClient) Upload(ctx context.Context, baseURL string, req UploadRequest) (models.DeployReport, error) {
	var report models.DeployReport

	u := strings.TrimRight(baseURL, "/") + deployproto.UploadPath

	tr := &tracker{out: h.progress, prefix: "Uploading " + req.Name, total: req.Size}
	defer tr.close()

	mw := multipart.NewWriter(io.Discard)
	boundary := mw.Boundary()

	// Open вызывается на каждую попытку (и один раз при построении запроса).
	body := retryablehttp.ReaderFunc(func() (io.Reader, error) {
		src, err := req.Open()
		if err != nil {
			return nil, err
		}

		pr, pw := io.Pipe()
		bar := tr.next(pr)
		go func() {
			defer src.Close()
			pw.CloseWithError(writeForm(meteredWriter{Writer: pw, m: bar}, boundary, req.Name, src))
		}()
		return pr, nil
	})

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, u, body)
	if err != nil {
		return report, err
	}
	httpReq.Header.Set("Content-Type", "multipart/form-data; boundary="+boundary)
	if h.token != "" {
		httpReq.Header.Set(deployproto.HeaderToken, h.token)
	}
	if h.bearer != "" {
		httpReq.Header.Set(deployproto.HeaderAuthorization, "Bearer "+h.bearer)
	}

	resp, err := h.rc.Do(httpReq)
	bar := tr.current()
	if err != nil {
		bar.done(err)
		return report, fmt.Errorf("upload %s: %w", req.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		err = fmt.Errorf("upload %s failed: %s: %s", req.Name, resp.Status, strings.TrimSpace(string(msg)))
		bar.done(err)
		return report, err
	}

	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		bar.done(err)
		return report, fmt.Errorf("decode report: %w", err)
	}

	bar.done(nil)
	return report, nil
}

// tracker держит индикатор и pipe текущей попытки.
type tracker struct {
	mu     sync.Mutex
	out    io.Writer
	prefix string
	total  int64
	bar    *meter
	pipes  []*io.PipeReader
}

func (t *tracker) next(pr *io.PipeReader) *meter {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.bar.done(errRetry)
	t.bar = newMeter(t.out, t.prefix, t.total)
	t.pipes = append(t.pipes, pr)
	return t.bar
}

func (t *tracker) current() *meter {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bar
}

// close освобождает писателей, чьи pipe транспорт не дочитал.
func (t *tracker) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, pr := range t.pipes {
		_ = pr.CloseWithError(errAborted)
	}
}

func writeForm(w io.Writer, boundary, name string, src io.Reader) error {
	mw := multipart.NewWriter(w)
	if err := mw.SetBoundary(boundary); err != nil {
		return err
	}

	part, err := mw.CreateFormFile(deployproto.FieldName, name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, src); err != nil {
		return err
	}
	return mw.Close()
}
