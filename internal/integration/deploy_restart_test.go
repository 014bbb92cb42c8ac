package integration

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourname/staticserve/internal/app/sitehttp"
	"github.com/yourname/staticserve/internal/config"
	"github.com/yourname/staticserve/internal/logger"
	"github.com/yourname/staticserve/internal/metrics"
	"github.com/yourname/staticserve/internal/reload"
	tu "github.com/yourname/staticserve/internal/testutil"
	"github.com/yourname/staticserve/pkg/deployclient"
)

const token = "integration"

type stack struct {
	base     string
	dir      string
	cfgPath  string
	sessions atomic.Int32
	done     chan error
	cancel   context.CancelFunc
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func (s *stack) writeConfig(t *testing.T, extra string) {
	t.Helper()
	cfg := fmt.Sprintf("addr: %q\ndir: %q\nroot: public\ntoken: %s\nshutdown_timeout: 5s\n%s",
		s.base[len("http://"):], s.dir, token, extra)
	require.NoError(t, os.WriteFile(s.cfgPath, []byte(cfg), 0o644))
}

// startStack крутит reload.Loop так же, как cmd/staticserve: конфиг перечитывается на каждую сессию.
func startStack(t *testing.T) *stack {
	t.Helper()

	root := t.TempDir()
	s := &stack{
		base:    "http://" + freeAddr(t),
		dir:     filepath.Join(root, "site"),
		cfgPath: filepath.Join(root, "config.yaml"),
		done:    make(chan error, 1),
	}
	s.writeConfig(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	m := metrics.New("it")
	log := logger.Discard()

	go func() {
		s.done <- reload.Loop(ctx, log, func(ctx context.Context) (reload.Decision, error) {
			cfg, err := config.Load(s.cfgPath)
			if err != nil {
				return reload.Stop, err
			}
			s.sessions.Add(1)
			return sitehttp.Session{Config: cfg, Metrics: m, Logger: log}.Run(ctx)
		})
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case <-s.done:
		case <-time.After(10 * time.Second):
			t.Error("server loop did not stop")
		}
	})

	s.waitUp(t)
	return s
}

func (s *stack) waitUp(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		resp, err := http.Get(s.base + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 10*time.Second, 20*time.Millisecond)
}

func (s *stack) get(t *testing.T, path string) (int, string) {
	t.Helper()
	var (
		code int
		body []byte
	)
	require.Eventually(t, func() bool {
		resp, err := http.Get(s.base + path)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		code = resp.StatusCode
		body, err = io.ReadAll(resp.Body)
		return err == nil
	}, 10*time.Second, 20*time.Millisecond)
	return code, string(body)
}

func push(ctx context.Context, base, name string, data []byte) error {
	_, err := deployclient.New(
		deployclient.WithToken(token),
		deployclient.WithRetries(5),
		deployclient.WithRetryWait(10*time.Millisecond, 100*time.Millisecond),
	).Upload(ctx, base, deployclient.UploadRequest{
		Name: name,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	})
	return err
}

func TestDeployRestartsAndServesNewContent(t *testing.T) {
	s := startStack(t)
	ctx := context.Background()

	code, _ := s.get(t, "/")
	assert.Equal(t, http.StatusNotFound, code)

	v1 := tu.TarZstd(t,
		tu.Dir("public/"),
		tu.Reg("public/index.html", "v1"),
		tu.Reg("public/pages/about.html", "about v1"),
	)
	require.NoError(t, push(ctx, s.base, "site.tar.zst", v1))

	require.Eventually(t, func() bool { return s.sessions.Load() == 2 }, 10*time.Second, 10*time.Millisecond)
	s.waitUp(t)
	_, body := s.get(t, "/")
	assert.Equal(t, "v1", body)

	// Новая сессия подхватывает изменённый конфиг.
	s.writeConfig(t, "routes:\n  /about: pages/about.html\n")
	v2 := tu.Tar(t, tu.Reg("public/index.html", "v2"))
	require.NoError(t, push(ctx, s.base, "site.tar", v2))

	require.Eventually(t, func() bool { return s.sessions.Load() == 3 }, 10*time.Second, 10*time.Millisecond)
	s.waitUp(t)
	_, body = s.get(t, "/")
	assert.Equal(t, "v2", body)
	code, body = s.get(t, "/about")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "about v1", body)
}

func TestRejectedUploadsDoNotRestart(t *testing.T) {
	s := startStack(t)
	ctx := context.Background()

	err := push(ctx, s.base, "evil.tar", tu.Tar(t, tu.Reg("public/ok.html", "ok"), tu.Reg("../escape.txt", "x")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")

	require.NoError(t, push(ctx, s.base, "notes.txt", []byte("not an archive")))

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), s.sessions.Load())

	_, err = os.Stat(filepath.Join(filepath.Dir(s.dir), "escape.txt"))
	assert.True(t, os.IsNotExist(err))

	// Записи до ошибочной остаются на диске.
	_, body := s.get(t, "/ok.html")
	assert.Equal(t, "ok", body)
}

func TestStopEndsLoop(t *testing.T) {
	s := startStack(t)
	s.cancel()

	select {
	case err := <-s.done:
		assert.NoError(t, err)
		s.done <- err // для Cleanup
	case <-time.After(10 * time.Second):
		t.Fatal("loop did not stop")
	}
	assert.Equal(t, int32(1), s.sessions.Load())
}
