package httpserver_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/httpserver"
)

// start runs srv in the background and returns its base URL.
func start(t *testing.T, srv *httpserver.Server, ctx context.Context, h http.Handler) (string, <-chan error) {
	t.Helper()
	addrCh := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, h) }()

	require.Eventually(t, func() bool {
		if addr := srv.Addr(); addr != nil {
			addrCh <- addr
			return true
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
	return "http://" + (<-addrCh).String(), done
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
		return nil
	}
}

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("serves until context is cancelled", func(t *testing.T) {
		t.Parallel()
		var started atomic.Bool
		srv := httpserver.New(
			httpserver.WithAddr("127.0.0.1:0"),
			httpserver.WithStartHook(func(net.Addr) { started.Store(true) }),
		)
		ctx, cancel := context.WithCancel(context.Background())
		url, done := start(t, srv, ctx, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("ok"))
		}))

		resp, err := http.Get(url)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, "ok", string(body))
		assert.True(t, started.Load())

		cancel()
		assert.NoError(t, wait(t, done))
		assert.NoError(t, srv.Shutdown(context.Background()))
	})

	t.Run("drain hooks end long-lived handlers", func(t *testing.T) {
		t.Parallel()
		release := make(chan struct{})
		srv := httpserver.New(
			httpserver.WithAddr("127.0.0.1:0"),
			httpserver.WithShutdownTimeout(time.Second),
			httpserver.WithDrainHook(func(context.Context) { close(release) }),
		)
		entered := make(chan struct{})
		url, done := start(t, srv, context.Background(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_ = http.NewResponseController(w).Flush()
			close(entered)
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))

		go func() {
			resp, err := http.Get(url)
			if err == nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
			}
		}()
		<-entered

		begin := time.Now()
		require.NoError(t, srv.Shutdown(context.Background()))
		assert.Less(t, time.Since(begin), 900*time.Millisecond)
		assert.NoError(t, wait(t, done))
	})

	t.Run("in-flight requests finish with a live context", func(t *testing.T) {
		t.Parallel()
		srv := httpserver.New(
			httpserver.WithAddr("127.0.0.1:0"),
			httpserver.WithShutdownTimeout(2*time.Second),
		)
		entered := make(chan struct{})
		ctx, cancel := context.WithCancel(context.Background())
		url, done := start(t, srv, ctx, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			close(entered)
			select {
			case <-time.After(300 * time.Millisecond):
				_, _ = w.Write([]byte("done"))
			case <-r.Context().Done():
				w.WriteHeader(http.StatusInternalServerError)
			}
		}))

		type result struct {
			status int
			body   string
			err    error
		}
		resCh := make(chan result, 1)
		go func() {
			resp, err := http.Get(url)
			if err != nil {
				resCh <- result{err: err}
				return
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			resCh <- result{status: resp.StatusCode, body: string(body)}
		}()
		<-entered

		time.Sleep(50 * time.Millisecond)
		cancel()

		res := <-resCh
		require.NoError(t, res.err)
		assert.Equal(t, http.StatusOK, res.status)
		assert.Equal(t, "done", res.body)
		assert.NoError(t, wait(t, done))
	})

	t.Run("handlers past the timeout are cancelled", func(t *testing.T) {
		t.Parallel()
		srv := httpserver.New(
			httpserver.WithAddr("127.0.0.1:0"),
			httpserver.WithShutdownTimeout(100*time.Millisecond),
		)
		entered := make(chan struct{})
		stopped := make(chan struct{})
		url, done := start(t, srv, context.Background(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			close(entered)
			<-r.Context().Done()
			close(stopped)
		}))

		go func() {
			resp, err := http.Get(url)
			if err == nil {
				_ = resp.Body.Close()
			}
		}()
		<-entered

		err := srv.Shutdown(context.Background())
		assert.ErrorIs(t, err, httpserver.ErrShutdown)
		select {
		case <-stopped:
		case <-time.After(time.Second):
			t.Fatal("handler context was not cancelled after the timeout")
		}
		_ = wait(t, done)
	})

	t.Run("address in use", func(t *testing.T) {
		t.Parallel()
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer ln.Close()

		srv := httpserver.New(httpserver.WithAddr(ln.Addr().String()))
		err = srv.Run(context.Background(), nil)
		assert.True(t, errors.Is(err, httpserver.ErrStart))
	})

	t.Run("shutdown before run", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, httpserver.New().Shutdown(context.Background()))
	})
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	srv := httpserver.NewFromConfig(httpserver.Config{Addr: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())
	_, done := start(t, srv, ctx, nil)
	cancel()
	assert.NoError(t, wait(t, done))
}

func TestHealthHandlers(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	httpserver.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ALIVE", rec.Body.String())

	ok := httpserver.Check{Name: "db", Check: func(context.Context) error { return nil }}
	rec = httptest.NewRecorder()
	httpserver.ReadinessHandler(nil, time.Second, ok)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "READY", rec.Body.String())

	failing := httpserver.Check{Name: "db", Check: func(context.Context) error { return errors.New("down") }}
	rec = httptest.NewRecorder()
	httpserver.ReadinessHandler(nil, time.Second, ok, failing)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "NOT_READY", rec.Body.String())
}
