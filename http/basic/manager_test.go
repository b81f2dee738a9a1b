package basic

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpx "pflanzen/http"
	"pflanzen/logging"
)

func TestManager_StartAndCloseInReverseOrder(t *testing.T) {
	var (
		mu     sync.Mutex
		events []string
	)
	record := func(e string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	}
	hook := func(name string) Hook {
		return Hook{
			HookName: name,
			OnStart:  func(context.Context) error { record("start " + name); return nil },
			OnClose:  func() error { record("close " + name); return nil },
		}
	}

	m := NewManager().WithLogger(logging.NewNoopLogger()).WithServers(hook("a"), hook("b"))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	require.NoError(t, m.Run(ctx))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 4)
	assert.ElementsMatch(t, []string{"start a", "start b"}, events[:2])
	assert.Equal(t, []string{"close b", "close a"}, events[2:])
}

func TestManager_StartError(t *testing.T) {
	boom := stderrors.New("boom")
	m := NewManager().WithLogger(logging.NewNoopLogger()).Register(Hook{
		HookName: "broken",
		OnStart:  func(context.Context) error { return boom },
	})
	assert.ErrorIs(t, m.Run(context.Background()), boom)
}

func TestHTTPService(t *testing.T) {
	srv := NewHTTPServer(nil)
	srv.GET("/ping", func(ctx httpx.IHttpContext) error { return ctx.String(http.StatusOK, "pong") })

	svc := NewHTTPService(srv, "127.0.0.1:0", logging.NewNoopLogger())
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Close()

	resp, err := http.Get("http://" + svc.Addr() + "/ping")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(body))

	require.NoError(t, svc.Close())
}
