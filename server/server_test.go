package server_test

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/iaconlabs/switchyard"
	"github.com/iaconlabs/switchyard/server"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

func TestServer_GracefulShutdown(t *testing.T) {
	requestStarted := make(chan struct{})

	slowHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(requestStarted)
		time.Sleep(1 * time.Second)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("finished"))
	})

	srv := server.New(server.Config{Addr: "127.0.0.1:0"}, slowHandler, nil)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start(t.Context())
	}()

	addr := srv.Addr()
	require.NotEmpty(t, addr)

	clientResult := make(chan string, 1)
	go func() {
		resp, err := http.Get("http://" + addr)
		if err != nil {
			clientResult <- "error: " + err.Error()
			return
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		clientResult <- string(body)
	}()

	<-requestStarted

	// Shut down while the request is still in flight.
	shutdownStart := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case res := <-clientResult:
		assert.Equal(t, "finished", res)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the client response")
	}

	select {
	case err := <-serverErr:
		assert.NoError(t, err)
	case <-time.After(1 * time.Second):
		t.Fatal("server did not stop after shutdown")
	}

	assert.GreaterOrEqual(t, time.Since(shutdownStart), 900*time.Millisecond,
		"shutdown should wait for the in-flight handler")
}

func TestServer_HostsRouter(t *testing.T) {
	rtr := switchyard.New()
	rtr.Get("/ping", func(*http.Request) (any, error) { return "pong", nil })
	require.NoError(t, rtr.Prepare())

	srv := server.New(server.Config{Addr: "127.0.0.1:0"}, rtr, nil)
	ctx, cancel := context.WithCancel(t.Context())

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	resp, err := http.Get("http://" + srv.Addr() + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := server.Config{Addr: ":8080", ReadTimeout: time.Second}.WithDefaults()

	assert.Equal(t, time.Second, cfg.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 60*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func TestServer_StartFailsOnBusyAddress(t *testing.T) {
	first := server.New(server.Config{Addr: "127.0.0.1:0"}, http.NotFoundHandler(), nil)
	done := make(chan error, 1)
	go func() { done <- first.Start(t.Context()) }()
	addr := first.Addr()

	second := server.New(server.Config{Addr: addr}, http.NotFoundHandler(), nil)
	assert.Error(t, second.Start(t.Context()))

	require.NoError(t, first.Shutdown(context.Background()))
	assert.NoError(t, <-done)
}
