package control

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ble-autolock.klederson.com/internal/monitor"
)

// Unix socket paths are length-limited, so keep them short.
func socketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "bal")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return filepath.Join(dir, "c.sock")
}

func serve(t *testing.T, path string, h Handler) (cancel func(), done <-chan error) {
	t.Helper()
	srv, err := Listen(path, h, nil)
	require.NoError(t, err)
	ctx, cancelFn := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ctx) }()
	return cancelFn, errc
}

func TestStatusRoundTrip(t *testing.T) {
	path := socketPath(t)
	cancel, done := serve(t, path, func(req Request) Response {
		if req.Command != CmdStatus {
			return Response{Error: "unexpected " + req.Command}
		}
		return Response{PID: 42, Status: &monitor.Status{DeviceID: "AA:BB:CC:DD:EE:FF", Samples: 7}}
	})
	defer cancel()

	resp, err := Call(path, Request{Command: CmdStatus})
	require.NoError(t, err)
	assert.Equal(t, 42, resp.PID)
	require.NotNil(t, resp.Status)
	assert.Equal(t, 7, resp.Status.Samples)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestHandlerErrorSurfaces(t *testing.T) {
	path := socketPath(t)
	cancel, _ := serve(t, path, func(Request) Response { return Response{Error: "unknown command"} })
	defer cancel()

	_, err := Call(path, Request{Command: "bogus"})
	assert.EqualError(t, err, "unknown command")
}

func TestCallWithoutServer(t *testing.T) {
	_, err := Call(socketPath(t), Request{Command: CmdStatus})
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestListenRefusesLiveSocket(t *testing.T) {
	path := socketPath(t)
	cancel, _ := serve(t, path, func(Request) Response { return Response{} })
	defer cancel()

	_, err := Listen(path, func(Request) Response { return Response{} }, nil)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestListenReplacesStaleSocket(t *testing.T) {
	path := socketPath(t)
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	cancel, _ := serve(t, path, func(Request) Response { return Response{PID: 1} })
	defer cancel()

	resp, err := Call(path, Request{Command: CmdStop})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.PID)
}
