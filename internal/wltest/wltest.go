// Package wltest connects clients to servers over socket pairs for
// tests.
package wltest

import (
	"context"
	"testing"
	"time"

	"deedles.dev/cascade/client"
	"deedles.dev/cascade/server"
	"deedles.dev/cascade/wire"
	"github.com/stretchr/testify/require"
)

// Timeout bounds every RoundTrip.
const Timeout = 5 * time.Second

// StartServer runs a server without a listening socket until the test
// ends. setup, if not nil, is called before the server starts
// dispatching.
func StartServer(t *testing.T, setup func(*server.Server)) *server.Server {
	t.Helper()

	srv := server.NewServer(nil)
	if setup != nil {
		setup(srv)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Run(ctx, time.Millisecond)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		srv.Close()
	})
	return srv
}

// Connect adds a new client to srv and returns the client's end.
func Connect(t *testing.T, srv *server.Server) *client.Display {
	t.Helper()

	a, b, err := wire.SocketPair()
	require.NoError(t, err)
	defer a.Close()
	defer b.Close()

	sc, err := wire.FileUnixConn(a)
	require.NoError(t, err)
	require.NoError(t, srv.AddClient(sc))

	cc, err := wire.FileConn(b)
	require.NoError(t, err)

	display := client.Connect(cc)
	t.Cleanup(func() { display.Close() })
	return display
}

// RoundTrip calls display.RoundTrip with a timeout.
func RoundTrip(t *testing.T, display *client.Display) error {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()
	return display.RoundTrip(ctx)
}

// Registry gets the display's registry and waits for the initial
// globals.
func Registry(t *testing.T, display *client.Display) *client.Registry {
	t.Helper()

	r := display.GetRegistry()
	require.NoError(t, RoundTrip(t, display))
	return r
}

// Pump flushes srv on the calling goroutine until display has finished
// a round trip. Use it with a server that is not running so that a test
// can inspect server-side state between round trips.
func Pump(t *testing.T, srv *server.Server, display *client.Display) error {
	t.Helper()

	done := make(chan error, 1)
	go func() { done <- RoundTrip(t, display) }()

	for {
		select {
		case err := <-done:
			return err
		default:
			srv.Flush()
			time.Sleep(time.Millisecond)
		}
	}
}
