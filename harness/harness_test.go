package harness_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"deedles.dev/cascade/client"
	"deedles.dev/cascade/harness"
	"deedles.dev/cascade/inhibit"
	"deedles.dev/cascade/inhibitor"
	"deedles.dev/cascade/pointer"
	"deedles.dev/cascade/seat"
	"deedles.dev/cascade/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps tests from reading the user's configuration or
// creating sockets outside of a temporary directory.
func isolate(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)
	t.Setenv("HOME", t.TempDir())
	return dir
}

func start(t *testing.T, args ...string) *harness.DisplayServer {
	t.Helper()

	ds, err := harness.ServerIntegration.Create(args)
	require.NoError(t, err)
	t.Cleanup(func() { harness.ServerIntegration.Destroy(ds) })
	return ds
}

func connect(t *testing.T, ds *harness.DisplayServer) *client.Display {
	t.Helper()

	file, err := ds.CreateClientSocket()
	require.NoError(t, err)
	defer file.Close()

	conn, err := wire.FileConn(file)
	require.NoError(t, err)

	display := client.Connect(conn)
	t.Cleanup(func() { display.Close() })
	return display
}

func roundTrip(t *testing.T, display *client.Display) error {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return display.RoundTrip(ctx)
}

func registry(t *testing.T, display *client.Display) *client.Registry {
	t.Helper()

	r := display.GetRegistry()
	require.NoError(t, roundTrip(t, display))
	return r
}

func TestDescriptor(t *testing.T) {
	isolate(t)

	ds, err := harness.New(nil)
	require.NoError(t, err)

	desc := ds.Descriptor()
	assert.Equal(t, harness.IntegrationVersion, desc.Version)
	assert.Equal(t, []harness.ExtensionDescriptor{{Name: "zwlr_input_inhibit_manager_v1", Version: 1}}, desc.Extensions)
	assert.True(t, desc.Has(inhibitor.ManagerInterface))
}

func TestDisableExtension(t *testing.T) {
	isolate(t)

	ds := start(t, "--disable-extension", inhibitor.ManagerInterface)
	assert.Empty(t, ds.Descriptor().Extensions)
	assert.False(t, ds.Descriptor().Has(inhibitor.ManagerInterface))

	display := connect(t, ds)
	r := registry(t, display)
	_, ok := r.Find(inhibitor.ManagerInterface)
	assert.False(t, ok)

	_, err := client.BindInhibitManager(r)
	var notFound client.GlobalNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestDisableUnknownExtension(t *testing.T) {
	isolate(t)

	ds, err := harness.New([]string{"--disable-extension", "wl_nonexistent"})
	require.NoError(t, err)
	assert.True(t, ds.Descriptor().Has(inhibitor.ManagerInterface))
}

func TestBadArguments(t *testing.T) {
	isolate(t)

	_, err := harness.New([]string{"--no-such-flag"})
	assert.Error(t, err)
}

func TestSocketPath(t *testing.T) {
	dir := isolate(t)

	ds := start(t, "--socket", "cascade-test")
	assert.Equal(t, filepath.Join(dir, "cascade-test"), ds.SocketPath())

	display, err := client.DialPath(ds.SocketPath())
	require.NoError(t, err)
	defer display.Close()

	r := registry(t, display)
	_, ok := r.Find(inhibitor.ManagerInterface)
	assert.True(t, ok)
}

func TestStartTwice(t *testing.T) {
	isolate(t)

	ds := start(t)
	assert.ErrorIs(t, ds.Start(context.Background()), harness.ErrStarted)
}

func TestNotStarted(t *testing.T) {
	isolate(t)

	ds, err := harness.New(nil)
	require.NoError(t, err)

	_, err = ds.CreateClientSocket()
	assert.ErrorIs(t, err, harness.ErrNotStarted)
	assert.ErrorIs(t, ds.Stop(), harness.ErrNotStarted)
	assert.Empty(t, ds.SocketPath())
}

func TestInhibitAcrossClients(t *testing.T) {
	isolate(t)
	ds := start(t)
	ctrl := ds.Controller()

	first := connect(t, ds)
	m1, err := client.BindInhibitManager(registry(t, first))
	require.NoError(t, err)
	inh := m1.GetInhibitor()
	require.NoError(t, roundTrip(t, first))
	require.True(t, ctrl.IsInhibited())

	second := connect(t, ds)
	m2, err := client.BindInhibitManager(registry(t, second))
	require.NoError(t, err)
	m2.GetInhibitor()

	var perr *client.ProtocolError
	require.ErrorAs(t, roundTrip(t, second), &perr)
	assert.Equal(t, inhibitor.ErrorAlreadyInhibited, perr.Code)

	inh.Destroy()
	require.NoError(t, roundTrip(t, first))
	assert.False(t, ctrl.IsInhibited())
}

type inputLog struct {
	m   sync.Mutex
	got []inhibit.ClientID
}

func (l *inputLog) Deliver(to inhibit.ClientID, ev seat.Event) {
	l.m.Lock()
	defer l.m.Unlock()
	l.got = append(l.got, to)
}

func (l *inputLog) recipients() []inhibit.ClientID {
	l.m.Lock()
	defer l.m.Unlock()
	return append([]inhibit.ClientID(nil), l.got...)
}

func TestFakeInput(t *testing.T) {
	isolate(t)
	ds := start(t)

	var log inputLog
	ds.SetInputSink(&log)

	ptr := ds.CreatePointer()
	kbd := ds.CreateKeyboard()

	_, ok := ptr.Click(pointer.ButtonLeft)
	assert.False(t, ok, "no client has focus")

	holder := connect(t, ds)
	m, err := client.BindInhibitManager(registry(t, holder))
	require.NoError(t, err)

	ds.Seat().Focus(42)
	to, ok := kbd.Type(30)
	assert.True(t, ok)
	assert.Equal(t, inhibit.ClientID(42), to)

	m.GetInhibitor()
	require.NoError(t, roundTrip(t, holder))
	id, ok := ds.Controller().Holder()
	require.True(t, ok)

	to, ok = ptr.MoveBy(wire.FixedInt(10), wire.FixedInt(5))
	assert.True(t, ok)
	assert.Equal(t, id, to)

	x, y := ptr.Position()
	assert.Equal(t, 10, x.Int())
	assert.Equal(t, 5, y.Int())

	to, _ = kbd.Type(30)
	assert.Equal(t, id, to)

	holder.Close()
	require.Eventually(t, func() bool { return !ds.Controller().IsInhibited() }, 5*time.Second, time.Millisecond)

	to, _ = ptr.Click(pointer.ButtonRight)
	assert.Equal(t, inhibit.ClientID(42), to)

	assert.Equal(t, []inhibit.ClientID{42, 42, id, id, id, 42, 42}, log.recipients())
}

func TestFocusLostOnDisconnect(t *testing.T) {
	isolate(t)
	ds := start(t)

	display := connect(t, ds)
	require.NoError(t, roundTrip(t, display))

	// The only client connected so far gets the first ID.
	ds.Seat().Focus(1)
	display.Close()

	require.Eventually(t, func() bool {
		_, ok := ds.Seat().Focused()
		return !ok
	}, 5*time.Second, time.Millisecond)
}
