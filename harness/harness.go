// Package harness lets a conformance test harness drive a cascade
// display server: construct one from command-line style arguments,
// find out which protocol extensions it supports, start and stop it,
// connect clients to it, and inject input.
package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"deedles.dev/cascade/inhibit"
	"deedles.dev/cascade/inhibitor"
	"deedles.dev/cascade/internal/config"
	"deedles.dev/cascade/internal/logger"
	"deedles.dev/cascade/seat"
	"deedles.dev/cascade/server"
	"deedles.dev/cascade/wire"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// IntegrationVersion is the version of the integration descriptor.
const IntegrationVersion uint32 = 1

// logOutput is where NewFromConfig sends logs.
var logOutput io.Writer = os.Stderr

var (
	ErrStarted    = errors.New("display server already started")
	ErrNotStarted = errors.New("display server not started")
)

// IntegrationDescriptor describes what a DisplayServer supports.
type IntegrationDescriptor struct {
	Version    uint32                `json:"version" toml:"version"`
	Extensions []ExtensionDescriptor `json:"extensions" toml:"extensions"`
}

// Has reports whether the named extension is advertised.
func (desc IntegrationDescriptor) Has(name string) bool {
	for _, ext := range desc.Extensions {
		if ext.Name == name {
			return true
		}
	}
	return false
}

// DisplayServer is a display server under test.
type DisplayServer struct {
	cfg       config.Config
	ctrl      *inhibit.Controller
	inhibitor *inhibitor.Extension
	exts      *Extensions
	seat      *seat.Seat
	desc      IntegrationDescriptor

	m      sync.Mutex
	srv    *server.Server
	cancel context.CancelFunc
	done   chan struct{}
	sink   seat.Sink
}

// New parses args, which should not include the program name, and
// returns a DisplayServer configured by them. The server does not
// listen until Start is called.
func New(args []string) (*DisplayServer, error) {
	fs := pflag.NewFlagSet("cascade", pflag.ContinueOnError)
	config.AddFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse arguments: %w", err)
	}

	cfg, err := config.Load(viper.New(), fs)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg), nil
}

// NewFromConfig returns a DisplayServer configured by cfg. It also
// applies cfg's logging settings to the shared logger.
func NewFromConfig(cfg config.Config) *DisplayServer {
	if (cfg.LogLevel != "") || (cfg.LogFormat != "") {
		logger.Setup(logOutput, cfg.LogLevel, logger.ParseFormat(cfg.LogFormat))
	}

	ds := DisplayServer{
		cfg:  cfg,
		ctrl: inhibit.New(),
	}
	ds.inhibitor, ds.exts = newExtensions(cfg, ds.ctrl)
	ds.seat = seat.New(ds.ctrl, seat.SinkFunc(ds.deliver))
	ds.desc = describe(ds.exts)
	return &ds
}

// DescriptorFor returns the descriptor that a DisplayServer created
// from cfg would report without creating one. Unlike NewFromConfig, it
// leaves the shared logger alone.
func DescriptorFor(cfg config.Config) IntegrationDescriptor {
	ext, exts := newExtensions(cfg, inhibit.New())
	defer ext.Close()

	return describe(exts)
}

func newExtensions(cfg config.Config, ctrl *inhibit.Controller) (*inhibitor.Extension, *Extensions) {
	ext := inhibitor.New(ctrl)
	exts := NewExtensions()
	exts.Add(ext)

	for _, name := range cfg.Extensions.Disabled {
		if err := exts.Disable(name); err != nil {
			logger.Warn("disable extension", "err", err)
		}
	}
	return ext, exts
}

func describe(exts *Extensions) IntegrationDescriptor {
	return IntegrationDescriptor{
		Version:    IntegrationVersion,
		Extensions: exts.Descriptors(),
	}
}

// Descriptor describes the extensions that the server advertises. It
// does not change after construction.
func (ds *DisplayServer) Descriptor() IntegrationDescriptor {
	return ds.desc
}

// Config returns the configuration that the server was created with.
func (ds *DisplayServer) Config() config.Config {
	return ds.cfg
}

// Controller returns the server's input inhibition controller.
func (ds *DisplayServer) Controller() *inhibit.Controller {
	return ds.ctrl
}

// Seat returns the seat that fake devices send input through.
func (ds *DisplayServer) Seat() *seat.Seat {
	return ds.seat
}

// SetInputSink sets where input routed by the seat ends up. By default
// it is only logged.
func (ds *DisplayServer) SetInputSink(sink seat.Sink) {
	ds.m.Lock()
	defer ds.m.Unlock()
	ds.sink = sink
}

func (ds *DisplayServer) deliver(to inhibit.ClientID, ev seat.Event) {
	ds.m.Lock()
	sink := ds.sink
	ds.m.Unlock()

	logger.Debug("input", "client", to, "event", ev)
	if sink != nil {
		sink.Deliver(to, ev)
	}
}

// Start starts listening and dispatching. The server runs until ctx is
// canceled or Stop is called.
func (ds *DisplayServer) Start(ctx context.Context) error {
	ds.m.Lock()
	defer ds.m.Unlock()

	if ds.srv != nil {
		return ErrStarted
	}

	lis, err := wire.Listen(ds.cfg.Socket)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	srv := server.NewServer(lis)
	srv.Listener = ds
	ds.exts.Install(srv)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Run(ctx, ds.cfg.FlushInterval)
	}()

	ds.srv, ds.cancel, ds.done = srv, cancel, done
	logger.Info("display server started", "socket", lis.Addr(), "extensions", len(ds.desc.Extensions))
	return nil
}

// Stop disconnects every client and stops the server. A stopped
// server can't be restarted.
func (ds *DisplayServer) Stop() error {
	ds.m.Lock()
	defer ds.m.Unlock()

	if ds.srv == nil {
		return ErrNotStarted
	}
	if ds.cancel == nil {
		return nil
	}

	ds.cancel()
	<-ds.done
	ds.cancel = nil

	err := ds.srv.Close()
	ds.inhibitor.Close()
	logger.Info("display server stopped")
	return err
}

// SocketPath returns the path of the listening socket.
func (ds *DisplayServer) SocketPath() string {
	ds.m.Lock()
	defer ds.m.Unlock()

	if ds.srv == nil {
		return ""
	}
	return ds.srv.Addr().String()
}

// CreateClientSocket returns a new socket already connected to the
// server, bypassing the listening socket. The caller owns the returned
// file.
func (ds *DisplayServer) CreateClientSocket() (*os.File, error) {
	ds.m.Lock()
	srv := ds.srv
	ds.m.Unlock()
	if srv == nil {
		return nil, ErrNotStarted
	}

	serverEnd, clientEnd, err := wire.SocketPair()
	if err != nil {
		return nil, err
	}
	defer serverEnd.Close()

	c, err := wire.FileUnixConn(serverEnd)
	if err != nil {
		clientEnd.Close()
		return nil, err
	}
	if err := srv.AddClient(c); err != nil {
		c.Close()
		clientEnd.Close()
		return nil, err
	}
	return clientEnd, nil
}

// CreatePointer returns a fake pointer attached to the server's seat.
func (ds *DisplayServer) CreatePointer() *Pointer {
	return &Pointer{seat: ds.seat}
}

// CreateKeyboard returns a fake keyboard attached to the server's
// seat.
func (ds *DisplayServer) CreateKeyboard() *Keyboard {
	return &Keyboard{seat: ds.seat}
}

// Client implements server.Listener.
func (ds *DisplayServer) Client(c *server.Client) {
	c.Log().Debug("client ready")
}

// ClientRemove implements server.Listener. A client that goes away
// loses focus.
func (ds *DisplayServer) ClientRemove(c *server.Client) {
	id, ok := ds.seat.Focused()
	if ok && (id == inhibit.ClientID(c.ID())) {
		ds.seat.Unfocus()
	}
}

// Integration is the table of entry points that a conformance harness
// uses to manage display servers.
type Integration struct {
	Version uint32
	Create  func(args []string) (*DisplayServer, error)
	Destroy func(ds *DisplayServer) error
}

// ServerIntegration creates started display servers.
var ServerIntegration = Integration{
	Version: IntegrationVersion,
	Create:  create,
	Destroy: destroy,
}

func create(args []string) (*DisplayServer, error) {
	ds, err := New(args)
	if err != nil {
		return nil, err
	}
	if err := ds.Start(context.Background()); err != nil {
		return nil, err
	}
	return ds, nil
}

func destroy(ds *DisplayServer) error {
	return ds.Stop()
}
