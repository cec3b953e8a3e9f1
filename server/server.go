// Package server implements the server side of the Wayland protocol:
// accepting connections, dispatching requests to protocol objects, and
// advertising globals through wl_registry.
//
// All requests are dispatched on whichever goroutine calls Flush or
// Run. Unless otherwise noted, methods of Server and Client must only
// be called from that goroutine, from a Listener or Global callback, or
// before Run has been started.
package server

import (
	"context"
	"errors"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"deedles.dev/cascade/internal/cq"
	"deedles.dev/cascade/internal/logger"
	"deedles.dev/cascade/internal/set"
	"deedles.dev/cascade/wire"
)

// ErrClosed is returned when an operation is attempted on a closed
// Server.
var ErrClosed = errors.New("server closed")

// Listener is notified of clients connecting and disconnecting.
type Listener interface {
	Client(c *Client)
	ClientRemove(c *Client)
}

// Global is an object advertised to clients through wl_registry.
type Global interface {
	Interface() string
	Version() uint32

	// Bind is called when a client binds the global. id is the
	// client-chosen ID of the new object and version is the version
	// the client asked for, which is never higher than Version.
	Bind(client *Client, id, version uint32) error
}

type Server struct {
	Listener Listener

	done    chan struct{}
	close   sync.Once
	lis     *net.UnixListener
	clients set.Set[*Client]
	queue   *cq.Queue[func() error]

	globals  map[uint32]Global
	nextName uint32
	serial   uint32
	nextID   atomic.Uint64
}

// Listen opens a socket with wire.Listen and serves it.
func Listen(name string) (*Server, error) {
	lis, err := wire.Listen(name)
	if err != nil {
		return nil, err
	}
	return NewServer(lis), nil
}

// ListenAndServe serves on the first free wayland-N socket in
// $XDG_RUNTIME_DIR.
func ListenAndServe() (*Server, error) {
	return Listen("")
}

// NewServer returns a Server that accepts connections from lis. If lis
// is nil, the server only serves clients added with AddClient.
func NewServer(lis *net.UnixListener) *Server {
	server := Server{
		done:     make(chan struct{}),
		lis:      lis,
		clients:  make(set.Set[*Client]),
		queue:    cq.New[func() error](),
		globals:  make(map[uint32]Global),
		nextName: 1,
	}
	if lis != nil {
		go server.listen()
	}

	return &server
}

func (server *Server) listen() {
	for {
		c, err := server.lis.AcceptUnix()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}

			select {
			case <-server.done:
				return
			case server.queue.Add() <- func() error { return err }:
				continue
			}
		}

		select {
		case <-server.done:
			c.Close()
			return
		case server.queue.Add() <- func() error { server.addClient(c); return nil }:
		}
	}
}

// Addr returns the address of the listening socket, or nil if there
// isn't one.
func (server *Server) Addr() net.Addr {
	if server.lis == nil {
		return nil
	}
	return server.lis.Addr()
}

// AddClient serves an already connected socket as though it had been
// accepted from the listener. The client is added during the next
// Flush. It is safe to call concurrently with Flush.
func (server *Server) AddClient(c *net.UnixConn) error {
	ok := server.queue.Push(func() error { server.addClient(c); return nil })
	if !ok {
		return ErrClosed
	}
	return nil
}

func (server *Server) addClient(c *net.UnixConn) {
	client := newClient(server, ClientID(server.nextID.Add(1)), wire.NewConn(c))
	server.clients.Add(client)
	logger.Info("client connected", "client", client.ID())

	if server.Listener != nil {
		server.Listener.Client(client)
	}
}

func (server *Server) removeClient(client *Client) {
	if !server.clients.Has(client) {
		return
	}
	server.clients.Remove(client)
	client.teardown()
	logger.Info("client disconnected", "client", client.ID())

	if server.Listener != nil {
		server.Listener.ClientRemove(client)
	}
}

// Clients returns the connected clients ordered by ID.
func (server *Server) Clients() []*Client {
	clients := make([]*Client, 0, len(server.clients))
	for c := range server.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })
	return clients
}

// AddGlobal advertises g to all existing and future registries and
// returns its name.
func (server *Server) AddGlobal(g Global) uint32 {
	name := server.nextName
	server.nextName++
	server.globals[name] = g

	for c := range server.clients {
		for _, r := range c.registries {
			r.Global(name, g.Interface(), g.Version())
		}
	}

	logger.Debug("global added", "name", name, "interface", g.Interface(), "version", g.Version())
	return name
}

// RemoveGlobal stops advertising the named global. Objects that clients
// already bound are unaffected.
func (server *Server) RemoveGlobal(name uint32) {
	if _, ok := server.globals[name]; !ok {
		return
	}
	delete(server.globals, name)

	for c := range server.clients {
		for _, r := range c.registries {
			r.GlobalRemove(name)
		}
	}
}

func (server *Server) global(name uint32) Global {
	return server.globals[name]
}

func (server *Server) globalNames() []uint32 {
	names := make([]uint32, 0, len(server.globals))
	for name := range server.globals {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// NextSerial returns a new event serial.
func (server *Server) NextSerial() uint32 {
	server.serial++
	return server.serial
}

// Flush processes everything that has happened since the last flush:
// newly accepted and disconnected clients, incoming requests, and
// outgoing events. It returns all errors encountered.
func (server *Server) Flush() error {
	errs := []error{cq.Flush(server.queue.TryGet())}
	for _, c := range server.Clients() {
		errs = append(errs, c.Flush())
	}
	return errors.Join(errs...)
}

// Run flushes the server every interval until ctx is canceled or the
// server is closed.
func (server *Server) Run(ctx context.Context, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-server.done:
			return
		case <-tick.C:
			err := server.Flush()
			if err != nil {
				logger.Debug("flush", "err", err)
			}
		}
	}
}

// Close stops accepting connections and disconnects every client. It
// must not be called concurrently with Flush.
func (server *Server) Close() error {
	var err error
	server.close.Do(func() {
		close(server.done)
		if server.lis != nil {
			err = server.lis.Close()
		}

		for _, c := range server.Clients() {
			c.Close()
			server.removeClient(c)
		}
		server.queue.Stop()
	})
	return err
}
