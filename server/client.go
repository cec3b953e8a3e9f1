package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"deedles.dev/cascade/internal/cq"
	"deedles.dev/cascade/internal/debug"
	"deedles.dev/cascade/internal/logger"
	"deedles.dev/cascade/internal/objstore"
	"deedles.dev/cascade/wire"
	"github.com/charmbracelet/log"
)

// ClientID identifies a client for the lifetime of a Server. IDs start
// at 1 and are never reused.
type ClientID uint64

// firstServerID is the first object ID in the range allocated by the
// server rather than the client.
const firstServerID = 0xff000000

// maxFlushRounds limits how many batches of queued work a single
// Client.Flush will process, so that events produced while dispatching
// requests go out in the same flush without one busy client starving
// the rest.
const maxFlushRounds = 4

type Client struct {
	server  *Server
	id      ClientID
	done    chan struct{}
	close   sync.Once
	closing atomic.Bool
	failed  atomic.Bool
	conn    *wire.Conn
	store   *objstore.Store
	queue   *cq.Queue[func() error]
	log     *log.Logger

	display    *Display
	registries []*Registry
	destroy    []func()
	destroyed  bool
}

func newClient(server *Server, id ClientID, conn *wire.Conn) *Client {
	client := Client{
		server: server,
		id:     id,
		done:   make(chan struct{}),
		conn:   conn,
		store:  objstore.New(firstServerID),
		queue:  cq.New[func() error](),
		log:    logger.With("client", id),
	}

	client.display = &Display{client: &client}
	client.display.SetID(1)
	client.store.Add(client.display)

	go client.listen()

	return &client
}

func (client *Client) listen() {
	defer func() {
		client.close.Do(func() { close(client.done) })
		client.conn.Close()
		client.server.queue.Push(func() error {
			client.server.removeClient(client)
			return nil
		})
	}()

	for {
		msg, err := wire.ReadMessage(client.conn)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || client.closing.Load() {
				return
			}

			client.queue.Push(func() error { return fmt.Errorf("client %v: %w", client.id, err) })
			return
		}

		if !client.queue.Push(func() error { return client.dispatch(msg) }) {
			return
		}
	}
}

func (client *Client) dispatch(msg *wire.MessageBuffer) error {
	defer msg.Close()

	if client.closing.Load() || client.failed.Load() {
		return nil
	}

	obj := client.store.Get(msg.Sender())
	if obj == nil {
		err := wire.UnknownSenderIDError{Msg: msg}
		client.PostError(client.display, DisplayErrorInvalidObject, err.Error())
		return err
	}

	err := obj.Dispatch(msg)
	debug.Printf("%v", msg.Debug(obj))
	if err == nil {
		return nil
	}

	var (
		opErr     wire.UnknownOpError
		decodeErr wire.DecodeError
		inUseErr  objstore.IDInUseError
	)
	switch {
	case errors.As(err, &opErr), errors.As(err, &decodeErr):
		client.PostError(obj, DisplayErrorInvalidMethod, err.Error())
	case errors.As(err, &inUseErr):
		client.PostError(obj, DisplayErrorInvalidObject, err.Error())
	default:
		client.PostError(client.display, DisplayErrorImplementation, err.Error())
	}
	return fmt.Errorf("client %v: %w", client.id, err)
}

// ID returns the client's ID.
func (client *Client) ID() ClientID {
	return client.id
}

func (client *Client) String() string {
	return fmt.Sprintf("client %v", client.id)
}

// Done is closed once the client's connection has shut down.
func (client *Client) Done() <-chan struct{} {
	return client.done
}

// Server returns the server that the client is connected to.
func (client *Client) Server() *Server {
	return client.server
}

// Log returns a logger that annotates entries with the client's ID.
func (client *Client) Log() *log.Logger {
	return client.log
}

// Add adds obj to the client's object store. Objects created by client
// requests must have their ID set first.
func (client *Client) Add(obj wire.Object) error {
	return client.store.Add(obj)
}

func (client *Client) Get(id uint32) wire.Object {
	return client.store.Get(id)
}

// Delete removes the object from the client's store and, if the client
// allocated its ID, tells the client that the ID may be reused.
func (client *Client) Delete(id uint32) {
	if !client.store.Delete(id) {
		return
	}
	if id < firstServerID {
		client.display.DeleteID(id)
	}
}

// Display returns the client's wl_display object.
func (client *Client) Display() *Display {
	return client.display
}

// Enqueue queues msg to be sent during the next flush.
func (client *Client) Enqueue(msg *wire.MessageBuilder) {
	client.queue.Push(func() error {
		if client.closing.Load() {
			return nil
		}

		debug.Printf(" -> %v", msg)
		return msg.Build(client.conn)
	})
}

// PostError sends a wl_display.error event about obj and then
// disconnects the client. Nothing else is sent to or dispatched from
// the client afterwards.
func (client *Client) PostError(obj wire.Object, code uint32, msg string) {
	if client.closing.Load() || client.failed.Swap(true) {
		return
	}

	client.log.Warn("protocol error", "object", wire.Name(obj), "code", code, "msg", msg)
	client.display.Error(obj, code, msg)
	client.queue.Push(func() error {
		client.Close()
		return nil
	})
}

// OnDestroy registers f to be called once when the client disconnects.
// Functions run in reverse order of registration.
func (client *Client) OnDestroy(f func()) {
	if client.destroyed {
		f()
		return
	}
	client.destroy = append(client.destroy, f)
}

// Flush dispatches the requests received from the client and sends the
// events queued for it since the last flush.
func (client *Client) Flush() error {
	var errs []error
	for i := 0; i < maxFlushRounds; i++ {
		queue := client.queue.TryGet()
		if len(queue) == 0 {
			break
		}
		errs = append(errs, cq.Flush(queue))
	}
	return errors.Join(errs...)
}

// Close disconnects the client. The client's destroy functions run
// during a later flush, once its connection has shut down.
func (client *Client) Close() error {
	if client.closing.Swap(true) {
		return nil
	}
	return client.conn.Close()
}

func (client *Client) teardown() {
	client.closing.Store(true)
	client.queue.Stop()
	client.store.Clear()
	client.registries = nil

	client.destroyed = true
	for i := len(client.destroy) - 1; i >= 0; i-- {
		client.destroy[i]()
	}
	client.destroy = nil
}
