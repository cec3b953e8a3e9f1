// Package client implements just enough of the client side of the
// Wayland protocol to talk to a cascade server: the display, the
// registry, sync round trips, and the input inhibitor.
//
// Events are dispatched on whichever goroutine calls Flush or
// RoundTrip. Callbacks set on objects run there too.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"deedles.dev/cascade/internal/cq"
	"deedles.dev/cascade/internal/debug"
	"deedles.dev/cascade/internal/objstore"
	"deedles.dev/cascade/wire"
)

// ErrDisconnected is returned once the server has closed the
// connection.
var ErrDisconnected = errors.New("disconnected from server")

// ProtocolError is a wl_display.error sent by the server.
type ProtocolError struct {
	ObjectID uint32
	Code     uint32
	Message  string
}

func (err *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error on object %v: code %v: %v", err.ObjectID, err.Code, err.Message)
}

const (
	displaySync uint16 = iota
	displayGetRegistry
)

const (
	displayEventError uint16 = iota
	displayEventDeleteID
)

// Display is the client's connection to the server and its wl_display
// object.
type Display struct {
	// Error, if not nil, is called when the server reports a protocol
	// error. The server disconnects the client afterwards.
	Error func(err *ProtocolError)

	id       uint32
	done     chan struct{}
	close    sync.Once
	conn     *wire.Conn
	store    *objstore.Store
	queue    *cq.Queue[func() error]
	registry *Registry

	err  *ProtocolError
	lost bool
}

// Dial connects to the server named by the environment, the same way
// that wire.Dial finds it.
func Dial() (*Display, error) {
	c, err := wire.Dial()
	if err != nil {
		return nil, err
	}
	return Connect(c), nil
}

// DialPath connects to the server listening at path.
func DialPath(path string) (*Display, error) {
	c, err := wire.DialPath(path)
	if err != nil {
		return nil, err
	}
	return Connect(c), nil
}

// Connect starts speaking the protocol over an existing connection.
func Connect(conn *wire.Conn) *Display {
	display := Display{
		id:    1,
		done:  make(chan struct{}),
		conn:  conn,
		store: objstore.New(2),
		queue: cq.New[func() error](),
	}
	display.store.Add(&display)

	go display.listen()

	return &display
}

func (display *Display) listen() {
	for {
		msg, err := wire.ReadMessage(display.conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				err = errors.Join(ErrDisconnected, err)
			} else {
				err = ErrDisconnected
			}
			display.queue.Push(func() error {
				display.lost = true
				return err
			})
			return
		}

		if !display.queue.Push(func() error { return display.dispatch(msg) }) {
			return
		}
	}
}

func (display *Display) dispatch(msg *wire.MessageBuffer) error {
	defer msg.Close()

	obj := display.store.Get(msg.Sender())
	if obj == nil {
		// Events can still arrive for objects that were destroyed
		// before the server saw the request.
		debug.Printf("event for unknown object %v", msg.Sender())
		return nil
	}

	err := obj.Dispatch(msg)
	debug.Printf("%v", msg.Debug(obj))
	return err
}

func (display *Display) ID() uint32 {
	return display.id
}

func (display *Display) SetID(id uint32) {
	display.id = id
}

func (display *Display) Interface() string {
	return "wl_display"
}

func (display *Display) MethodName(op uint16) string {
	switch op {
	case displayEventError:
		return "error"
	case displayEventDeleteID:
		return "delete_id"
	default:
		return fmt.Sprintf("unknown(%v)", op)
	}
}

func (display *Display) Delete() {}

func (display *Display) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case displayEventError:
		err := ProtocolError{
			ObjectID: msg.ReadUint(),
			Code:     msg.ReadUint(),
			Message:  msg.ReadString(),
		}
		if merr := msg.Err(); merr != nil {
			return wire.DecodeError{Interface: "wl_display", Method: "error", Err: merr}
		}

		display.err = &err
		if display.Error != nil {
			display.Error(&err)
		}
		return nil

	case displayEventDeleteID:
		id := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return wire.DecodeError{Interface: "wl_display", Method: "delete_id", Err: err}
		}
		display.store.Delete(id)
		return nil

	default:
		return wire.UnknownOpError{Interface: "wl_display", Type: "event", Op: msg.Op()}
	}
}

// Err returns the protocol error that the server reported, if any.
func (display *Display) Err() error {
	if display.err == nil {
		return nil
	}
	return display.err
}

// Get returns the live object with the given ID.
func (display *Display) Get(id uint32) wire.Object {
	return display.store.Get(id)
}

func (display *Display) add(obj wire.Object) {
	// The store allocates the ID, so this can't fail.
	display.store.Add(obj)
}

// Enqueue queues msg to be sent during the next flush.
func (display *Display) Enqueue(msg *wire.MessageBuilder) {
	display.queue.Push(func() error {
		debug.Printf(" -> %v", msg)
		return msg.Build(display.conn)
	})
}

// Flush sends queued requests and dispatches events that have arrived
// since the last flush without waiting for more.
func (display *Display) Flush() error {
	return cq.Flush(display.queue.TryGet())
}

// Sync asks the server to call done once it has processed every
// request sent before this one.
func (display *Display) Sync(done func(serial uint32)) *Callback {
	cb := Callback{Done: done}
	display.add(&cb)

	msg := wire.NewMessage(display, displaySync)
	msg.Method = "sync"
	msg.Args = []any{&cb}
	msg.WriteObject(&cb)
	display.Enqueue(msg)

	return &cb
}

// RoundTrip flushes and then dispatches events until the server has
// processed every request sent so far. It returns early if ctx is
// canceled, the server reports a protocol error, or the connection is
// lost.
func (display *Display) RoundTrip(ctx context.Context) error {
	done := make(chan struct{})
	display.Sync(func(uint32) { close(done) })

	var errs []error
	for {
		select {
		case <-done:
			return errors.Join(errs...)

		case <-ctx.Done():
			return errors.Join(append(errs, ctx.Err())...)

		case <-display.done:
			return errors.Join(append(errs, net.ErrClosed)...)

		case queue := <-display.queue.Get():
			if err := cq.Flush(queue); err != nil {
				errs = append(errs, err)
			}
			if display.err != nil || display.lost {
				if display.err != nil {
					errs = append(errs, display.err)
				}
				return errors.Join(errs...)
			}
		}
	}
}

// GetRegistry returns the client's registry, creating it on first use.
func (display *Display) GetRegistry() *Registry {
	if display.registry != nil {
		return display.registry
	}

	registry := Registry{
		display: display,
		globals: make(map[uint32]Global),
	}
	display.add(&registry)

	msg := wire.NewMessage(display, displayGetRegistry)
	msg.Method = "get_registry"
	msg.Args = []any{&registry}
	msg.WriteObject(&registry)
	display.Enqueue(msg)

	display.registry = &registry
	return &registry
}

// Close disconnects from the server.
func (display *Display) Close() error {
	display.close.Do(func() { close(display.done) })
	display.queue.Stop()
	return display.conn.Close()
}

// Callback is a wl_callback.
type Callback struct {
	Done func(data uint32)

	id uint32
}

func (cb *Callback) ID() uint32 {
	return cb.id
}

func (cb *Callback) SetID(id uint32) {
	cb.id = id
}

func (cb *Callback) Interface() string {
	return "wl_callback"
}

func (cb *Callback) Delete() {}

func (cb *Callback) MethodName(op uint16) string {
	if op == 0 {
		return "done"
	}
	return fmt.Sprintf("unknown(%v)", op)
}

func (cb *Callback) Dispatch(msg *wire.MessageBuffer) error {
	if msg.Op() != 0 {
		return wire.UnknownOpError{Interface: "wl_callback", Type: "event", Op: msg.Op()}
	}

	data := msg.ReadUint()
	if err := msg.Err(); err != nil {
		return wire.DecodeError{Interface: "wl_callback", Method: "done", Err: err}
	}
	if cb.Done != nil {
		cb.Done(data)
	}
	return nil
}
