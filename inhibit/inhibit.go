// Package inhibit tracks which client, if any, holds exclusive input.
//
// A Controller arbitrates a single exclusive claim. It does not queue
// requests: an Acquire while another client holds the claim is
// rejected outright.
package inhibit

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrAlreadyInhibited is returned by Acquire when a different client
	// already holds the inhibition.
	ErrAlreadyInhibited = errors.New("input already inhibited")

	// ErrNotHolder is returned by Release when the releasing client does
	// not hold the inhibition.
	ErrNotHolder = errors.New("client does not hold the inhibition")
)

// ClientID identifies a client connection. The zero value is never
// assigned to a real client.
type ClientID uint64

// State is a snapshot of the inhibition state.
type State struct {
	Holder    ClientID
	Inhibited bool
}

func (s State) String() string {
	if !s.Inhibited {
		return "free"
	}
	return fmt.Sprintf("inhibited(%v)", s.Holder)
}

// Error is returned by a rejected Acquire or Release. It wraps either
// ErrAlreadyInhibited or ErrNotHolder.
type Error struct {
	Op        string
	Client    ClientID
	Holder    ClientID
	Inhibited bool
	Err       error
}

func (err *Error) Error() string {
	if !err.Inhibited {
		return fmt.Sprintf("%v by client %v: %v (not inhibited)", err.Op, err.Client, err.Err)
	}
	return fmt.Sprintf("%v by client %v: %v (held by client %v)", err.Op, err.Client, err.Err, err.Holder)
}

func (err *Error) Unwrap() error {
	return err.Err
}

type listener struct {
	id uint64
	f  func(State)
}

// Controller owns the inhibition state. The zero value is not usable;
// use New.
//
// Listeners are called synchronously with the Controller's lock held
// and must not call back into it.
type Controller struct {
	m         sync.Mutex
	state     State
	listeners []listener
	nextLis   uint64
}

// New returns a Controller with no holder.
func New() *Controller {
	return &Controller{}
}

// Acquire grants the inhibition to id. Acquiring again as the current
// holder is a no-op.
func (c *Controller) Acquire(id ClientID) error {
	c.m.Lock()
	defer c.m.Unlock()

	if c.state.Inhibited {
		if c.state.Holder == id {
			return nil
		}
		return c.reject("acquire", id, ErrAlreadyInhibited)
	}

	c.set(State{Holder: id, Inhibited: true})
	return nil
}

// Release clears the inhibition if id holds it.
func (c *Controller) Release(id ClientID) error {
	c.m.Lock()
	defer c.m.Unlock()

	if !c.state.Inhibited || (c.state.Holder != id) {
		return c.reject("release", id, ErrNotHolder)
	}

	c.set(State{})
	return nil
}

// ReleaseIfHolder clears the inhibition if id holds it and does
// nothing otherwise. It is intended for disconnect cleanup.
func (c *Controller) ReleaseIfHolder(id ClientID) {
	c.m.Lock()
	defer c.m.Unlock()

	if c.state.Inhibited && (c.state.Holder == id) {
		c.set(State{})
	}
}

// IsInhibited reports whether any client holds the inhibition.
func (c *Controller) IsInhibited() bool {
	c.m.Lock()
	defer c.m.Unlock()
	return c.state.Inhibited
}

// Holder returns the current holder, if any.
func (c *Controller) Holder() (ClientID, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	return c.state.Holder, c.state.Inhibited
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.m.Lock()
	defer c.m.Unlock()
	return c.state
}

// Allows reports whether input may be routed to id, which is the case
// when nobody holds the inhibition or id is the holder.
func (c *Controller) Allows(id ClientID) bool {
	c.m.Lock()
	defer c.m.Unlock()
	return !c.state.Inhibited || (c.state.Holder == id)
}

// OnChange registers f to be called after every call that changes the
// state. The returned function unregisters it.
func (c *Controller) OnChange(f func(State)) (remove func()) {
	c.m.Lock()
	defer c.m.Unlock()

	id := c.nextLis
	c.nextLis++
	c.listeners = append(c.listeners, listener{id: id, f: f})

	var once sync.Once
	return func() {
		once.Do(func() {
			c.m.Lock()
			defer c.m.Unlock()

			for i, lis := range c.listeners {
				if lis.id == id {
					c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (c *Controller) set(state State) {
	c.state = state
	for _, lis := range c.listeners {
		lis.f(state)
	}
}

func (c *Controller) reject(op string, id ClientID, err error) error {
	return &Error{
		Op:        op,
		Client:    id,
		Holder:    c.state.Holder,
		Inhibited: c.state.Inhibited,
		Err:       err,
	}
}
