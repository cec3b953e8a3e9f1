// Package seat routes input events to clients.
//
// Normally input goes to the client with focus. While a client holds
// the input inhibition, everything goes to that client instead and no
// one else receives anything.
package seat

import (
	"fmt"
	"sync"

	"deedles.dev/cascade/inhibit"
	"deedles.dev/cascade/internal/logger"
	"deedles.dev/cascade/internal/set"
	"deedles.dev/cascade/pointer"
	"deedles.dev/cascade/wire"
)

type Kind int

const (
	KindMotion Kind = iota
	KindButton
	KindKey
)

func (k Kind) String() string {
	switch k {
	case KindMotion:
		return "motion"
	case KindButton:
		return "button"
	case KindKey:
		return "key"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Event is a single input event.
type Event struct {
	Kind    Kind
	Serial  uint32
	X, Y    wire.Fixed
	Button  pointer.Button
	Key     uint32
	Pressed bool
}

func (ev Event) String() string {
	switch ev.Kind {
	case KindMotion:
		return fmt.Sprintf("motion(%v, %v)", ev.X, ev.Y)
	case KindButton:
		return fmt.Sprintf("button(%v, %v)", ev.Button, ev.Pressed)
	case KindKey:
		return fmt.Sprintf("key(%v, %v)", ev.Key, ev.Pressed)
	default:
		return ev.Kind.String()
	}
}

// Sink receives routed events.
type Sink interface {
	Deliver(to inhibit.ClientID, ev Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(to inhibit.ClientID, ev Event)

func (f SinkFunc) Deliver(to inhibit.ClientID, ev Event) {
	f(to, ev)
}

// Seat is a set of input devices shared by every client.
type Seat struct {
	ctrl *inhibit.Controller
	sink Sink

	m       sync.Mutex
	serial  uint32
	focus   inhibit.ClientID
	focused bool
	buttons set.Set[pointer.Button]
	keys    set.Set[uint32]
}

// New returns a Seat that checks ctrl before routing to sink.
func New(ctrl *inhibit.Controller, sink Sink) *Seat {
	return &Seat{
		ctrl:    ctrl,
		sink:    sink,
		buttons: make(set.Set[pointer.Button]),
		keys:    make(set.Set[uint32]),
	}
}

// Focus gives input focus to id.
func (s *Seat) Focus(id inhibit.ClientID) {
	s.m.Lock()
	defer s.m.Unlock()

	s.focus, s.focused = id, true
}

// Unfocus removes focus from whichever client had it.
func (s *Seat) Unfocus() {
	s.m.Lock()
	defer s.m.Unlock()

	s.focus, s.focused = 0, false
}

// Focused returns the client with focus, if any.
func (s *Seat) Focused() (inhibit.ClientID, bool) {
	s.m.Lock()
	defer s.m.Unlock()

	return s.focus, s.focused
}

// Recipient returns the client that input would currently be sent to.
func (s *Seat) Recipient() (inhibit.ClientID, bool) {
	s.m.Lock()
	defer s.m.Unlock()

	return s.recipient()
}

func (s *Seat) recipient() (inhibit.ClientID, bool) {
	state := s.ctrl.State()
	switch {
	case state.Inhibited:
		return state.Holder, true
	case s.focused:
		return s.focus, true
	default:
		return 0, false
	}
}

// Motion moves the pointer.
func (s *Seat) Motion(x, y wire.Fixed) (inhibit.ClientID, bool) {
	return s.send(Event{Kind: KindMotion, X: x, Y: y})
}

// Button presses or releases a pointer button. It returns the client
// the event went to, if any.
func (s *Seat) Button(b pointer.Button, pressed bool) (inhibit.ClientID, bool) {
	s.m.Lock()
	if pressed {
		s.buttons.Add(b)
	} else {
		s.buttons.Remove(b)
	}
	s.m.Unlock()

	return s.send(Event{Kind: KindButton, Button: b, Pressed: pressed})
}

// Key presses or releases a key, identified by its linux input-event
// code. It returns the client the event went to, if any.
func (s *Seat) Key(code uint32, pressed bool) (inhibit.ClientID, bool) {
	s.m.Lock()
	if pressed {
		s.keys.Add(code)
	} else {
		s.keys.Remove(code)
	}
	s.m.Unlock()

	return s.send(Event{Kind: KindKey, Key: code, Pressed: pressed})
}

// ButtonPressed reports whether b is being held down.
func (s *Seat) ButtonPressed(b pointer.Button) bool {
	s.m.Lock()
	defer s.m.Unlock()

	return s.buttons.Has(b)
}

// KeyPressed reports whether the key is being held down.
func (s *Seat) KeyPressed(code uint32) bool {
	s.m.Lock()
	defer s.m.Unlock()

	return s.keys.Has(code)
}

func (s *Seat) send(ev Event) (inhibit.ClientID, bool) {
	s.m.Lock()
	to, ok := s.recipient()
	if ok {
		s.serial++
		ev.Serial = s.serial
	}
	s.m.Unlock()

	if !ok {
		logger.Debug("input dropped", "event", ev)
		return 0, false
	}

	s.sink.Deliver(to, ev)
	return to, true
}
