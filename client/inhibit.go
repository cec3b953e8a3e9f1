package client

import (
	"fmt"

	"deedles.dev/cascade/wire"
)

const (
	inhibitManagerInterface = "zwlr_input_inhibit_manager_v1"
	inhibitorInterface      = "zwlr_input_inhibitor_v1"
)

// GlobalNotFoundError is returned when the server does not advertise a
// required global.
type GlobalNotFoundError struct {
	Interface string
}

func (err GlobalNotFoundError) Error() string {
	return fmt.Sprintf("global %v not advertised", err.Interface)
}

// InhibitManager is a bound zwlr_input_inhibit_manager_v1.
type InhibitManager struct {
	id      uint32
	display *Display
}

// BindInhibitManager binds the input inhibit manager advertised to r.
// The registry must already have received the server's globals, so
// call RoundTrip after GetRegistry first.
func BindInhibitManager(r *Registry) (*InhibitManager, error) {
	g, ok := r.Find(inhibitManagerInterface)
	if !ok {
		return nil, GlobalNotFoundError{Interface: inhibitManagerInterface}
	}

	m := InhibitManager{display: r.display}
	r.Bind(g, 1, &m)
	return &m, nil
}

func (m *InhibitManager) ID() uint32 {
	return m.id
}

func (m *InhibitManager) SetID(id uint32) {
	m.id = id
}

func (m *InhibitManager) Interface() string {
	return inhibitManagerInterface
}

func (m *InhibitManager) Delete() {}

func (m *InhibitManager) MethodName(op uint16) string {
	return fmt.Sprintf("unknown(%v)", op)
}

func (m *InhibitManager) Dispatch(msg *wire.MessageBuffer) error {
	return wire.UnknownOpError{Interface: inhibitManagerInterface, Type: "event", Op: msg.Op()}
}

// GetInhibitor asks for exclusive input. If another client already has
// it, the server responds with a protocol error and disconnects.
func (m *InhibitManager) GetInhibitor() *Inhibitor {
	inh := Inhibitor{display: m.display}
	m.display.add(&inh)

	msg := wire.NewMessage(m, 0)
	msg.Method = "get_inhibitor"
	msg.Args = []any{&inh}
	msg.WriteObject(&inh)
	m.display.Enqueue(msg)

	return &inh
}

// Inhibitor is a zwlr_input_inhibitor_v1.
type Inhibitor struct {
	id        uint32
	display   *Display
	destroyed bool
}

func (inh *Inhibitor) ID() uint32 {
	return inh.id
}

func (inh *Inhibitor) SetID(id uint32) {
	inh.id = id
}

func (inh *Inhibitor) Interface() string {
	return inhibitorInterface
}

func (inh *Inhibitor) Delete() {
	inh.destroyed = true
}

func (inh *Inhibitor) MethodName(op uint16) string {
	return fmt.Sprintf("unknown(%v)", op)
}

func (inh *Inhibitor) Dispatch(msg *wire.MessageBuffer) error {
	return wire.UnknownOpError{Interface: inhibitorInterface, Type: "event", Op: msg.Op()}
}

// Destroy gives up exclusive input. The object stays registered until
// the server acknowledges with delete_id.
func (inh *Inhibitor) Destroy() {
	msg := wire.NewMessage(inh, 0)
	msg.Method = "destroy"
	inh.display.Enqueue(msg)
}

// Deleted reports whether the server has acknowledged the destruction.
func (inh *Inhibitor) Deleted() bool {
	return inh.destroyed
}
