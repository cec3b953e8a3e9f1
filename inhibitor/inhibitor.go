// Package inhibitor implements the wlr input inhibitor protocol,
// zwlr_input_inhibit_manager_v1, on top of an inhibit.Controller.
//
// A client that creates a zwlr_input_inhibitor_v1 holds exclusive input
// until it destroys the object or disconnects. A second client asking
// for an inhibitor meanwhile gets the already_inhibited protocol error.
package inhibitor

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"

	"deedles.dev/cascade/inhibit"
	"deedles.dev/cascade/internal/logger"
	"deedles.dev/cascade/internal/set"
	"deedles.dev/cascade/protocol"
	"deedles.dev/cascade/server"
	"deedles.dev/cascade/wire"
)

//go:embed wlr-input-inhibitor-unstable-v1.xml
var protocolXML []byte

// Protocol returns the parsed protocol definition.
func Protocol() (protocol.Protocol, error) {
	return protocol.Load(bytes.NewReader(protocolXML))
}

const (
	ManagerInterface        = "zwlr_input_inhibit_manager_v1"
	ManagerVersion   uint32 = 1

	InhibitorInterface        = "zwlr_input_inhibitor_v1"
	InhibitorVersion   uint32 = 1
)

// ErrorAlreadyInhibited is the manager's only error code.
const ErrorAlreadyInhibited uint32 = 0

const (
	managerGetInhibitor uint16 = 0
	inhibitorDestroy    uint16 = 0
)

// Extension is the zwlr_input_inhibit_manager_v1 global.
type Extension struct {
	ctrl   *inhibit.Controller
	remove func()

	// Live inhibitor objects and clients with a destroy hook, by
	// client. Only touched while dispatching.
	active map[inhibit.ClientID]*Inhibitor
	hooked set.Set[inhibit.ClientID]
}

// New returns an Extension that arbitrates through ctrl.
func New(ctrl *inhibit.Controller) *Extension {
	ext := Extension{
		ctrl:   ctrl,
		active: make(map[inhibit.ClientID]*Inhibitor),
		hooked: set.New[inhibit.ClientID](),
	}
	ext.remove = ctrl.OnChange(func(state inhibit.State) {
		logger.Info("input inhibition changed", "ext", ManagerInterface, "state", state)
	})
	return &ext
}

// Controller returns the controller that the extension was created
// with.
func (ext *Extension) Controller() *inhibit.Controller {
	return ext.ctrl
}

// Close stops the extension from observing its controller.
func (ext *Extension) Close() error {
	ext.remove()
	return nil
}

func (ext *Extension) Interface() string {
	return ManagerInterface
}

func (ext *Extension) Version() uint32 {
	return ManagerVersion
}

func (ext *Extension) Bind(client *server.Client, id, version uint32) error {
	m := Manager{
		ext:     ext,
		client:  client,
		version: version,
	}
	m.SetID(id)
	if err := client.Add(&m); err != nil {
		return err
	}

	ext.watch(client)
	return nil
}

// watch releases the client's inhibition when it disconnects. The hook
// is registered once per client no matter how often it binds.
func (ext *Extension) watch(client *server.Client) {
	cid := inhibit.ClientID(client.ID())
	if ext.hooked.Has(cid) {
		return
	}
	ext.hooked.Add(cid)

	client.OnDestroy(func() {
		ext.hooked.Remove(cid)
		delete(ext.active, cid)
		ext.ctrl.ReleaseIfHolder(cid)
	})
}

// Manager is a client's bound zwlr_input_inhibit_manager_v1.
type Manager struct {
	server.Resource
	ext     *Extension
	client  *server.Client
	version uint32
}

func (m *Manager) Interface() string {
	return ManagerInterface
}

func (m *Manager) MethodName(op uint16) string {
	if op == managerGetInhibitor {
		return "get_inhibitor"
	}
	return fmt.Sprintf("unknown(%v)", op)
}

func (m *Manager) Dispatch(msg *wire.MessageBuffer) error {
	if msg.Op() != managerGetInhibitor {
		return wire.UnknownOpError{Interface: ManagerInterface, Type: "request", Op: msg.Op()}
	}

	id := msg.ReadUint()
	if err := msg.Err(); err != nil {
		return wire.DecodeError{Interface: ManagerInterface, Method: "get_inhibitor", Err: err}
	}
	return m.getInhibitor(id)
}

func (m *Manager) getInhibitor(id uint32) error {
	ext := m.ext
	cid := inhibit.ClientID(m.client.ID())

	if ext.active[cid] != nil {
		if holder, ok := ext.ctrl.Holder(); ok && (holder == cid) {
			m.alreadyInhibited(fmt.Errorf("client %v already has an inhibitor: %w", cid, inhibit.ErrAlreadyInhibited))
			return nil
		}

		// Released without destroying the inhibitor object. The old
		// object no longer means anything.
		delete(ext.active, cid)
	}

	err := ext.ctrl.Acquire(cid)
	if err != nil {
		if errors.Is(err, inhibit.ErrAlreadyInhibited) {
			m.alreadyInhibited(err)
			return nil
		}
		return err
	}

	inh := Inhibitor{
		ext:    ext,
		client: m.client,
		holder: cid,
	}
	inh.SetID(id)
	if err := m.client.Add(&inh); err != nil {
		ext.ctrl.ReleaseIfHolder(cid)
		return err
	}
	ext.active[cid] = &inh

	m.client.Log().Debug("input inhibitor created", "id", id)
	return nil
}

func (m *Manager) alreadyInhibited(err error) {
	m.client.PostError(m, ErrorAlreadyInhibited, err.Error())
}

// Inhibitor is a zwlr_input_inhibitor_v1. Its client holds the
// inhibition for as long as it exists.
type Inhibitor struct {
	server.Resource
	ext    *Extension
	client *server.Client
	holder inhibit.ClientID
}

func (inh *Inhibitor) Interface() string {
	return InhibitorInterface
}

func (inh *Inhibitor) MethodName(op uint16) string {
	if op == inhibitorDestroy {
		return "destroy"
	}
	return fmt.Sprintf("unknown(%v)", op)
}

func (inh *Inhibitor) Dispatch(msg *wire.MessageBuffer) error {
	if msg.Op() != inhibitorDestroy {
		return wire.UnknownOpError{Interface: InhibitorInterface, Type: "request", Op: msg.Op()}
	}
	inh.destroy()
	return nil
}

func (inh *Inhibitor) destroy() {
	if inh.ext.active[inh.holder] == inh {
		delete(inh.ext.active, inh.holder)
		inh.ext.ctrl.ReleaseIfHolder(inh.holder)
	}

	inh.client.Delete(inh.ID())
}
