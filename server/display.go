package server

import (
	"fmt"

	"deedles.dev/cascade/wire"
)

const (
	DisplayInterface  = "wl_display"
	RegistryInterface = "wl_registry"
	CallbackInterface = "wl_callback"
)

// Codes for wl_display.error that apply to every interface.
const (
	DisplayErrorInvalidObject uint32 = iota
	DisplayErrorInvalidMethod
	DisplayErrorNoMemory
	DisplayErrorImplementation
)

const (
	displaySync uint16 = iota
	displayGetRegistry
)

const (
	displayEventError uint16 = iota
	displayEventDeleteID
)

const registryBind uint16 = 0

const (
	registryEventGlobal uint16 = iota
	registryEventGlobalRemove
)

const callbackEventDone uint16 = 0

// Resource is embedded by protocol objects to keep track of their ID.
type Resource struct {
	id uint32
}

func (r *Resource) ID() uint32 {
	return r.id
}

func (r *Resource) SetID(id uint32) {
	r.id = id
}

// Delete does nothing. Objects that need cleanup when removed from a
// client override it.
func (r *Resource) Delete() {}

// Display is a client's wl_display, the singleton object with ID 1.
type Display struct {
	Resource
	client *Client
}

func (d *Display) Interface() string {
	return DisplayInterface
}

func (d *Display) MethodName(op uint16) string {
	switch op {
	case displaySync:
		return "sync"
	case displayGetRegistry:
		return "get_registry"
	default:
		return fmt.Sprintf("unknown(%v)", op)
	}
}

func (d *Display) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case displaySync:
		id := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return wire.DecodeError{Interface: DisplayInterface, Method: "sync", Err: err}
		}
		return d.sync(id)

	case displayGetRegistry:
		id := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return wire.DecodeError{Interface: DisplayInterface, Method: "get_registry", Err: err}
		}
		return d.getRegistry(id)

	default:
		return wire.UnknownOpError{Interface: DisplayInterface, Type: "request", Op: msg.Op()}
	}
}

func (d *Display) sync(id uint32) error {
	cb := &Callback{client: d.client}
	cb.SetID(id)
	if err := d.client.Add(cb); err != nil {
		return err
	}

	cb.Done(d.client.server.NextSerial())
	d.client.Delete(id)
	return nil
}

func (d *Display) getRegistry(id uint32) error {
	r := &Registry{client: d.client}
	r.SetID(id)
	if err := d.client.Add(r); err != nil {
		return err
	}
	d.client.registries = append(d.client.registries, r)

	server := d.client.server
	for _, name := range server.globalNames() {
		g := server.global(name)
		r.Global(name, g.Interface(), g.Version())
	}
	return nil
}

// Error sends wl_display.error. Use Client.PostError instead, which
// also disconnects the client.
func (d *Display) Error(obj wire.Object, code uint32, message string) {
	msg := wire.NewMessage(d, displayEventError)
	msg.Method = "error"
	msg.Args = []any{obj, code, message}
	msg.WriteObject(obj)
	msg.WriteUint(code)
	msg.WriteString(message)
	d.client.Enqueue(msg)
}

// DeleteID sends wl_display.delete_id.
func (d *Display) DeleteID(id uint32) {
	msg := wire.NewMessage(d, displayEventDeleteID)
	msg.Method = "delete_id"
	msg.Args = []any{id}
	msg.WriteUint(id)
	d.client.Enqueue(msg)
}

// Registry is a wl_registry.
type Registry struct {
	Resource
	client *Client
}

func (r *Registry) Interface() string {
	return RegistryInterface
}

func (r *Registry) MethodName(op uint16) string {
	if op == registryBind {
		return "bind"
	}
	return fmt.Sprintf("unknown(%v)", op)
}

func (r *Registry) Dispatch(msg *wire.MessageBuffer) error {
	if msg.Op() != registryBind {
		return wire.UnknownOpError{Interface: RegistryInterface, Type: "request", Op: msg.Op()}
	}

	name := msg.ReadUint()
	id := msg.ReadNewID()
	if err := msg.Err(); err != nil {
		return wire.DecodeError{Interface: RegistryInterface, Method: "bind", Err: err}
	}
	return r.bind(name, id)
}

func (r *Registry) bind(name uint32, id wire.NewID) error {
	g := r.client.server.global(name)
	switch {
	case g == nil:
		r.client.PostError(r, DisplayErrorInvalidObject, fmt.Sprintf("invalid global %v (%v)", id.Interface, name))
		return nil
	case g.Interface() != id.Interface:
		r.client.PostError(r, DisplayErrorInvalidObject, fmt.Sprintf("invalid interface for global %v: have %v, wanted %v", name, id.Interface, g.Interface()))
		return nil
	case (id.Version == 0) || (id.Version > g.Version()):
		r.client.PostError(r, DisplayErrorInvalidObject, fmt.Sprintf("invalid version for global %v (%v): have %v, wanted 1 to %v", id.Interface, name, id.Version, g.Version()))
		return nil
	}

	return g.Bind(r.client, id.ID, id.Version)
}

// Global sends wl_registry.global.
func (r *Registry) Global(name uint32, inter string, version uint32) {
	msg := wire.NewMessage(r, registryEventGlobal)
	msg.Method = "global"
	msg.Args = []any{name, inter, version}
	msg.WriteUint(name)
	msg.WriteString(inter)
	msg.WriteUint(version)
	r.client.Enqueue(msg)
}

// GlobalRemove sends wl_registry.global_remove.
func (r *Registry) GlobalRemove(name uint32) {
	msg := wire.NewMessage(r, registryEventGlobalRemove)
	msg.Method = "global_remove"
	msg.Args = []any{name}
	msg.WriteUint(name)
	r.client.Enqueue(msg)
}

// Callback is a wl_callback.
type Callback struct {
	Resource
	client *Client
}

func (cb *Callback) Interface() string {
	return CallbackInterface
}

func (cb *Callback) MethodName(op uint16) string {
	return fmt.Sprintf("unknown(%v)", op)
}

func (cb *Callback) Dispatch(msg *wire.MessageBuffer) error {
	return wire.UnknownOpError{Interface: CallbackInterface, Type: "request", Op: msg.Op()}
}

// Done sends wl_callback.done.
func (cb *Callback) Done(data uint32) {
	msg := wire.NewMessage(cb, callbackEventDone)
	msg.Method = "done"
	msg.Args = []any{data}
	msg.WriteUint(data)
	cb.client.Enqueue(msg)
}
