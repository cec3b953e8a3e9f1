package client

import (
	"fmt"
	"sort"

	"deedles.dev/cascade/wire"
)

const registryBind uint16 = 0

const (
	registryEventGlobal uint16 = iota
	registryEventGlobalRemove
)

// Global is a global advertised by the server.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// Registry is a wl_registry. It remembers every global that it has been
// told about.
type Registry struct {
	// Global and GlobalRemove, if not nil, are called as globals come
	// and go.
	Global       func(g Global)
	GlobalRemove func(name uint32)

	id      uint32
	display *Display
	globals map[uint32]Global
}

func (r *Registry) ID() uint32 {
	return r.id
}

func (r *Registry) SetID(id uint32) {
	r.id = id
}

func (r *Registry) Interface() string {
	return "wl_registry"
}

func (r *Registry) Delete() {}

func (r *Registry) MethodName(op uint16) string {
	switch op {
	case registryEventGlobal:
		return "global"
	case registryEventGlobalRemove:
		return "global_remove"
	default:
		return fmt.Sprintf("unknown(%v)", op)
	}
}

func (r *Registry) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case registryEventGlobal:
		g := Global{
			Name:      msg.ReadUint(),
			Interface: msg.ReadString(),
			Version:   msg.ReadUint(),
		}
		if err := msg.Err(); err != nil {
			return wire.DecodeError{Interface: "wl_registry", Method: "global", Err: err}
		}

		r.globals[g.Name] = g
		if r.Global != nil {
			r.Global(g)
		}
		return nil

	case registryEventGlobalRemove:
		name := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return wire.DecodeError{Interface: "wl_registry", Method: "global_remove", Err: err}
		}

		delete(r.globals, name)
		if r.GlobalRemove != nil {
			r.GlobalRemove(name)
		}
		return nil

	default:
		return wire.UnknownOpError{Interface: "wl_registry", Type: "event", Op: msg.Op()}
	}
}

// Globals returns the currently advertised globals ordered by name.
func (r *Registry) Globals() []Global {
	globals := make([]Global, 0, len(r.globals))
	for _, g := range r.globals {
		globals = append(globals, g)
	}
	sort.Slice(globals, func(i, j int) bool { return globals[i].Name < globals[j].Name })
	return globals
}

// Find returns the first advertised global with the given interface.
func (r *Registry) Find(inter string) (Global, bool) {
	for _, g := range r.Globals() {
		if g.Interface == inter {
			return g, true
		}
	}
	return Global{}, false
}

// Bind binds the global g at the given version to obj, which is added
// to the display.
func (r *Registry) Bind(g Global, version uint32, obj wire.Object) {
	r.display.add(obj)

	id := wire.NewID{
		Interface: g.Interface,
		Version:   version,
		ID:        obj.ID(),
	}
	msg := wire.NewMessage(r, registryBind)
	msg.Method = "bind"
	msg.Args = []any{g.Name, id}
	msg.WriteUint(g.Name)
	msg.WriteNewID(id)
	r.display.Enqueue(msg)
}
