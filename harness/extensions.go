package harness

import (
	"fmt"

	"deedles.dev/cascade/internal/set"
	"deedles.dev/cascade/internal/xslices"
	"deedles.dev/cascade/server"
)

// Extension is an optional protocol extension that a DisplayServer can
// advertise.
type Extension interface {
	server.Global
}

// ExtensionDescriptor advertises a single extension to the harness.
type ExtensionDescriptor struct {
	Name    string `json:"name" toml:"name"`
	Version uint32 `json:"version" toml:"version"`
}

// Describe returns the descriptor for ext.
func Describe(ext Extension) ExtensionDescriptor {
	return ExtensionDescriptor{
		Name:    ext.Interface(),
		Version: ext.Version(),
	}
}

// UnknownExtensionError is returned when enabling or disabling an
// extension that was never added.
type UnknownExtensionError struct {
	Name string
}

func (err UnknownExtensionError) Error() string {
	return fmt.Sprintf("unknown extension %q", err.Name)
}

// Extensions is the set of extensions that a server knows about,
// along with whether each one should be advertised. Extensions are
// enabled when added.
type Extensions struct {
	exts     []Extension
	disabled set.Set[string]
}

func NewExtensions() *Extensions {
	return &Extensions{disabled: make(set.Set[string])}
}

// Add adds ext. Adding a second extension with the same interface
// replaces the first.
func (e *Extensions) Add(ext Extension) {
	name := ext.Interface()
	for i, existing := range e.exts {
		if existing.Interface() == name {
			e.exts[i] = ext
			return
		}
	}
	e.exts = append(e.exts, ext)
}

func (e *Extensions) find(name string) Extension {
	for _, ext := range e.exts {
		if ext.Interface() == name {
			return ext
		}
	}
	return nil
}

func (e *Extensions) Enable(name string) error {
	if e.find(name) == nil {
		return UnknownExtensionError{Name: name}
	}
	e.disabled.Remove(name)
	return nil
}

func (e *Extensions) Disable(name string) error {
	if e.find(name) == nil {
		return UnknownExtensionError{Name: name}
	}
	e.disabled.Add(name)
	return nil
}

// Enabled returns the enabled extensions in the order they were added.
func (e *Extensions) Enabled() []Extension {
	return xslices.Filter(e.exts, func(ext Extension) bool {
		return !e.disabled.Has(ext.Interface())
	})
}

// Descriptors describes the enabled extensions.
func (e *Extensions) Descriptors() []ExtensionDescriptor {
	return xslices.Map(e.Enabled(), Describe)
}

// Install advertises the enabled extensions as globals of srv and
// returns their global names.
func (e *Extensions) Install(srv *server.Server) []uint32 {
	enabled := e.Enabled()
	names := make([]uint32, 0, len(enabled))
	for _, ext := range enabled {
		names = append(names, srv.AddGlobal(ext))
	}
	return names
}
