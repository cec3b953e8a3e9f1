// Package protocol defines the types necessary for unmarshalling a
// protocol-specification XML file.
package protocol

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
)

type Protocol struct {
	Name      string `xml:"name,attr"`
	Copyright string `xml:"copyright"`

	Interfaces []Interface `xml:"interface"`
}

// Load decodes a protocol XML document from r.
func Load(r io.Reader) (proto Protocol, err error) {
	d := xml.NewDecoder(r)
	err = d.Decode(&proto)
	if err != nil {
		return proto, fmt.Errorf("decode protocol XML: %w", err)
	}
	return proto, nil
}

// LoadFile decodes the protocol XML file at path.
func LoadFile(path string) (proto Protocol, err error) {
	file, err := os.Open(path)
	if err != nil {
		return proto, err
	}
	defer file.Close()

	return Load(file)
}

// Interface finds the named interface.
func (p Protocol) Interface(name string) (Interface, bool) {
	for _, i := range p.Interfaces {
		if i.Name == name {
			return i, true
		}
	}
	return Interface{}, false
}

type Interface struct {
	Name        string      `xml:"name,attr"`
	Version     int         `xml:"version,attr"`
	Description Description `xml:"description"`

	Requests []Op   `xml:"request"`
	Events   []Op   `xml:"event"`
	Enums    []Enum `xml:"enum"`
}

// Request finds the named request. Its opcode is its index.
func (i Interface) Request(name string) (op Op, opcode uint16, ok bool) {
	return find(i.Requests, name)
}

// Event finds the named event. Its opcode is its index.
func (i Interface) Event(name string) (op Op, opcode uint16, ok bool) {
	return find(i.Events, name)
}

// Enum finds the named enum.
func (i Interface) Enum(name string) (Enum, bool) {
	for _, e := range i.Enums {
		if e.Name == name {
			return e, true
		}
	}
	return Enum{}, false
}

func find(ops []Op, name string) (Op, uint16, bool) {
	for i, op := range ops {
		if op.Name == name {
			return op, uint16(i), true
		}
	}
	return Op{}, 0, false
}

type Description struct {
	Summary string `xml:"summary,attr"`
	Full    string `xml:",chardata"`
}

type Op struct {
	Name        string      `xml:"name,attr"`
	Type        string      `xml:"type,attr"`
	Since       int         `xml:"since,attr"`
	Description Description `xml:"description"`

	Args []Arg `xml:"arg"`
}

// IsDestructor reports whether the op destroys its object.
func (op Op) IsDestructor() bool {
	return op.Type == "destructor"
}

type Arg struct {
	Name    string `xml:"name,attr"`
	Summary string `xml:"summary,attr"`

	Type      string `xml:"type,attr"`
	Interface string `xml:"interface,attr"`
	Version   int    `xml:"version,attr"`
	AllowNull bool   `xml:"allow-null,attr"`
}

type Enum struct {
	Name        string      `xml:"name,attr"`
	Description Description `xml:"description"`

	Entries []Entry `xml:"entry"`
}

// Entry finds the named entry.
func (e Enum) Entry(name string) (Entry, bool) {
	for _, entry := range e.Entries {
		if entry.Name == name {
			return entry, true
		}
	}
	return Entry{}, false
}

type Entry struct {
	Name    string `xml:"name,attr"`
	Summary string `xml:"summary,attr"`
	Value   string `xml:"value,attr"`
}

func (e Entry) Int() (int, error) {
	v, err := strconv.ParseInt(e.Value, 0, 0)
	return int(v), err
}
