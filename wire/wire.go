// Package wire defines types helpful for dealing with the Wayland
// wire protocol. It is used by both the server and client packages.
package wire

import (
	"errors"
	"fmt"
	"io"
	"net"

	"golang.org/x/sys/unix"
)

// MaxFDs is the most file descriptors that will be accepted alongside
// a single read from the socket.
const MaxFDs = 28

// Object represents a Wayland protocol object.
type Object interface {
	// ID is the object's ID. It is zero until the object has been added
	// to an object store.
	ID() uint32
	SetID(id uint32)

	// Interface is the name of the object's protocol interface, such as
	// "wl_display".
	Interface() string

	// Dispatch performs the operation requested by the message in the
	// buffer.
	Dispatch(msg *MessageBuffer) error

	// MethodName returns the name of the incoming method with the given
	// opcode. It is used for debugging.
	MethodName(op uint16) string

	// Delete is called when the object is removed from its store.
	Delete()
}

// Name formats obj in the conventional interface@id form.
func Name(obj Object) string {
	if isNil(obj) {
		return "nil"
	}
	return fmt.Sprintf("%v@%v", obj.Interface(), obj.ID())
}

// NewID is an untyped new_id argument, as used by wl_registry.bind.
type NewID struct {
	Interface string
	Version   uint32
	ID        uint32
}

// unixTee reads from c, but also reads out-of-band data
// simultaneously, writing it into oob.
type unixTee struct {
	c   *net.UnixConn
	oob io.Writer
}

func (t unixTee) Read(buf []byte) (int, error) {
	oob := make([]byte, unix.CmsgSpace(MaxFDs*4))
	n, oobn, _, _, err := t.c.ReadMsgUnix(buf, oob)
	_, ooberr := t.oob.Write(oob[:oobn])
	if (n == 0) && (err == nil) {
		err = io.EOF
	}
	return n, errors.Join(err, ooberr)
}
