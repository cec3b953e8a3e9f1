package harness

import (
	"deedles.dev/cascade/inhibit"
	"deedles.dev/cascade/pointer"
	"deedles.dev/cascade/seat"
	"deedles.dev/cascade/wire"
)

// Pointer is a fake pointer device attached to a DisplayServer's seat.
type Pointer struct {
	seat *seat.Seat
	x, y wire.Fixed
}

// MoveTo moves the pointer to the absolute position (x, y).
func (p *Pointer) MoveTo(x, y wire.Fixed) (inhibit.ClientID, bool) {
	p.x, p.y = x, y
	return p.seat.Motion(x, y)
}

// MoveBy moves the pointer relative to where it is.
func (p *Pointer) MoveBy(dx, dy wire.Fixed) (inhibit.ClientID, bool) {
	return p.MoveTo(p.x+dx, p.y+dy)
}

// Position returns where the pointer is.
func (p *Pointer) Position() (x, y wire.Fixed) {
	return p.x, p.y
}

func (p *Pointer) Press(b pointer.Button) (inhibit.ClientID, bool) {
	return p.seat.Button(b, true)
}

func (p *Pointer) Release(b pointer.Button) (inhibit.ClientID, bool) {
	return p.seat.Button(b, false)
}

// Click presses and then releases b. It reports where the release
// went.
func (p *Pointer) Click(b pointer.Button) (inhibit.ClientID, bool) {
	p.Press(b)
	return p.Release(b)
}

// Keyboard is a fake keyboard attached to a DisplayServer's seat. Keys
// are linux input-event codes.
type Keyboard struct {
	seat *seat.Seat
}

func (k *Keyboard) Press(code uint32) (inhibit.ClientID, bool) {
	return k.seat.Key(code, true)
}

func (k *Keyboard) Release(code uint32) (inhibit.ClientID, bool) {
	return k.seat.Key(code, false)
}

// Type presses and then releases a key.
func (k *Keyboard) Type(code uint32) (inhibit.ClientID, bool) {
	k.Press(code)
	return k.Release(code)
}
