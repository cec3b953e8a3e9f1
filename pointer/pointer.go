// Package pointer contains utilities for handling pointer input.
package pointer

import "fmt"

// Button indicates a mouse button.
type Button uint32

// These values were pulled from linux/input-event-codes.h.
const (
	ButtonLeft Button = 0x110 + iota
	ButtonRight
	ButtonMiddle
	ButtonSide
	ButtonExtra
	ButtonForward
	ButtonBack
	ButtonTask
)

var buttonNames = [...]string{
	ButtonLeft - ButtonLeft:    "left",
	ButtonRight - ButtonLeft:   "right",
	ButtonMiddle - ButtonLeft:  "middle",
	ButtonSide - ButtonLeft:    "side",
	ButtonExtra - ButtonLeft:   "extra",
	ButtonForward - ButtonLeft: "forward",
	ButtonBack - ButtonLeft:    "back",
	ButtonTask - ButtonLeft:    "task",
}

func (b Button) String() string {
	if (b < ButtonLeft) || (b > ButtonTask) {
		return fmt.Sprintf("unknown(%#x)", uint32(b))
	}
	return buttonNames[b-ButtonLeft]
}

// ParseButton returns the button with the given name, as returned by
// String.
func ParseButton(name string) (Button, error) {
	for i, n := range buttonNames {
		if n == name {
			return ButtonLeft + Button(i), nil
		}
	}
	return 0, fmt.Errorf("unknown button %q", name)
}
