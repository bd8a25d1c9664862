package bus

import "github.com/valerio/go-nescore/nescore/bit"

// Button is one of the eight buttons of a standard controller, numbered in
// the order the shift register reports them.
type Button uint8

const (
	ButtonA Button = iota
	ButtonB
	ButtonSelect
	ButtonStart
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight
)

var buttonNames = [...]string{"A", "B", "Select", "Start", "Up", "Down", "Left", "Right"}

func (b Button) String() string {
	if int(b) < len(buttonNames) {
		return buttonNames[b]
	}
	return "Unknown"
}

// Controller is a standard NES pad behind $4016/$4017. While strobe is high
// the shift register is continuously reloaded, so reads keep returning A.
type Controller struct {
	buttons uint8
	shift   uint8
	strobe  bool
}

// ControllerState is the serializable form of a Controller.
type ControllerState struct {
	Buttons uint8
	Shift   uint8
	Strobe  bool
}

// NewController creates a controller with no buttons held.
func NewController() *Controller {
	return &Controller{}
}

// Press marks a button as held.
func (c *Controller) Press(b Button) { c.SetButton(b, true) }

// Release marks a button as not held.
func (c *Controller) Release(b Button) { c.SetButton(b, false) }

// SetButton holds or releases a button.
func (c *Controller) SetButton(b Button, held bool) {
	c.buttons = bit.SetTo(uint8(b), c.buttons, held)
	if c.strobe {
		c.shift = c.buttons
	}
}

// Held reports whether a button is currently held.
func (c *Controller) Held(b Button) bool {
	return bit.IsSet(uint8(b), c.buttons)
}

// Write handles a $4016 write. Only bit 0 (strobe) is connected.
func (c *Controller) Write(value uint8) {
	c.strobe = bit.IsSet(0, value)
	if c.strobe {
		c.shift = c.buttons
	}
}

// Read returns the next serial bit. After all eight buttons have been read
// an official pad reports 1.
func (c *Controller) Read() uint8 {
	if c.strobe {
		return bit.GetBitValue(0, c.buttons)
	}
	v := bit.GetBitValue(0, c.shift)
	c.shift = c.shift>>1 | 0x80
	return v
}

// Peek returns the bit Read would return, without shifting.
func (c *Controller) Peek() uint8 {
	if c.strobe {
		return bit.GetBitValue(0, c.buttons)
	}
	return bit.GetBitValue(0, c.shift)
}

func (c *Controller) reset() {
	c.shift = 0
	c.strobe = false
}

func (c *Controller) save() ControllerState {
	return ControllerState{Buttons: c.buttons, Shift: c.shift, Strobe: c.strobe}
}

func (c *Controller) load(s ControllerState) {
	c.buttons = s.Buttons
	c.shift = s.Shift
	c.strobe = s.Strobe
}
