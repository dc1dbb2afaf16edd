package pagewalk

import "github.com/cboone/pagewalk/driver"

// Key names a keyboard key for Press. It is driver.Key, so driver constants
// work as well.
type Key = driver.Key

// Special key constants for use with Press.
const (
	Enter     = driver.Enter
	Escape    = driver.Escape
	Tab       = driver.Tab
	Backspace = driver.Backspace
	Up        = driver.Up
	Down      = driver.Down
	Left      = driver.Left
	Right     = driver.Right
	Home      = driver.Home
	End       = driver.End
	PageUp    = driver.PageUp
	PageDown  = driver.PageDown
	Space     = driver.Space
	Delete    = driver.Delete

	F1  = driver.F1
	F2  = driver.F2
	F3  = driver.F3
	F4  = driver.F4
	F5  = driver.F5
	F6  = driver.F6
	F7  = driver.F7
	F8  = driver.F8
	F9  = driver.F9
	F10 = driver.F10
	F11 = driver.F11
	F12 = driver.F12
)

// Ctrl returns the key sequence for Ctrl+<char>.
func Ctrl(c byte) Key {
	return driver.Ctrl(c)
}

// Alt returns the key sequence for Alt+<char>.
func Alt(c byte) Key {
	return driver.Alt(c)
}
