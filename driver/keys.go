package driver

// Key names a keyboard key using DOM KeyboardEvent.key values, optionally
// prefixed with modifiers ("Control+a").
type Key string

// Special key constants for use with Element.Press.
const (
	Enter     Key = "Enter"
	Escape    Key = "Escape"
	Tab       Key = "Tab"
	Backspace Key = "Backspace"
	Up        Key = "ArrowUp"
	Down      Key = "ArrowDown"
	Left      Key = "ArrowLeft"
	Right     Key = "ArrowRight"
	Home      Key = "Home"
	End       Key = "End"
	PageUp    Key = "PageUp"
	PageDown  Key = "PageDown"
	Space     Key = " "
	Delete    Key = "Delete"

	F1  Key = "F1"
	F2  Key = "F2"
	F3  Key = "F3"
	F4  Key = "F4"
	F5  Key = "F5"
	F6  Key = "F6"
	F7  Key = "F7"
	F8  Key = "F8"
	F9  Key = "F9"
	F10 Key = "F10"
	F11 Key = "F11"
	F12 Key = "F12"
)

// Modifier prefixes understood by Split.
const (
	ModControl = "Control"
	ModAlt     = "Alt"
	ModShift   = "Shift"
	ModMeta    = "Meta"
)

// Ctrl returns the key sequence for Ctrl+<char>.
func Ctrl(c byte) Key {
	return Key(ModControl + "+" + string(c))
}

// Alt returns the key sequence for Alt+<char>.
func Alt(c byte) Key {
	return Key(ModAlt + "+" + string(c))
}

// Split separates k into its modifiers and base key. A lone "+" is a key,
// not a separator.
func (k Key) Split() (mods []string, base string) {
	s := string(k)
	for {
		i := indexPlus(s)
		if i < 0 {
			return mods, s
		}
		mods = append(mods, s[:i])
		s = s[i+1:]
	}
}

func indexPlus(s string) int {
	for i := 0; i < len(s)-1; i++ {
		if s[i] == '+' && i > 0 {
			return i
		}
	}
	return -1
}
