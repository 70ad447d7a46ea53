package platform

import "unicode/utf8"

// keysymRunes maps X keysym names that are not printable text to the
// character a text field would receive.
var keysymRunes = map[string]rune{
	"Return":    '\r',
	"KP_Enter":  '\r',
	"BackSpace": '\b',
	"Tab":       '\t',
	"space":     ' ',
	"Escape":    0x1b,
	"Delete":    0x7f,
}

// KeyRune converts the string produced by a key press lookup into the
// character it types. Modifier and function keys report false.
func KeyRune(name string) (rune, bool) {
	if r, ok := keysymRunes[name]; ok {
		return r, true
	}
	if utf8.RuneCountInString(name) != 1 {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return 0, false
	}
	return r, true
}
