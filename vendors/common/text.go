package common

import (
	"regexp"
	"strings"
)

// ansiRegex matches ANSI escape sequences (colors, cursor movement, etc.)
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// digitsRegex matches the first run of decimal digits
var digitsRegex = regexp.MustCompile(`\d+`)

// EscapedCRLF is a carriage-return line-feed pair as rendered by EscapeControl
const EscapedCRLF = `\r\n`

const hexDigits = "0123456789abcdef"

// StripANSI removes ANSI escape codes from a string.
// Useful for parsing CLI output that may contain terminal formatting.
func StripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// EscapeControl renders raw terminal bytes as single-line text.
// CR, LF and TAB become `\r`, `\n` and `\t`, a backslash is doubled, and any
// other byte outside printable ASCII becomes `\xNN`.
func EscapeControl(raw []byte) string {
	var b strings.Builder
	b.Grow(len(raw) + len(raw)/8)
	for _, c := range raw {
		switch {
		case c == '\\':
			b.WriteString(`\\`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\t':
			b.WriteString(`\t`)
		case c < 0x20 || c >= 0x7f:
			b.WriteString(`\x`)
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0x0f])
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// SplitEscapedLines splits escaped text on the literal `\r\n` token
func SplitEscapedLines(s string) []string {
	return strings.Split(s, EscapedCRLF)
}

// FirstDigits returns the first run of decimal digits in s
func FirstDigits(s string) (string, bool) {
	d := digitsRegex.FindString(s)
	return d, d != ""
}
