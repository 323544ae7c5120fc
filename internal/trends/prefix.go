package trends

import "bytes"

// Prefix is the anti-XSSI guard Google prepends to trends JSON.
const Prefix = ")]}'"

// StripPrefix removes every leading copy of Prefix, together with the comma
// and whitespace Google puts after it. Bodies without the guard come back
// with only leading whitespace trimmed. Applying it twice gives the same
// result as applying it once.
func StripPrefix(body []byte) []byte {
	b := bytes.TrimLeft(body, " \t\r\n")
	for bytes.HasPrefix(b, []byte(Prefix)) {
		b = b[len(Prefix):]
		b = bytes.TrimPrefix(b, []byte(","))
		b = bytes.TrimLeft(b, " \t\r\n")
	}
	return b
}
