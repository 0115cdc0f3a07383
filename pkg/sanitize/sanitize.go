package sanitize

import (
	"strings"
	"unicode"
)

// Filename removes characters from a user-supplied name that could break
// headers or smuggle path components. Used for upload names and folder names
// before they enter the tree.
func Filename(name string) string {
	name = strings.ReplaceAll(name, "\x00", "")
	name = strings.ReplaceAll(name, "\n", "")
	name = strings.ReplaceAll(name, "\r", "")
	name = strings.ReplaceAll(name, `"`, "")
	name = strings.ReplaceAll(name, `'`, "")
	name = strings.ReplaceAll(name, `\`, "")
	name = strings.ReplaceAll(name, "/", "")

	result := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)

	result = strings.TrimSpace(result)
	result = strings.Trim(result, ".")

	if result == "" {
		return "untitled"
	}

	// Keeps Content-Disposition headers within sane bounds.
	if len(result) > 200 {
		result = result[:200]
	}

	return result
}

// ForHeader sanitizes a filename for use in HTTP headers, falling back to
// ASCII-only for maximum client compatibility.
func ForHeader(name string) string {
	safe := Filename(name)

	return strings.Map(func(r rune) rune {
		if r > 127 {
			return '_'
		}
		return r
	}, safe)
}
