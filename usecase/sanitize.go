package usecase

import "strings"

// Sanitize strips the markdown-style emphasis delimiters the backend
// decorates replies with. Only the literal '*' character is removed; every
// other character, including multibyte text, passes through untouched.
// Sanitizing already-clean text is a no-op.
func Sanitize(text string) string {
	return strings.ReplaceAll(text, "*", "")
}
