package util

import (
	"errors"
	"strings"
	"unicode"
)

const maxFileNameLen = 64

// SanitizeFileName turns free text (an artwork title) into a file name stem safe for
// Content-Disposition: letters, digits, '-' and '_' survive, runs of anything else
// collapse to a single '_'.
func SanitizeFileName(name string) (string, error) {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	s := strings.Trim(b.String(), "_")
	if s == "" {
		return "", errors.New("invalid file name")
	}
	if runes := []rune(s); len(runes) > maxFileNameLen {
		s = strings.TrimRight(string(runes[:maxFileNameLen]), "_")
	}
	return s, nil
}
