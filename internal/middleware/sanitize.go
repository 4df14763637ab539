package middleware

import (
	"path/filepath"
	"strings"
	"unicode"
)

const (
	// MaxSearchLength limita termos de busca vindos da tabela
	MaxSearchLength = 256
	maxFilenameLen  = 255
)

// SanitizeSearch trims a search term, drops control characters and truncates it
func SanitizeSearch(input string) string {
	input = removeControlChars(strings.ReplaceAll(input, "\x00", ""))
	input = strings.TrimSpace(input)

	if len(input) > MaxSearchLength {
		input = truncateRunes(input, MaxSearchLength)
	}
	return input
}

// SanitizeFilename sanitizes a filename by:
// - Removing path components and traversal sequences
// - Removing control characters
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = filepath.Base(filename)

	filename = strings.ReplaceAll(filename, "\x00", "")
	filename = strings.ReplaceAll(filename, "..", "")
	filename = strings.ReplaceAll(filename, "/", "")
	filename = removeControlChars(filename)
	filename = strings.TrimSpace(filename)

	if filename == "" || filename == "." {
		return "unnamed_file"
	}
	if len(filename) > maxFilenameLen {
		filename = truncateRunes(filename, maxFilenameLen)
	}
	return filename
}

// SanitizeToken removes whitespace and control characters around a bearer token
func SanitizeToken(token string) string {
	return strings.TrimSpace(removeControlChars(token))
}

// SanitizeEmail normalises the requester email used for membership checks
func SanitizeEmail(email string) string {
	return strings.TrimSpace(removeControlChars(email))
}

// removeControlChars removes control characters from a string
func removeControlChars(s string) string {
	var result strings.Builder
	for _, r := range s {
		if !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// truncateRunes cuts s to at most n bytes without splitting a rune
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
