package utils

import (
	"unicode"
	"unicode/utf8"
)

// IsSeparator checks if a rune is a separator character
func IsSeparator(r rune) bool {
	return r == '_' || r == '-' || r == '.' || r == '/' || r == '\''
}

// IsOnlyNumbers checks if a string consists entirely of numeric digits
func IsOnlyNumbers(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// ContainsSpecialChars reports runes that are neither letters, digits nor
// separators.
func ContainsSpecialChars(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !IsSeparator(r) {
			return true
		}
	}
	return false
}

// IsValidInput checks if a typed fragment should be looked up at all.
// Empty, all-digit, repetitive, and punctuated fragments are rejected.
func IsValidInput(s string) bool {
	switch {
	case s == "":
		return false
	case IsOnlyNumbers(s):
		return false
	case ContainsSpecialChars(s):
		return false
	case IsRepetitive(s):
		return false
	}
	return true
}

// IsRepetitive reports strings of three or more copies of one rune, such
// as "aaa" or "www".
func IsRepetitive(s string) bool {
	if utf8.RuneCountInString(s) <= 2 {
		return false
	}
	first, _ := utf8.DecodeRuneInString(s)
	for _, r := range s {
		if r != first {
			return false
		}
	}
	return true
}
