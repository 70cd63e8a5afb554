package main

import (
	"strings"
	"unicode"
)

const (
	maxCardIDLength = 64
	maxLabelLength  = 64
)

// isValidCardID accepts the tag formats readers emit: letters, digits,
// '-', '_' and ':'.
func isValidCardID(card string) bool {
	if card == "" || len(card) > maxCardIDLength {
		return false
	}

	for _, r := range card {
		if r == '-' || r == '_' || r == ':' {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		return false
	}

	return true
}

func isValidReaderField(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" || len(value) > maxLabelLength {
		return false
	}
	for _, r := range value {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}
