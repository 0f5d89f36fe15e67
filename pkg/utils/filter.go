package utils

import "strings"

// OneOf returns true if the given string is one of the given values
func OneOf(s string, values []string) bool {
	for _, v := range values {
		if s == v {
			return true
		}
	}

	return false
}

// OneOfFold is OneOf with case-insensitive comparison
func OneOfFold(s string, values []string) bool {
	for _, v := range values {
		if strings.EqualFold(s, v) {
			return true
		}
	}

	return false
}

// ContainsAnyFold returns true if s contains any of the given substrings, case-insensitive.
// Path separators are not normalized.
func ContainsAnyFold(s string, substrings []string) bool {
	var lower = strings.ToLower(s)
	for _, sub := range substrings {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}

	return false
}
