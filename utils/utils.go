package utils

import "strings"

// Answer checking utilities
func NormalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// AnswersMatch compares two option values the way scoring does: case-insensitive, by value.
func AnswersMatch(a, b string) bool {
	return NormalizeAnswer(a) == NormalizeAnswer(b)
}

// CountMatches returns how many options match answer.
func CountMatches(options []string, answer string) int {
	n := 0
	for _, opt := range options {
		if AnswersMatch(opt, answer) {
			n++
		}
	}
	return n
}

// FindOption returns the option text that matches value, if any.
func FindOption(options []string, value string) (string, bool) {
	for _, opt := range options {
		if AnswersMatch(opt, value) {
			return opt, true
		}
	}
	return "", false
}
