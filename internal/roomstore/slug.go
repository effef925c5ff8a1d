package roomstore

import (
	"fmt"
	"regexp"
	"strings"
)

const fallbackSlug = "room"

var (
	slugStrip  = regexp.MustCompile(`[^\w\p{Z}\s-]`)
	slugSpaces = regexp.MustCompile(`[\p{Z}\s]+`)
	slugDashes = regexp.MustCompile(`-+`)
)

// Slugify lowercases name, drops punctuation and joins words with dashes.
// Names without any usable character fall back to "room".
func Slugify(name string) string {
	s := strings.TrimSpace(strings.ToLower(name))
	s = slugStrip.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return fallbackSlug
	}
	return s
}

// UniqueSlug returns base, or base-1, base-2, ... for the first candidate
// that taken reports as free.
func UniqueSlug(base string, taken func(slug string) (bool, error)) (string, error) {
	candidate := base
	for n := 1; ; n++ {
		exists, err := taken(candidate)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}
