package siteconfig

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// fallbackSlug is used when a title or id strips down to nothing.
const fallbackSlug = "service"

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	// slugDisallowed matches anything outside ASCII letters/digits, the Thai block, '_' and '-'.
	slugDisallowed = regexp.MustCompile(`[^a-z0-9\x{0E00}-\x{0E7F}_-]`)
)

// Slugify derives a URL-safe slug: NFC-normalise, trim, lowercase, collapse
// whitespace to '-', turn '/' into '-', then strip disallowed characters.
// The result may be empty.
func Slugify(s string) string {
	s = norm.NFC.String(s)
	s = strings.ToLower(strings.TrimSpace(s))
	s = whitespaceRun.ReplaceAllString(s, "-")
	s = strings.ReplaceAll(s, "/", "-")
	return slugDisallowed.ReplaceAllString(s, "")
}

// AssignSlug picks a collision-free id for a record.
//
// The base slug comes from id when it is non-empty, otherwise from title, and
// falls back to "service". If the base is already in taken, "-2", "-3", ... are
// appended until it is unique. Callers editing an existing record must leave
// that record's original id out of taken.
func AssignSlug(id, title string, taken []string) string {
	raw := id
	if strings.TrimSpace(raw) == "" {
		raw = title
	}
	base := Slugify(raw)
	if base == "" {
		base = fallbackSlug
	}

	slug := base
	for n := 2; slices.Contains(taken, slug); n++ {
		slug = base + "-" + strconv.Itoa(n)
	}
	return slug
}
