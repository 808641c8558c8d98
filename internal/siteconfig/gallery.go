package siteconfig

import (
	"fmt"
	"slices"
)

// Move directions for MoveURL.
const (
	MoveUp   = "up"
	MoveDown = "down"
)

// AppendURLs returns list with the non-empty urls appended in order.
func AppendURLs(list []string, urls ...string) []string {
	out := make([]string, 0, len(list)+len(urls))
	out = append(out, list...)
	for _, u := range urls {
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}

// RemoveURL returns list without any entry equal to url.
func RemoveURL(list []string, url string) []string {
	out := make([]string, 0, len(list))
	for _, u := range list {
		if u != url {
			out = append(out, u)
		}
	}
	return out
}

// MoveURL swaps the entry at index with its neighbour in direction.
// Moving the first entry up or the last entry down leaves the list unchanged.
func MoveURL(list []string, index int, direction string) ([]string, error) {
	if index < 0 || index >= len(list) {
		return nil, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, index, len(list))
	}

	var target int
	switch direction {
	case MoveUp:
		target = index - 1
	case MoveDown:
		target = index + 1
	default:
		return nil, fmt.Errorf("%w: direction must be %q or %q", ErrInvalidPatch, MoveUp, MoveDown)
	}

	out := slices.Clone(list)
	if target < 0 || target >= len(out) {
		return out, nil
	}
	out[index], out[target] = out[target], out[index]
	return out, nil
}
