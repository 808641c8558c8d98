package siteconfig

import "fmt"

// ValidateServiceDetails rejects a replacement list that would break the
// one-record-per-topic rule.
func ValidateServiceDetails(details []ServiceDetail) error {
	seen := make(map[string]bool, len(details))
	for i, d := range details {
		if d.TopicID == "" {
			return fmt.Errorf("%w: serviceDetails[%d].topicId is required", ErrInvalidPatch, i)
		}
		if seen[d.TopicID] {
			return fmt.Errorf("%w: duplicate serviceDetails topicId %q", ErrInvalidPatch, d.TopicID)
		}
		seen[d.TopicID] = true
	}
	return nil
}

// ValidateTheme rejects theme patches with channels that are not CSS hex colours.
// Empty channels are allowed; they mean "keep the current value".
func ValidateTheme(t Theme) error {
	channels := []struct {
		name, value string
	}{
		{"primary", t.Primary},
		{"primarySoft", t.PrimarySoft},
		{"accent", t.Accent},
		{"background", t.Background},
		{"surface", t.Surface},
		{"text", t.Text},
	}
	for _, c := range channels {
		if c.value != "" && !isHexColour(c.value) {
			return fmt.Errorf("%w: theme.%s must be a #rgb, #rrggbb or #rrggbbaa colour", ErrInvalidPatch, c.name)
		}
	}
	return nil
}

func isHexColour(s string) bool {
	if len(s) != 4 && len(s) != 7 && len(s) != 9 {
		return false
	}
	if s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
