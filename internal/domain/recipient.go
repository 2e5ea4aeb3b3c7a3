package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultMinRecipientLength is the default length a recipient must exceed to be dispatched to.
const DefaultMinRecipientLength = 10

// Recipient is a phone-number-shaped destination for an alert.
type Recipient string

// ValidateRecipient trims raw and checks it is longer than minLen.
func ValidateRecipient(raw string, minLen int) (Recipient, error) {
	r := strings.TrimSpace(raw)
	if r == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidRecipient)
	}
	if n := utf8.RuneCountInString(r); n <= minLen {
		return "", fmt.Errorf("%w: %q has %d characters, need more than %d", ErrInvalidRecipient, r, n, minLen)
	}
	return Recipient(r), nil
}

// FilterRecipients returns the valid recipients of raw in their original order
// with duplicates removed, plus how many entries were dropped as invalid.
func FilterRecipients(raw []string, minLen int) ([]Recipient, int) {
	valid := make([]Recipient, 0, len(raw))
	seen := make(map[Recipient]struct{}, len(raw))
	dropped := 0
	for _, s := range raw {
		r, err := ValidateRecipient(s, minLen)
		if err != nil {
			dropped++
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		valid = append(valid, r)
	}
	return valid, dropped
}

// Masked hides all but the last four characters, for logs.
func (r Recipient) Masked() string {
	runes := []rune(string(r))
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-4:])
}
