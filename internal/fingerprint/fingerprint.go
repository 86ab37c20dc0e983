// Package fingerprint derives stable identifiers for imported questions.
package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/conorfennell/studybuddy/internal/domain"
)

// Normalize joins the card's lowercased, trimmed fields with newlines.
func Normalize(card domain.Card) string {
	normalizePart := func(part string) string {
		p := strings.ReplaceAll(part, "\r\n", "\n")
		p = strings.ToLower(p)
		return strings.TrimSpace(p)
	}

	return strings.Join([]string{
		normalizePart(card.Subject),
		normalizePart(card.Topic),
		normalizePart(card.Text),
	}, "\n")
}

// ID returns the hex SHA-256 of the normalized card.
func ID(card domain.Card) string {
	sum := sha256.Sum256([]byte(Normalize(card)))
	return fmt.Sprintf("%x", sum)
}
