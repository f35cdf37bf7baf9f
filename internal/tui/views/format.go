package views

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/matheus3301/campus/internal/domain"
)

// sanitizeForTerminal drops codepoints tcell renders badly: skin tone
// modifiers, the zero width joiner and variation selectors. Control
// characters other than newline become spaces.
func sanitizeForTerminal(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case isProblematicRune(r):
		case r < 0x20 && r != '\n':
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
		i += size
	}
	return b.String()
}

func isProblematicRune(r rune) bool {
	switch {
	case r >= 0x1F3FB && r <= 0x1F3FF:
		return true
	case r == 0x200D:
		return true
	case r >= 0xFE00 && r <= 0xFE0F:
		return true
	case r >= 0xE0100 && r <= 0xE01EF:
		return true
	default:
		return false
	}
}

// formatTime shows a clock time for today and a date otherwise.
func formatTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.Local()
	now = now.Local()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	if t.Year() == now.Year() {
		return t.Format("Jan 02")
	}
	return t.Format("2006-01-02")
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// counterpartName is the label of the other side of c.
func counterpartName(c domain.Conversation, me domain.Identity) (string, domain.Role) {
	if c.Other != nil {
		return c.Other.DisplayName(), c.Other.Role
	}
	other := c.Counterpart(me)
	return other.String(), other.Role
}
