package views

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/matheus3301/campus/internal/domain"
)

func TestSanitizeForTerminal(t *testing.T) {
	assert.Equal(t, "👍 ok", sanitizeForTerminal("👍\U0001F3FB ok"))
	assert.Equal(t, "a b\nc", sanitizeForTerminal("a\tb\nc"))
	assert.Equal(t, "plain", sanitizeForTerminal("plain"))
}

func TestFormatTime(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.Local)
	assert.Equal(t, "", formatTime(time.Time{}, now))
	assert.Equal(t, "09:05", formatTime(time.Date(2026, 3, 10, 9, 5, 0, 0, time.Local), now))
	assert.Equal(t, "Feb 01", formatTime(time.Date(2026, 2, 1, 9, 0, 0, 0, time.Local), now))
	assert.Equal(t, "2025-12-31", formatTime(time.Date(2025, 12, 31, 9, 0, 0, 0, time.Local), now))
}

func TestCounterpartName(t *testing.T) {
	me := domain.Identity{ID: "s1", Role: domain.Student}
	lecturer := domain.Identity{ID: "t1", Role: domain.Staff}
	c := domain.Conversation{Participant1: lecturer, Participant2: me}

	name, role := counterpartName(c, me)
	assert.Equal(t, "staff:t1", name)
	assert.Equal(t, domain.Staff, role)

	c.Other = &domain.Profile{Identity: lecturer, Name: "Ms. Lee"}
	name, _ = counterpartName(c, me)
	assert.Equal(t, "Ms. Lee", name)
}
