package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matheus3301/campus/internal/domain"
)

func TestLastOwnMessage(t *testing.T) {
	msgs := []domain.Message{
		{ID: "m1", SenderID: "me"},
		{ID: "m2", SenderID: "them"},
		{ID: "tmp", SenderID: "me", Optimistic: true},
	}
	m, ok := lastOwnMessage(msgs, "me")
	assert.True(t, ok)
	assert.Equal(t, "m1", m.ID)

	_, ok = lastOwnMessage(msgs[1:], "me")
	assert.False(t, ok)
}
