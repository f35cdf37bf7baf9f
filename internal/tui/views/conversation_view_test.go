package views

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/matheus3301/campus/internal/domain"
	"github.com/matheus3301/campus/internal/tui/ui"
)

func TestTimelineMarkers(t *testing.T) {
	cv := NewConversationView(ui.DefaultTheme(), me)
	now := time.Now()
	text := cv.renderTimeline([]domain.Message{
		{ID: "m1", SenderID: lecturer.ID, Text: "hello [red]", CreatedAt: now},
		{ID: "m2", SenderID: me.ID, Text: "fixed", CreatedAt: now, IsEdited: true},
		{ID: "tmp", SenderID: me.ID, Text: "on its way", CreatedAt: now, Optimistic: true},
	})

	assert.Contains(t, text, "t1")
	assert.Contains(t, text, "(edited)")
	assert.Contains(t, text, "(sending)")
	assert.Contains(t, text, "You")
	assert.NotContains(t, text, "hello [red]", "tags in message text are escaped")
}

func TestTimelineEmpty(t *testing.T) {
	cv := NewConversationView(ui.DefaultTheme(), me)
	assert.Contains(t, cv.renderTimeline(nil), "No messages yet.")
}

func TestComposerMirrorsBuffer(t *testing.T) {
	cv := NewConversationView(ui.DefaultTheme(), me)
	var buffer string
	cv.BindInput(func(text string) { buffer = text }, nil)

	cv.SyncInput("restored draft")
	assert.Equal(t, "restored draft", cv.Composer().GetText())
	assert.Equal(t, "restored draft", buffer)

	cv.SyncInput("")
	assert.Equal(t, "", cv.Composer().GetText())
	assert.Equal(t, "", buffer)
}

func TestSetConversationTitle(t *testing.T) {
	cv := NewConversationView(ui.DefaultTheme(), me)
	cv.SetConversation(domain.Conversation{Participant1: me, Participant2: lecturer,
		Other: &domain.Profile{Identity: lecturer, Name: "Ms. Lee"}})
	assert.Equal(t, "Ms. Lee", cv.Name())
}
