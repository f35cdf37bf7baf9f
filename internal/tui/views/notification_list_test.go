package views

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/matheus3301/campus/internal/domain"
	"github.com/matheus3301/campus/internal/tui/ui"
)

func TestNotificationListMarksUnviewed(t *testing.T) {
	nl := NewNotificationList(ui.DefaultTheme())
	sender := "t1"
	nl.Update([]domain.Notification{
		{ID: "n2", Message: "Grades posted", Source: "grades", SenderID: &sender, CreatedAt: time.Now()},
		{ID: "n1", Message: "Welcome", Source: "system", Viewed: true, CreatedAt: time.Now()},
	})

	assert.Equal(t, 3, nl.GetRowCount())
	assert.Equal(t, "●", nl.GetCell(1, 0).Text)
	assert.Equal(t, " t1", nl.GetCell(1, 1).Text)
	assert.Equal(t, " ", nl.GetCell(2, 0).Text)
	assert.Equal(t, " system", nl.GetCell(2, 1).Text)
	assert.Contains(t, nl.GetTitle(), "1 new")
}

func TestSearchViewSelection(t *testing.T) {
	sv := NewSearchView(ui.DefaultTheme())
	_, ok := sv.Selected()
	assert.False(t, ok)

	sv.Update("lee", []domain.Profile{{Identity: lecturer, Name: "Ms. Lee"}})
	id, ok := sv.Selected()
	assert.True(t, ok)
	assert.Equal(t, lecturer, id)
	assert.Contains(t, sv.GetTitle(), `"lee" (1)`)
}
