package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want Command
	}{
		{"q", Command{Name: "quit"}},
		{":quit", Command{Name: "quit"}},
		{"chat staff:t1", Command{Name: "chat", Args: "staff:t1"}},
		{"  C  parent:p1 ", Command{Name: "chat", Args: "parent:p1"}},
		{"edit Fixed The Typo", Command{Name: "edit", Args: "Fixed The Typo"}},
		{"unsend", Command{Name: "unsend"}},
		{"rm", Command{Name: "delete"}},
		{"", Command{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseCommand(tt.in), tt.in)
	}
}
