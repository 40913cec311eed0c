package tui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress_View(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		percent    float64
		wantFilled int
		wantLabel  string
	}{
		{"empty", 0, 0, "  0%"},
		{"half", 0.5, 19, " 50%"},
		{"full", 1, 38, "100%"},
		{"below zero", -0.3, 0, "  0%"},
		{"above one", 1.7, 38, "100%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := NewProgress().SetPercent(tt.percent)
			view := p.View()
			assert.Equal(t, tt.wantFilled, strings.Count(view, "█"))
			assert.Equal(t, 38-tt.wantFilled, strings.Count(view, "░"))
			assert.Contains(t, view, tt.wantLabel)
		})
	}
}

func TestProgress_Message(t *testing.T) {
	t.Parallel()

	p := NewProgress().WithWidth(12).SetMessage("layer 4 of 25")
	view := p.View()
	assert.Equal(t, 10, strings.Count(view, "░"))
	assert.Contains(t, view, "layer 4 of 25")
	assert.NotContains(t, NewProgress().View(), "\n")
}
