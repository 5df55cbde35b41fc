package interaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseInput(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected *KeyEvent
	}{
		{"regular char", []byte{'s'}, &KeyEvent{Key: 's', Type: KeyChar}},
		{"space", []byte{' '}, &KeyEvent{Key: ' ', Type: KeyChar}},
		{"ctrl+c", []byte{3}, &KeyEvent{Key: 3, Type: KeyChar}},
		{"enter", []byte{'\r'}, &KeyEvent{Key: '\r', Type: KeyEnter}},
		{"escape", []byte{27}, &KeyEvent{Key: 27, Type: KeyEscape}},
		{"arrow up", []byte{27, '[', 'A'}, &KeyEvent{Type: KeyUp}},
		{"arrow down", []byte{27, '[', 'B'}, &KeyEvent{Type: KeyDown}},
		{"arrow right", []byte{27, '[', 'C'}, &KeyEvent{Type: KeyRight}},
		{"arrow left", []byte{27, '[', 'D'}, &KeyEvent{Type: KeyLeft}},
		{"unknown sequence", []byte{27, 'O', 'P'}, nil},
		{"empty", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseInput(tt.input))
		})
	}
}
