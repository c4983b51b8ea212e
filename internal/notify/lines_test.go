package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineDirectoryDisplay(t *testing.T) {
	directory := NewLineDirectory(map[string]string{
		"4155551000": "Sales",
	})

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"mapped line", "+14155551000", "Sales (415) 555-1000"},
		{"mapped without country code", "4155551000", "Sales (415) 555-1000"},
		{"unmapped line", "+14155559999", "(415) 555-9999"},
		{"empty", "", ""},
		{"no digits", "unknown", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, directory.Display(tt.in))
		})
	}
}

func TestLineDirectoryNilNames(t *testing.T) {
	directory := NewLineDirectory(nil)
	assert.Equal(t, "(415) 555-9999", directory.Display("+14155559999"))
}
