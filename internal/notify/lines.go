package notify

import (
	"github.com/kesslerio/dialpad-openclaw-skill/pkg/phone"
)

// LineDirectory resolves receiving line numbers to display text. Built
// once from configuration at startup and read-only afterwards.
type LineDirectory struct {
	names map[string]string
}

// NewLineDirectory expects a mapping keyed by normalized phone number
// (config.NormalizedLineNames).
func NewLineDirectory(names map[string]string) *LineDirectory {
	if names == nil {
		names = map[string]string{}
	}
	return &LineDirectory{names: names}
}

// Display renders a line number as "Friendly Name (NXX) NXX-XXXX" when
// mapped, the formatted number when not, and "" when the number is missing.
func (d *LineDirectory) Display(toNumber string) string {
	normalized := phone.Normalize(toNumber)
	if normalized == "" {
		return ""
	}

	formatted := phone.Format(normalized)
	if formatted == "" {
		formatted = normalized
	}
	if friendly, ok := d.names[normalized]; ok && friendly != "" {
		return friendly + " " + formatted
	}
	return formatted
}
