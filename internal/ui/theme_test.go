package ui

import "testing"

func TestClassic(t *testing.T) {
	theme := Classic(false)
	if theme.Name != "classic" {
		t.Errorf("expected name 'classic', got %q", theme.Name)
	}
	if theme.Accent.GetForeground() == nil {
		t.Error("Classic(false) should have colors")
	}
}

func TestNoColor(t *testing.T) {
	theme := NoColor(true)
	if theme.Name != "nocolor" {
		t.Errorf("expected name 'nocolor', got %q", theme.Name)
	}
	// NoColor should use bold for title
	if !theme.Title.GetBold() {
		t.Error("NoColor should use bold for title")
	}
}

func TestGetTheme(t *testing.T) {
	tests := []struct {
		name     string
		noColor  bool
		expected string
	}{
		{"classic", false, "classic"},
		{"night", false, "night"},
		{"mono", false, "mono"},
		{"nocolor", false, "nocolor"},
		{"invalid", false, "classic"}, // defaults to classic
		{"classic", true, "nocolor"},  // noColor overrides
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			theme := GetTheme(tt.name, tt.noColor)
			if theme.Name != tt.expected {
				t.Errorf("GetTheme(%q, %v) = %q, want %q", tt.name, tt.noColor, theme.Name, tt.expected)
			}
		})
	}
}

func TestValidTheme(t *testing.T) {
	for _, name := range ThemeNames() {
		if !ValidTheme(name) {
			t.Errorf("ValidTheme(%q) should be true", name)
		}
	}
	if ValidTheme("invalid") {
		t.Error("ValidTheme('invalid') should be false")
	}
}
