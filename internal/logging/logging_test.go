package logging

import "testing"

func TestNewAcceptsKnownFormats(t *testing.T) {
	for _, format := range []string{"", "console", "json"} {
		logger, err := New("debug", format)
		if err != nil {
			t.Fatalf("New(debug, %q): %v", format, err)
		}
		if !logger.Core().Enabled(-1) {
			t.Fatalf("expected debug level enabled for %q", format)
		}
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New("loud", "json"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if _, err := New("info", "xml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
