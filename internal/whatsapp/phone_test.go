package whatsapp

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name        string
		phone       string
		countryCode string
		want        string
	}{
		{"international with plus", "+91 98000-00001", "", "919800000001"},
		{"double zero prefix", "00 44 20 7946 0000", "", "442079460000"},
		{"national with country code", "050-123-4567", "972", "972501234567"},
		{"national without country code", "050-123-4567", "", "0501234567"},
		{"trunk zero after country code", "+972 050 123 4567", "972", "972501234567"},
		{"parentheses", "(555) 010-0000", "", "5550100000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePhone(tt.phone, tt.countryCode); got != tt.want {
				t.Errorf("NormalizePhone(%q, %q) = %q, want %q", tt.phone, tt.countryCode, got, tt.want)
			}
		})
	}
}

func TestRenderTemplate(t *testing.T) {
	got := RenderTemplate(TemplateMessage{
		Template: InviteTemplate,
		Params:   []string{"Ann", "Sam & Alex", "https://example.com/app"},
	})
	want := "Hi Ann!\n\nYou're invited to celebrate Sam & Alex.\n\nGet the app to see the events and RSVP: https://example.com/app"
	if got != want {
		t.Errorf("RenderTemplate = %q, want %q", got, want)
	}

	if got := RenderTemplate(TemplateMessage{Template: "other", Params: []string{"a", "b"}}); got != "a\nb" {
		t.Errorf("fallback render = %q, want %q", got, "a\nb")
	}
}
