package sanitize

import "testing"

func TestField(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "x0042", "x0042"},
		{"bom", "\ufeffx0042", "x0042"},
		{"zero width", "LIG\u200b1", "LIG1"},
		{"crlf leftover", "c1ccccc1\r", "c1ccccc1"},
		{"no-break space kept as space", "a\u00a0b", "a b"},
		{"surrounding", "  \tCCO \u2060", "CCO"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Field(tt.in); got != tt.want {
				t.Errorf("Field(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
