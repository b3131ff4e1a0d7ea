package normalize

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantRaw   string
		wantCanon string
	}{
		{
			name:      "plain line unchanged",
			input:     "interface Gi0/1 up",
			wantRaw:   "interface Gi0/1 up",
			wantCanon: "interface Gi0/1 up",
		},
		{
			name:      "trailing newline stripped",
			input:     "session started\n",
			wantRaw:   "session started",
			wantCanon: "session started",
		},
		{
			name:      "crlf stripped",
			input:     "session started\r\n",
			wantRaw:   "session started",
			wantCanon: "session started",
		},
		{
			name:      "internal whitespace collapsed",
			input:     "user  admin\tlogged   in",
			wantRaw:   "user  admin\tlogged   in",
			wantCanon: "user admin logged in",
		},
		{
			name:      "leading and trailing spaces trimmed in canonical",
			input:     "   padded message   ",
			wantRaw:   "   padded message   ",
			wantCanon: "padded message",
		},
		{
			name:      "whitespace only line",
			input:     "   \t  \n",
			wantRaw:   "   \t  ",
			wantCanon: "",
		},
		{
			name:      "empty line",
			input:     "",
			wantRaw:   "",
			wantCanon: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if got.Raw != tt.wantRaw {
				t.Errorf("Raw = %q, want %q", got.Raw, tt.wantRaw)
			}
			if got.Canonical != tt.wantCanon {
				t.Errorf("Canonical = %q, want %q", got.Canonical, tt.wantCanon)
			}
		})
	}
}

func TestNormalizeAllPreservesOrder(t *testing.T) {
	lines := NormalizeAll([]string{"first\n", "second\n", "third"})
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	want := []string{"first", "second", "third"}
	for i, w := range want {
		if lines[i].Canonical != w {
			t.Errorf("line %d = %q, want %q", i, lines[i].Canonical, w)
		}
	}
}
