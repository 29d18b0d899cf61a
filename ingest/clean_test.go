package ingest

import "testing"

func TestCleanText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"whitespace runs", "too   many\n\n\t spaces", "too many spaces"},
		{"leader dots", "Chapter One.......", "Chapter One"},
		{"trailing page number", "end of the section. 42", "end of the section."},
		{"already clean", "nothing to do here.", "nothing to do here."},
		{"surrounding space", "  padded  ", "padded"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanText(tc.in); got != tc.want {
				t.Errorf("CleanText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCleanTextNormalizesUnicode(t *testing.T) {
	// Decomposed e + combining acute must collapse to the NFC form.
	in := "café"
	want := "café"
	if got := CleanText(in); got != want {
		t.Errorf("CleanText(%q) = %q, want %q", in, got, want)
	}
}
