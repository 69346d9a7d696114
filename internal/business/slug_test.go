package business

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Swahili Bites", "swahili-bites"},
		{"  Mama's Kitchen  ", "mama-s-kitchen"},
		{"Chez Café!", "chez-caf"},
		{"A--B", "a-b"},
		{"123 Grill", "123-grill"},
		{"---", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCandidateUsername(t *testing.T) {
	if got := CandidateUsername("swahili-bites", 0); got != "swahili-bites" {
		t.Errorf("n=0: %q", got)
	}
	if got := CandidateUsername("swahili-bites", 2); got != "swahili-bites-2" {
		t.Errorf("n=2: %q", got)
	}
}
