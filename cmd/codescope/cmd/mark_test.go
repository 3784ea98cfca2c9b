package cmd

import "testing"

func TestFeedbackKind_ExactlyOneFlagRequired(t *testing.T) {
	if _, err := feedbackKind(false, false, false); err == nil {
		t.Error("expected error when no flag is set")
	}
	if _, err := feedbackKind(true, true, false); err == nil {
		t.Error("expected error when more than one flag is set")
	}
}

func TestFeedbackKind_MapsFlagToKind(t *testing.T) {
	cases := []struct {
		useful, notUseful, promising bool
		want                         string
	}{
		{true, false, false, "useful"},
		{false, true, false, "not_useful"},
		{false, false, true, "promising"},
	}
	for _, c := range cases {
		got, err := feedbackKind(c.useful, c.notUseful, c.promising)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != c.want {
			t.Errorf("feedbackKind(%v,%v,%v) = %q, want %q", c.useful, c.notUseful, c.promising, got, c.want)
		}
	}
}
