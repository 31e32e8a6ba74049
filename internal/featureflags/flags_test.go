package featureflags

import "testing"

func TestEnabled(t *testing.T) {
	cases := map[string]bool{
		"":      false,
		"0":     false,
		"false": false,
		"1":     true,
		"TRUE":  true,
		" yes ": true,
		"on":    true,
	}

	for value, want := range cases {
		t.Setenv("FLAG_DISABLE_REGISTRATION", value)
		if got := Enabled(DisableRegistration); got != want {
			t.Errorf("FLAG_DISABLE_REGISTRATION=%q: got %v, want %v", value, got, want)
		}
	}
}

func TestActive(t *testing.T) {
	t.Setenv("FLAG_DISABLE_REGISTRATION", "")
	if got := Active(); len(got) != 0 {
		t.Fatalf("expected no active flags, got %v", got)
	}

	t.Setenv("FLAG_DISABLE_REGISTRATION", "true")
	got := Active()
	if len(got) != 1 || got[0] != DisableRegistration {
		t.Fatalf("expected [%s], got %v", DisableRegistration, got)
	}
}
