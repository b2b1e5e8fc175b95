package signal

import "testing"

func TestValidID(t *testing.T) {
	cases := []struct {
		id   string
		want bool
	}{
		{"a", true},
		{"checkpoint-1", true},
		{"", false},
		{"has space", false},
		{"pipe|char", false},
		{"angle<bracket", false},
		{"angle>bracket", false},
		{"colon:here", false},
		{"tab\tchar", false},
	}
	for _, c := range cases {
		if got := ValidID(c.id); got != c.want {
			t.Errorf("ValidID(%q) = %v, want %v", c.id, got, c.want)
		}
	}
}

func TestValidMode(t *testing.T) {
	for _, m := range []Mode{ModePrecise, ModeBalanced, ModeAdversarial, ModeExploratory} {
		if !ValidMode(m) {
			t.Errorf("ValidMode(%q) = false, want true", m)
		}
	}
	if ValidMode("bogus") {
		t.Error("ValidMode(bogus) = true, want false")
	}
}

func TestTemperatureFor(t *testing.T) {
	got, ok := TemperatureFor(ModeBalanced)
	if !ok || got != 0.6 {
		t.Errorf("TemperatureFor(balanced) = %v, %v, want 0.6, true", got, ok)
	}
	if _, ok := TemperatureFor("bogus"); ok {
		t.Error("TemperatureFor(bogus) ok = true, want false")
	}
}

func TestValidTemperature(t *testing.T) {
	cases := []struct {
		t    float64
		want bool
	}{
		{0.0, true},
		{1.0, true},
		{0.5, true},
		{-0.01, false},
		{1.01, false},
	}
	for _, c := range cases {
		if got := ValidTemperature(c.t); got != c.want {
			t.Errorf("ValidTemperature(%v) = %v, want %v", c.t, got, c.want)
		}
	}
}
