package audio

import "testing"

func TestPreferDevice(t *testing.T) {
	cases := []struct {
		name, current string
		want          bool
	}{
		{"MacBook Pro Microphone", "USB Audio", true},
		{"Built-in Input", "External Mic", true},
		{"USB Audio", "MacBook Pro Microphone", false},
		{"External Mic", "Another Mic", false},
	}
	for _, tc := range cases {
		if got := preferDevice(tc.name, tc.current); got != tc.want {
			t.Errorf("preferDevice(%q, %q) = %v, want %v", tc.name, tc.current, got, tc.want)
		}
	}
}

func TestIsExcluded(t *testing.T) {
	m := NewMicrophone(16000, 10, []string{"iphone", "teams"})

	if !m.isExcluded("Rob's iPhone Microphone") {
		t.Error("iphone device should be excluded")
	}
	if m.isExcluded("MacBook Pro Microphone") {
		t.Error("built-in mic should not be excluded")
	}
}
