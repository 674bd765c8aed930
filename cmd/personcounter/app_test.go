package main

import (
	"testing"
)

func TestWindowInput(t *testing.T) {

	tests := []struct {
		name    string
		key     int
		visible float64
		want    windowCommand
	}{
		{
			name:    "no key pressed",
			key:     -1,
			visible: 1.0,
			want:    windowNone,
		},
		{
			name:    "quit key",
			key:     'q',
			visible: 1.0,
			want:    windowQuit,
		},
		{
			name:    "escape key",
			key:     27,
			visible: 1.0,
			want:    windowQuit,
		},
		{
			name:    "reset key",
			key:     'r',
			visible: 1.0,
			want:    windowReset,
		},
		{
			name:    "unmapped key",
			key:     'x',
			visible: 1.0,
			want:    windowNone,
		},
		{
			// the window manager destroyed the window, WaitKey
			// reports no key
			name:    "window closed",
			key:     -1,
			visible: 0.0,
			want:    windowQuit,
		},
		{
			name:    "window closed outranks reset",
			key:     'r',
			visible: 0.0,
			want:    windowQuit,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {

			got := windowInput(tc.key, tc.visible)

			if got != tc.want {
				t.Errorf("windowInput(%d, %v) = %v; want %v",
					tc.key, tc.visible, got, tc.want)
			}
		})
	}
}

func TestParseDisplaySize(t *testing.T) {

	w, h, err := parseDisplaySize("1280x720")

	if err != nil {
		t.Fatalf("parseDisplaySize failed: %v", err)
	}

	if w != 1280 || h != 720 {
		t.Errorf("parseDisplaySize = %dx%d; want 1280x720", w, h)
	}

	if _, _, err := parseDisplaySize("640X480"); err != nil {
		t.Errorf("uppercase separator rejected: %v", err)
	}

	for _, bad := range []string{"", "1280", "x720", "1280x", "0x720", "axb", "640x480x2"} {
		if _, _, err := parseDisplaySize(bad); err == nil {
			t.Errorf("parseDisplaySize(%q) succeeded; want error", bad)
		}
	}
}
