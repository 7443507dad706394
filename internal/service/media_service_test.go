package service

import "testing"

// The key layout is load-bearing: capture devices and the archive worker
// derive keys independently, so the scheme may not drift.
func TestObjectKeyLayout(t *testing.T) {
	cases := []struct {
		got  string
		want string
	}{
		{SessionQRKey("abc"), "sessions/abc/qrcode.png"},
		{CalibrationImageKey("abc"), "sessions/abc/calibration.jpg"},
		{NeutralImageKey("abc"), "sessions/abc/neutral.jpg"},
		{ArchiveKey("task-1"), "archives/task-1.zip"},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("key = %q, want %q", tc.got, tc.want)
		}
	}
}
