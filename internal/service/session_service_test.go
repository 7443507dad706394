package service

import (
	"testing"

	"github.com/motionlab/capserver/internal/model"
)

func TestSettingsOverlay(t *testing.T) {
	svc := &SessionService{}

	defaults := svc.Settings(&model.Session{})
	if defaults["framerate"] != "60" {
		t.Errorf("default framerate = %q, want 60", defaults["framerate"])
	}

	sess := &model.Session{Meta: map[string]string{
		"framerate":  "120",
		"resolution": "1080p",
	}}
	settings := svc.Settings(sess)
	if settings["framerate"] != "120" {
		t.Errorf("framerate = %q, want session meta to win over defaults", settings["framerate"])
	}
	if settings["resolution"] != "1080p" {
		t.Errorf("resolution = %q, want meta keys passed through", settings["resolution"])
	}
}
