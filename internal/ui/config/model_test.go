package config

import (
	"testing"

	"github.com/nhle/tasktimer/internal/model"
)

func TestResultAppliesFormValues(t *testing.T) {
	base := &model.AppConfig{}
	base.Database.Path = "/data/tasks.db"
	base.Checklist.ShowCompleted = true
	base.Checklist.ConfirmWindowSec = 3
	base.Timer.TickMs = 1000
	base.Log.Level = "INFO"

	m := New("/tmp/config.yaml", nil, 80, 24)
	m.Start(base)

	m.fb.showCompleted = false
	m.fb.confirmWindow = " 5 "
	m.fb.tickMs = 250
	m.fb.logLevel = "DEBUG"

	got := m.result()
	if got.Checklist.ShowCompleted {
		t.Error("ShowCompleted = true, want false")
	}
	if got.Checklist.ConfirmWindowSec != 5 {
		t.Errorf("ConfirmWindowSec = %d, want 5", got.Checklist.ConfirmWindowSec)
	}
	if got.Timer.TickMs != 250 {
		t.Errorf("TickMs = %d, want 250", got.Timer.TickMs)
	}
	if got.Log.Level != "DEBUG" {
		t.Errorf("Log.Level = %q, want DEBUG", got.Log.Level)
	}
	if got.Database.Path != "/data/tasks.db" {
		t.Errorf("Database.Path = %q, want it kept", got.Database.Path)
	}
	if base.Timer.TickMs != 1000 {
		t.Error("result modified the starting config")
	}
}

func TestValidatePositive(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"3", false},
		{" 10 ", false},
		{"0", true},
		{"-1", true},
		{"soon", true},
	}
	for _, tt := range tests {
		if err := validatePositive(tt.in); (err != nil) != tt.wantErr {
			t.Errorf("validatePositive(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}
}
