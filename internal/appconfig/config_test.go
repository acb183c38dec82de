package appconfig

import "testing"

func TestDefaultConfigAuthOpen(t *testing.T) {
	cfg, err := DefaultConfig()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	if cfg.Auth.TeacherPassword != "" || cfg.Auth.TeacherPasswordHash != "" {
		t.Fatalf("expected presenter auth to default open")
	}
	if cfg.Client.LaserThrottleMs != 50 {
		t.Fatalf("laser throttle default = %d", cfg.Client.LaserThrottleMs)
	}
}
