package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	d := Defaults()

	if d.Recognition.MinFaceSize != 30 {
		t.Errorf("MinFaceSize = %d, want 30", d.Recognition.MinFaceSize)
	}
	if d.Recognition.LocalThreshold != 0.48 {
		t.Errorf("LocalThreshold = %v, want 0.48", d.Recognition.LocalThreshold)
	}
	if d.Recognition.RemoteThreshold != 78 {
		t.Errorf("RemoteThreshold = %v, want 78", d.Recognition.RemoteThreshold)
	}
	if d.Recognition.Cooldown != 20*time.Second {
		t.Errorf("Cooldown = %v, want 20s", d.Recognition.Cooldown)
	}
	if d.Recognition.ConfirmationPolicy != "accumulate" {
		t.Errorf("ConfirmationPolicy = %q, want accumulate", d.Recognition.ConfirmationPolicy)
	}
	if d.FacePP.Timeout != 8*time.Second {
		t.Errorf("FacePP.Timeout = %v, want 8s", d.FacePP.Timeout)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOCAL_THRESHOLD", "0.55")
	t.Setenv("CONFIRM_FRAMES", "2")
	t.Setenv("COOLDOWN", "1m")
	t.Setenv("FACEPP_API_KEY", "key")
	t.Setenv("FACEPP_API_SECRET", "secret")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg := Load()
	if cfg.Recognition.LocalThreshold != 0.55 {
		t.Errorf("LocalThreshold = %v, want 0.55", cfg.Recognition.LocalThreshold)
	}
	if cfg.Recognition.ConfirmFrames != 2 {
		t.Errorf("ConfirmFrames = %d, want 2", cfg.Recognition.ConfirmFrames)
	}
	if cfg.Recognition.Cooldown != time.Minute {
		t.Errorf("Cooldown = %v, want 1m", cfg.Recognition.Cooldown)
	}
	if !cfg.FacePP.Enabled() {
		t.Error("expected Face++ to be enabled")
	}
	if !cfg.MinIO.UseSSL {
		t.Error("expected MinIO SSL")
	}
}

func TestEnvHelpers_InvalidFallsBack(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"empty", ""},
		{"garbage", "abc"},
		{"negative", "-5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_VALUE", tt.value)
			if got := envInt("TEST_VALUE", 7); got != 7 {
				t.Errorf("envInt = %d, want 7", got)
			}
			if got := envFloat("TEST_VALUE", 1.5); got != 1.5 {
				t.Errorf("envFloat = %v, want 1.5", got)
			}
			if got := envDuration("TEST_VALUE", time.Second); got != time.Second {
				t.Errorf("envDuration = %v, want 1s", got)
			}
		})
	}
}

func TestBackendFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"", "memory"},
		{"postgres://u:p@localhost:5432/db?sslmode=disable", "postgres"},
		{"postgresql://localhost/db", "postgres"},
		{"attendance:secret@tcp(localhost:3306)/attendance", "mariadb"},
	}
	for _, tt := range tests {
		t.Run(tt.want+"_"+tt.url, func(t *testing.T) {
			if got := backendFromURL(tt.url); got != tt.want {
				t.Errorf("backendFromURL(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestLoad_ExplicitBackend(t *testing.T) {
	t.Setenv("DATABASE_BACKEND", "MariaDB")
	t.Setenv("DATABASE_URL", "postgres://localhost/db")
	if got := Load().Database.Backend; got != "mariadb" {
		t.Errorf("Backend = %q, want mariadb", got)
	}
}
