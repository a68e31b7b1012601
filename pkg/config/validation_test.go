package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(GetDefaultConfig()); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidEnvironment(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Environment = "staging"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for unknown environment")
	}
	if !strings.Contains(err.Error(), "Environment") {
		t.Errorf("Expected error to name the Environment field, got: %v", err)
	}
}

func TestValidate_InvalidAPIPort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.API.Port = 70000

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for port out of range")
	}
	if !strings.Contains(err.Error(), "max") {
		t.Errorf("Expected 'max' validation error, got: %v", err)
	}
}

func TestValidate_ShutdownTimeoutRequired(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Lifecycle.ShutdownTimeout = 0

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for zero shutdown timeout")
	}
}

func TestValidate_NegativeQuitTimeout(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Lifecycle.QuitTimeout = -1

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for negative quit timeout")
	}
}

func TestValidate_TelemetryEnabledWithoutEndpoint(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Endpoint = ""

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for telemetry without endpoint")
	}
}

func TestValidate_TelemetrySampleRate(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.SampleRate = 1.5

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for sample rate above 1")
	}
}

func TestValidate_UnknownProfileType(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.Profiling.Enabled = true
	cfg.Telemetry.Profiling.ProfileTypes = []string{"cpu", "heapdump"}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for unknown profile type")
	}
	if !strings.Contains(err.Error(), "profile_types") {
		t.Errorf("Expected profile_types error, got: %v", err)
	}
}

func TestValidate_GroupRequiresNameAndPrefix(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.LogRouting.Groups = []GroupConfig{{Name: "Audio"}}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for group without prefix")
	}
	if !strings.Contains(err.Error(), "Prefix") {
		t.Errorf("Expected error to name the Prefix field, got: %v", err)
	}
}

func TestValidate_DuplicateGroupPrefix(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.LogRouting.Groups = []GroupConfig{
		{Name: "A", Prefix: "src/audio"},
		{Name: "B", Prefix: `src\audio`},
	}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for duplicate prefix")
	}
	if !strings.Contains(err.Error(), "log_routing.groups") {
		t.Errorf("Expected log_routing.groups error, got: %v", err)
	}
}
