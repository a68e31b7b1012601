package logging

import (
	"fmt"
	"strings"
)

// Level is the severity of a routed message.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel parses a level name. "log" is accepted as an alias of info.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info", "log":
		return LevelInfo, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "error", "exception":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Environment selects which policy tier applies to a call.
type Environment int

const (
	EnvironmentEditor Environment = iota
	EnvironmentDebug
	EnvironmentRelease
)

func (e Environment) String() string {
	switch e {
	case EnvironmentEditor:
		return "editor"
	case EnvironmentDebug:
		return "debug"
	case EnvironmentRelease:
		return "release"
	default:
		return fmt.Sprintf("environment(%d)", int(e))
	}
}

// ParseEnvironment parses an environment name.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "editor":
		return EnvironmentEditor, nil
	case "debug", "development", "dev":
		return EnvironmentDebug, nil
	case "release", "production", "prod":
		return EnvironmentRelease, nil
	default:
		return EnvironmentRelease, fmt.Errorf("unknown environment %q", s)
	}
}

// EnvironmentFunc reports the current environment. It is evaluated on
// every routed call.
type EnvironmentFunc func() Environment

// StaticEnvironment returns an EnvironmentFunc that always reports env.
func StaticEnvironment(env Environment) EnvironmentFunc {
	return func() Environment { return env }
}

// FilterPolicy gates emission per level.
type FilterPolicy struct {
	Info    bool `json:"info" yaml:"info"`
	Warning bool `json:"warning" yaml:"warning"`
	Error   bool `json:"error" yaml:"error"`
}

// NewFilterPolicy builds a policy from the three gates.
func NewFilterPolicy(info, warning, err bool) FilterPolicy {
	return FilterPolicy{Info: info, Warning: warning, Error: err}
}

// Allows reports whether messages at level pass the policy.
func (p FilterPolicy) Allows(level Level) bool {
	switch level {
	case LevelInfo:
		return p.Info
	case LevelWarning:
		return p.Warning
	case LevelError:
		return p.Error
	default:
		return false
	}
}

func (p FilterPolicy) String() string {
	return fmt.Sprintf("info=%t warning=%t error=%t", p.Info, p.Warning, p.Error)
}

// Tiers holds one policy per environment.
type Tiers struct {
	Editor  FilterPolicy `json:"editor" yaml:"editor"`
	Debug   FilterPolicy `json:"debug" yaml:"debug"`
	Release FilterPolicy `json:"release" yaml:"release"`
}

// DefaultTiers returns the stock tiers: everything in the editor and debug
// builds, errors only in release.
func DefaultTiers() Tiers {
	return Tiers{
		Editor:  NewFilterPolicy(true, true, true),
		Debug:   NewFilterPolicy(true, true, true),
		Release: NewFilterPolicy(false, false, true),
	}
}

// For returns the policy for env. Unknown environments get the release tier.
func (t Tiers) For(env Environment) FilterPolicy {
	switch env {
	case EnvironmentEditor:
		return t.Editor
	case EnvironmentDebug:
		return t.Debug
	default:
		return t.Release
	}
}
