package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/m4xw311/meowcli/errors"
	"gopkg.in/yaml.v3"
)

// Policy defaults.
const (
	DefaultMaxTurns            = 25
	DefaultShellTimeout        = 30 * time.Second
	DefaultMaxReadBytes        = 65536
	DefaultMaxShellOutputBytes = 16384
)

type FilesystemAccess struct {
	Hidden   []string `yaml:"hidden"`
	ReadOnly []string `yaml:"read_only"`
}

// Policy controls what the agent may touch and how long it may run. It is
// read from YAML: user-level ~/.meowcli/config.yaml first, then the
// project-level ./.meowcli/config.yaml on top of it.
type Policy struct {
	// AllowedCommands is a regex allowlist for run_shell. An empty list
	// allows any command; a non-empty list denies everything else.
	AllowedCommands  []string         `yaml:"allowed_commands"`
	FilesystemAccess FilesystemAccess `yaml:"filesystem_access"`

	MaxTurns            int `yaml:"max_turns"`
	ShellTimeoutSeconds int `yaml:"shell_timeout_seconds"`
	MaxReadBytes        int `yaml:"max_read_bytes"`
	MaxShellOutputBytes int `yaml:"max_shell_output_bytes"`
}

// LoadPolicy loads the agent policy from the user's home directory and the
// current working directory, with the latter taking precedence.
func LoadPolicy() (*Policy, error) {
	pol := defaultPolicy()

	// Load user-level config first
	home, err := os.UserHomeDir()
	if err == nil {
		userPath := filepath.Join(home, ".meowcli", "config.yaml")
		if _, err := os.Stat(userPath); err == nil {
			if err := loadFromFile(userPath, pol); err != nil {
				return nil, errors.Wrapf(err, "error loading user policy")
			}
		}
	}

	// Load project-level config, overriding user-level
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrapf(err, "could not get working directory")
	}
	projectPath := filepath.Join(wd, ".meowcli", "config.yaml")
	if _, err := os.Stat(projectPath); err == nil {
		if err := loadFromFile(projectPath, pol); err != nil {
			return nil, errors.Wrapf(err, "error loading project policy")
		}
	}

	pol.clampDefaults()
	return pol, nil
}

func defaultPolicy() *Policy {
	pol := &Policy{
		MaxTurns:            DefaultMaxTurns,
		ShellTimeoutSeconds: int(DefaultShellTimeout / time.Second),
		MaxReadBytes:        DefaultMaxReadBytes,
		MaxShellOutputBytes: DefaultMaxShellOutputBytes,
	}
	// The .meowcli directory itself is never exposed to the agent.
	pol.FilesystemAccess.Hidden = append(pol.FilesystemAccess.Hidden, ".meowcli", ".meowcli/**")
	return pol
}

func loadFromFile(path string, pol *Policy) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Note: Unmarshal will overwrite fields present in the YAML. This provides
	// a simple merge where project-level config replaces user-level.
	return yaml.Unmarshal(data, pol)
}

// clampDefaults restores defaults for limits that a config file zeroed or
// set negative.
func (p *Policy) clampDefaults() {
	if p.MaxTurns <= 0 {
		p.MaxTurns = DefaultMaxTurns
	}
	if p.ShellTimeoutSeconds <= 0 {
		p.ShellTimeoutSeconds = int(DefaultShellTimeout / time.Second)
	}
	if p.MaxReadBytes <= 0 {
		p.MaxReadBytes = DefaultMaxReadBytes
	}
	if p.MaxShellOutputBytes <= 0 {
		p.MaxShellOutputBytes = DefaultMaxShellOutputBytes
	}
}

// ShellTimeout returns the run_shell timeout as a duration.
func (p *Policy) ShellTimeout() time.Duration {
	return time.Duration(p.ShellTimeoutSeconds) * time.Second
}
