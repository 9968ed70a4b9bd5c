package setup

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	yamlv3 "gopkg.in/yaml.v3"

	"github.com/msageha/devtimer/internal/model"
	"github.com/msageha/devtimer/internal/uds"
)

// DirName is the workspace directory created by `devtimer init`.
const DirName = ".devtimer"

// Workspace resolves the files inside a .devtimer/ directory.
type Workspace struct {
	Dir string
}

func (w Workspace) ConfigPath() string  { return filepath.Join(w.Dir, "config.yaml") }
func (w Workspace) SocketPath() string  { return filepath.Join(w.Dir, uds.DefaultSocketName) }
func (w Workspace) LocksDir() string    { return filepath.Join(w.Dir, "locks") }
func (w Workspace) LockPath() string    { return filepath.Join(w.LocksDir(), "session.lock") }
func (w Workspace) LogsDir() string     { return filepath.Join(w.Dir, "logs") }
func (w Workspace) LogPath() string     { return filepath.Join(w.LogsDir(), "session.log") }
func (w Workspace) JournalPath() string { return filepath.Join(w.LogsDir(), "events.jsonl") }
func (w Workspace) StateDir() string    { return filepath.Join(w.Dir, "state") }
func (w Workspace) StatePath() string   { return filepath.Join(w.StateDir(), "session.yaml") }

// QuarantineDir is where corrupted state files are moved by yaml.Quarantine.
func (w Workspace) QuarantineDir() string { return filepath.Join(w.Dir, "quarantine") }

// ModesDir is cfg.Modes.Dir, taken relative to the workspace unless absolute.
func (w Workspace) ModesDir(cfg *model.Config) string {
	dir := "modes"
	if cfg != nil && cfg.Modes.Dir != "" {
		dir = cfg.Modes.Dir
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(w.Dir, dir)
}

// Find searches for .devtimer/ in the current directory and its ancestors.
func Find() (Workspace, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return Workspace{}, false
	}
	return FindFrom(dir)
}

// FindFrom searches for .devtimer/ in dir and its ancestors.
func FindFrom(dir string) (Workspace, bool) {
	for {
		candidate := filepath.Join(dir, DirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return Workspace{Dir: candidate}, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Workspace{}, false
		}
		dir = parent
	}
}

// LoadConfig reads config.yaml strictly, fills defaults and validates it.
func (w Workspace) LoadConfig() (model.Config, error) {
	data, err := os.ReadFile(w.ConfigPath())
	if err != nil {
		return model.Config{}, fmt.Errorf("read config.yaml: %w", err)
	}
	var cfg model.Config
	dec := yamlv3.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return model.Config{}, fmt.Errorf("parse config.yaml: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return model.Config{}, fmt.Errorf("config.yaml: %w", err)
	}
	return cfg, nil
}
