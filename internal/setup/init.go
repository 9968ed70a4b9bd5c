// Package setup creates and locates the .devtimer/ workspace.
package setup

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	yamlv3 "gopkg.in/yaml.v3"

	"github.com/msageha/devtimer/internal/model"
	atomicyaml "github.com/msageha/devtimer/internal/yaml"
	"github.com/msageha/devtimer/templates"
)

// Run initializes .devtimer/ in projectDir with the default configuration,
// an example mode file and an empty session state.
func Run(projectDir string) error {
	absDir, err := filepath.Abs(projectDir)
	if err != nil {
		return fmt.Errorf("resolve project dir: %w", err)
	}

	ws := Workspace{Dir: filepath.Join(absDir, DirName)}
	if _, err := os.Stat(ws.Dir); err == nil {
		return fmt.Errorf("%s already exists", ws.Dir)
	}

	cfg, err := templateConfig()
	if err != nil {
		return fmt.Errorf("generate config: %w", err)
	}

	for _, d := range []string{ws.ModesDir(cfg), ws.StateDir(), ws.LocksDir(), ws.LogsDir(), ws.QuarantineDir()} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", d, err)
		}
	}

	if err := atomicyaml.AtomicWrite(ws.ConfigPath(), cfg); err != nil {
		return fmt.Errorf("write config.yaml: %w", err)
	}
	if err := copyTemplateFile("modes/example.yaml", filepath.Join(ws.ModesDir(cfg), "example.yaml")); err != nil {
		return err
	}

	state := model.SessionState{
		SchemaVersion: atomicyaml.CurrentSchemaVersion,
		FileType:      atomicyaml.FileTypeSessionState,
		Status:        model.SessionIdle,
	}
	if err := atomicyaml.AtomicWrite(ws.StatePath(), state); err != nil {
		return fmt.Errorf("write state/session.yaml: %w", err)
	}
	return nil
}

func copyTemplateFile(name, dst string) error {
	data, err := fs.ReadFile(templates.FS, name)
	if err != nil {
		return fmt.Errorf("read template %s: %w", name, err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return nil
}

func templateConfig() (*model.Config, error) {
	data, err := fs.ReadFile(templates.FS, "config.yaml")
	if err != nil {
		return nil, fmt.Errorf("read config template: %w", err)
	}
	var cfg model.Config
	if err := yamlv3.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config template: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
