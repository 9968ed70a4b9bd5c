// Package yaml provides atomic YAML file I/O, schema headers and recovery
// for the files devtimer keeps under its workspace directory.
package yaml

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	yamlv3 "gopkg.in/yaml.v3"
)

// BackupSuffix is appended to a file's name for the copy of its previous content.
const BackupSuffix = ".bak"

// AtomicWrite marshals data and replaces path with it in one rename.
func AtomicWrite(path string, data any) error {
	content, err := yamlv3.Marshal(data)
	if err != nil {
		return fmt.Errorf("yaml marshal: %w", err)
	}
	return AtomicWriteRaw(path, content)
}

// AtomicWriteRaw replaces path with content. Readers see either the old or the
// new file, never a partial one. The previous content survives as path.bak.
// Content that does not parse as YAML is rejected before anything is touched.
func AtomicWriteRaw(path string, content []byte) error {
	if err := validateYAML(content); err != nil {
		return fmt.Errorf("yaml validation failed: %w", err)
	}

	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	staged := f.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(staged)
		}
	}()

	_, werr := f.Write(content)
	if werr == nil {
		werr = f.Sync()
	}
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return fmt.Errorf("write %s: %w", staged, werr)
	}

	if err := backup(path); err != nil {
		return fmt.Errorf("create backup: %w", err)
	}
	if err := os.Rename(staged, path); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}
	committed = true
	return nil
}

func validateYAML(content []byte) error {
	var probe any
	return yamlv3.Unmarshal(content, &probe)
}

// backup copies the current content of path, if any, to path.bak.
func backup(path string) error {
	prev, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path+BackupSuffix, prev, 0644)
}
