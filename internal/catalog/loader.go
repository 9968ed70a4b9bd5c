package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/msageha/devtimer/internal/agitation"
	yamlutil "github.com/msageha/devtimer/internal/yaml"
)

// ModeFile is the on-disk layout of a user mode file.
type ModeFile struct {
	yamlutil.SchemaHeader `yaml:",inline"`
	Modes                 []agitation.ModeDefinition `yaml:"modes"`
}

// NewModeFile wraps definitions with the current schema header.
func NewModeFile(defs ...agitation.ModeDefinition) ModeFile {
	return ModeFile{
		SchemaHeader: yamlutil.NewHeader(yamlutil.FileTypeAgitationModes),
		Modes:        defs,
	}
}

// Loader reads user mode files from a directory.
type Loader struct {
	dir string
}

func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

func (l *Loader) Dir() string { return l.dir }

// LoadDir loads every *.yaml and *.yml file in the directory, in name order.
// A missing directory yields no modes. Any invalid file fails the whole load
// so a half-applied catalog is never produced.
func (l *Loader) LoadDir() ([]*agitation.Mode, error) {
	entries, err := os.ReadDir(l.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read modes dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !isModeFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(l.dir, e.Name()))
	}
	slices.Sort(files)

	var modes []*agitation.Mode
	seen := make(map[string]string)
	for _, path := range files {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		for _, m := range loaded {
			if prev, ok := seen[m.Name()]; ok {
				return nil, fmt.Errorf("%s: duplicate mode %q (first defined in %s)", path, m.Name(), filepath.Base(prev))
			}
			seen[m.Name()] = path
			modes = append(modes, m)
		}
	}
	return modes, nil
}

// LoadFile loads and validates a single mode file.
func LoadFile(path string) ([]*agitation.Mode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	modes, err := LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return modes, nil
}

// LoadBytes parses a mode file. Unknown fields are rejected.
func LoadBytes(data []byte) ([]*agitation.Mode, error) {
	if err := yamlutil.ValidateSchemaHeaderFromBytes(data, yamlutil.FileTypeAgitationModes); err != nil {
		return nil, err
	}

	var file ModeFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode modes: %w", err)
	}
	if len(file.Modes) == 0 {
		return nil, fmt.Errorf("no modes defined")
	}

	names := make(map[string]bool, len(file.Modes))
	out := make([]*agitation.Mode, 0, len(file.Modes))
	for i, def := range file.Modes {
		if def.Name == "" {
			return nil, fmt.Errorf("mode %d: missing name", i)
		}
		if names[def.Name] {
			return nil, fmt.Errorf("duplicate mode %q", def.Name)
		}
		names[def.Name] = true

		m, err := agitation.BuildMode(def, true)
		if err != nil {
			return nil, err
		}
		if err := m.Validate(); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func isModeFile(name string) bool {
	ext := filepath.Ext(name)
	return (ext == ".yaml" || ext == ".yml") && name[0] != '.'
}
