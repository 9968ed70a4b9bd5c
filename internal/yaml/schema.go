package yaml

import (
	"fmt"
	"os"

	yamlv3 "gopkg.in/yaml.v3"
)

const CurrentSchemaVersion = 1

// File types carried in the schema header of workspace files.
const (
	FileTypeAgitationModes = "agitation_modes"
	FileTypeSessionState   = "session_state"
)

var validFileTypes = map[string]bool{
	FileTypeAgitationModes: true,
	FileTypeSessionState:   true,
}

// SchemaHeader is embedded at the top of every versioned workspace file.
type SchemaHeader struct {
	SchemaVersion int    `yaml:"schema_version" json:"schema_version"`
	FileType      string `yaml:"file_type" json:"file_type"`
}

// NewHeader returns the current header for fileType.
func NewHeader(fileType string) SchemaHeader {
	return SchemaHeader{SchemaVersion: CurrentSchemaVersion, FileType: fileType}
}

func ValidateSchemaHeader(path string, expectedFileType string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	return ValidateSchemaHeaderFromBytes(content, expectedFileType)
}

func ValidateSchemaHeaderFromBytes(content []byte, expectedFileType string) error {
	var header SchemaHeader
	if err := yamlv3.Unmarshal(content, &header); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return header.Validate(expectedFileType)
}

// Validate checks the version range and, when expectedFileType is set, the type.
func (h SchemaHeader) Validate(expectedFileType string) error {
	switch {
	case h.SchemaVersion < 1:
		return fmt.Errorf("invalid schema_version %d (must be >= 1)", h.SchemaVersion)
	case h.SchemaVersion > CurrentSchemaVersion:
		return fmt.Errorf("unsupported schema_version %d (max supported: %d)", h.SchemaVersion, CurrentSchemaVersion)
	case h.FileType == "":
		return fmt.Errorf("missing file_type")
	case !validFileTypes[h.FileType]:
		return fmt.Errorf("unknown file_type: %q", h.FileType)
	case expectedFileType != "" && h.FileType != expectedFileType:
		return fmt.Errorf("file_type mismatch: got %q, expected %q", h.FileType, expectedFileType)
	}
	return nil
}
