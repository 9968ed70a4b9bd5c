package yaml

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateSchemaHeader_Valid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "house.yaml")

	content := []byte("schema_version: 1\nfile_type: agitation_modes\nmodes: []\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	if err := ValidateSchemaHeader(path, FileTypeAgitationModes); err != nil {
		t.Errorf("expected valid, got error: %v", err)
	}
}

func TestValidateSchemaHeader_Errors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{"unsupported version", "schema_version: 99\nfile_type: agitation_modes\n", FileTypeAgitationModes},
		{"negative version", "schema_version: -1\nfile_type: agitation_modes\n", FileTypeAgitationModes},
		{"missing version", "file_type: agitation_modes\n", FileTypeAgitationModes},
		{"missing file type", "schema_version: 1\n", FileTypeAgitationModes},
		{"unknown file type", "schema_version: 1\nfile_type: gate_config\n", "gate_config"},
		{"mismatch", "schema_version: 1\nfile_type: session_state\n", FileTypeAgitationModes},
		{"not yaml", "schema_version: [\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateSchemaHeaderFromBytes([]byte(tt.content), tt.expected); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestValidateSchemaHeader_EmptyExpectedType(t *testing.T) {
	content := []byte("schema_version: 1\nfile_type: session_state\n")
	if err := ValidateSchemaHeaderFromBytes(content, ""); err != nil {
		t.Errorf("expected valid when no expected type specified, got: %v", err)
	}
}

func TestNewHeader(t *testing.T) {
	h := NewHeader(FileTypeSessionState)
	if err := h.Validate(FileTypeSessionState); err != nil {
		t.Errorf("new header should validate: %v", err)
	}
}
