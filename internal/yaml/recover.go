package yaml

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Quarantine moves a file that failed to parse into <workDir>/quarantine so
// it can be inspected later. It returns the new path.
func Quarantine(workDir, filePath string) (string, error) {
	dir := filepath.Join(workDir, "quarantine")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create quarantine dir: %w", err)
	}

	name := fmt.Sprintf("%s.%s.corrupt", filepath.Base(filePath), time.Now().Format("20060102T150405"))
	dst := filepath.Join(dir, name)
	if err := os.Rename(filePath, dst); err != nil {
		return "", fmt.Errorf("move to quarantine: %w", err)
	}
	return dst, nil
}

// RestoreFromBackup copies path.bak over path if the backup parses.
func RestoreFromBackup(filePath string) error {
	content, err := os.ReadFile(filePath + BackupSuffix)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	if err := validateYAML(content); err != nil {
		return fmt.Errorf("backup is also corrupted: %w", err)
	}
	if err := os.WriteFile(filePath, content, 0644); err != nil {
		return fmt.Errorf("restore from backup: %w", err)
	}
	return nil
}

// RecoverCorruptedFile quarantines filePath and puts back its backup, or an
// empty file of fileType when there is no usable backup.
func RecoverCorruptedFile(workDir, filePath, fileType string) error {
	if _, err := Quarantine(workDir, filePath); err != nil {
		return fmt.Errorf("quarantine failed: %w", err)
	}
	if err := RestoreFromBackup(filePath); err == nil {
		return nil
	}
	if err := AtomicWrite(filePath, skeleton(fileType)); err != nil {
		return fmt.Errorf("skeleton generation failed: %w", err)
	}
	return nil
}

func skeleton(fileType string) map[string]any {
	out := map[string]any{
		"schema_version": CurrentSchemaVersion,
		"file_type":      fileType,
	}
	switch fileType {
	case FileTypeAgitationModes:
		out["modes"] = []any{}
	case FileTypeSessionState:
		out["status"] = "idle"
	}
	return out
}
