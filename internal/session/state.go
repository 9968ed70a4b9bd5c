package session

import (
	"errors"
	"fmt"
	"os"

	yamlv3 "gopkg.in/yaml.v3"

	"github.com/msageha/devtimer/internal/model"
	"github.com/msageha/devtimer/internal/timer"
	yamlutil "github.com/msageha/devtimer/internal/yaml"
)

// StageStatus converts a timer snapshot for the state file and status replies.
func StageStatus(snap timer.Snapshot, modeName string) *model.StageStatus {
	return &model.StageStatus{
		Label:                    snap.Label,
		Mode:                     modeName,
		State:                    snap.State,
		RemainingSeconds:         snap.RemainingSeconds,
		TotalSeconds:             snap.TotalSeconds,
		CurrentMinute:            snap.CurrentMinute,
		TotalMinutes:             snap.TotalMinutes,
		Phase:                    string(snap.Phase.Type.Kind),
		PhaseDescription:         snap.PhaseDescription,
		IsInAgitationSubPhase:    snap.IsInAgitationSubPhase,
		SubPhaseRemainingSeconds: snap.SubPhaseRemainingSeconds,
	}
}

// IdleState is the state recorded when no session has run.
func IdleState() model.SessionState {
	return model.SessionState{
		SchemaVersion: yamlutil.CurrentSchemaVersion,
		FileType:      yamlutil.FileTypeSessionState,
		Status:        model.SessionIdle,
	}
}

// ReadState loads state/session.yaml. A missing file reads as idle.
func ReadState(path string) (model.SessionState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return IdleState(), nil
		}
		return model.SessionState{}, fmt.Errorf("read session state: %w", err)
	}
	if err := yamlutil.ValidateSchemaHeaderFromBytes(data, yamlutil.FileTypeSessionState); err != nil {
		return model.SessionState{}, fmt.Errorf("session state %s: %w", path, err)
	}
	var st model.SessionState
	if err := yamlv3.Unmarshal(data, &st); err != nil {
		return model.SessionState{}, fmt.Errorf("parse session state: %w", err)
	}
	if st.Status == "" {
		st.Status = model.SessionIdle
	}
	return st, nil
}

// LoadOrRecoverState reads the state file, moving a corrupted one to the
// quarantine directory under workDir and reading what replaced it.
func LoadOrRecoverState(workDir, path string) (model.SessionState, bool, error) {
	st, err := ReadState(path)
	if err == nil {
		return st, false, nil
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return model.SessionState{}, false, err
	}
	if rerr := yamlutil.RecoverCorruptedFile(workDir, path, yamlutil.FileTypeSessionState); rerr != nil {
		return model.SessionState{}, false, fmt.Errorf("%v; recovery failed: %w", err, rerr)
	}
	st, err = ReadState(path)
	return st, true, err
}

// WriteState replaces the state file atomically.
func WriteState(path string, st model.SessionState) error {
	st.SchemaVersion = yamlutil.CurrentSchemaVersion
	st.FileType = yamlutil.FileTypeSessionState
	return yamlutil.AtomicWrite(path, st)
}
