package model

// SessionStatus is the state recorded in state/session.yaml.
type SessionStatus string

const (
	SessionIdle     SessionStatus = "idle"
	SessionRunning  SessionStatus = "running"
	SessionPaused   SessionStatus = "paused"
	SessionWaiting  SessionStatus = "waiting" // stage finished, next one not started
	SessionFinished SessionStatus = "finished"
	SessionStopped  SessionStatus = "stopped"
)

// IsSessionActive reports whether a process may still be holding the session.
func IsSessionActive(s SessionStatus) bool {
	switch s {
	case SessionRunning, SessionPaused, SessionWaiting:
		return true
	}
	return false
}

// StageStatus is the view of the current stage timer.
type StageStatus struct {
	Label                    string     `yaml:"label" json:"label"`
	Mode                     string     `yaml:"mode,omitempty" json:"mode,omitempty"`
	State                    TimerState `yaml:"state" json:"state"`
	RemainingSeconds         int        `yaml:"remaining_seconds" json:"remaining_seconds"`
	TotalSeconds             int        `yaml:"total_seconds" json:"total_seconds"`
	CurrentMinute            int        `yaml:"current_minute" json:"current_minute"`
	TotalMinutes             int        `yaml:"total_minutes" json:"total_minutes"`
	Phase                    string     `yaml:"phase,omitempty" json:"phase,omitempty"`
	PhaseDescription         string     `yaml:"phase_description,omitempty" json:"phase_description,omitempty"`
	IsInAgitationSubPhase    bool       `yaml:"is_in_agitation_sub_phase" json:"is_in_agitation_sub_phase"`
	SubPhaseRemainingSeconds int        `yaml:"sub_phase_remaining_seconds" json:"sub_phase_remaining_seconds"`
}

// SessionState is both the persisted state file and the status payload.
type SessionState struct {
	SchemaVersion int           `yaml:"schema_version" json:"schema_version"`
	FileType      string        `yaml:"file_type" json:"file_type"`
	Status        SessionStatus `yaml:"status" json:"status"`
	SessionID     string        `yaml:"session_id,omitempty" json:"session_id,omitempty"`
	Process       string        `yaml:"process,omitempty" json:"process,omitempty"`
	PID           int           `yaml:"pid,omitempty" json:"pid,omitempty"`
	StageIndex    int           `yaml:"stage_index" json:"stage_index"`
	StageCount    int           `yaml:"stage_count" json:"stage_count"`
	Stage         *StageStatus  `yaml:"stage,omitempty" json:"stage,omitempty"`
	StartedAt     string        `yaml:"started_at,omitempty" json:"started_at,omitempty"`
	UpdatedAt     string        `yaml:"updated_at,omitempty" json:"updated_at,omitempty"`
}
