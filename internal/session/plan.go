package session

import (
	"errors"
	"fmt"
	"sort"

	"github.com/msageha/devtimer/internal/catalog"
	"github.com/msageha/devtimer/internal/model"
	"github.com/msageha/devtimer/internal/timer"
)

var (
	ErrUnknownProcess = errors.New("unknown process")
	ErrUnknownMode    = errors.New("unknown agitation mode")
)

// Plan is what a session runs: a named process from config.yaml or a single
// ad-hoc stage given on the command line.
type Plan struct {
	Process string
	Stages  []model.StageConfig
}

// ProcessPlan looks up a process by name.
func ProcessPlan(cfg model.Config, name string) (Plan, error) {
	p, ok := cfg.Processes[name]
	if !ok {
		names := make([]string, 0, len(cfg.Processes))
		for n := range cfg.Processes {
			names = append(names, n)
		}
		sort.Strings(names)
		return Plan{}, fmt.Errorf("%w %q (configured: %v)", ErrUnknownProcess, name, names)
	}
	return Plan{Process: name, Stages: p.Stages}, nil
}

// AdHocPlan is a one-stage plan. An empty label becomes "develop".
func AdHocPlan(label, duration, mode string) Plan {
	if label == "" {
		label = "develop"
	}
	return Plan{
		Process: "ad-hoc",
		Stages:  []model.StageConfig{{Label: label, Duration: duration, Mode: mode}},
	}
}

// Build resolves durations and mode names against cat. A stage without a
// mode runs without agitation instructions.
func (p Plan) Build(cat *catalog.Catalog) ([]timer.Stage, error) {
	stages := make([]timer.Stage, 0, len(p.Stages))
	for i, sc := range p.Stages {
		secs, err := sc.DurationSeconds()
		if err != nil {
			return nil, fmt.Errorf("stage %d (%s): %w", i+1, sc.Label, err)
		}
		st := timer.Stage{Label: sc.Label, DurationSeconds: secs}
		if sc.Mode != "" {
			m, ok := cat.Get(sc.Mode)
			if !ok {
				return nil, fmt.Errorf("stage %d (%s): %w %q", i+1, sc.Label, ErrUnknownMode, sc.Mode)
			}
			st.Mode = m
		}
		stages = append(stages, st)
	}
	return stages, nil
}
