package session

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msageha/devtimer/internal/catalog"
	"github.com/msageha/devtimer/internal/events"
	"github.com/msageha/devtimer/internal/lock"
	"github.com/msageha/devtimer/internal/model"
	"github.com/msageha/devtimer/internal/setup"
	"github.com/msageha/devtimer/internal/uds"
	atomicyaml "github.com/msageha/devtimer/internal/yaml"
)

type recordRenderer struct {
	mu      sync.Mutex
	states  []model.SessionState
	notices []string
}

func (r *recordRenderer) Render(st model.SessionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, st)
}

func (r *recordRenderer) Notice(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, msg)
}

func (r *recordRenderer) Notices() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.notices...)
}

type recordSender struct {
	mu   sync.Mutex
	msgs []string
}

func (s *recordSender) Send(_, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *recordSender) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.msgs...)
}

func newWorkspace(t *testing.T) setup.Workspace {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, setup.Run(dir))
	return setup.Workspace{Dir: filepath.Join(dir, setup.DirName)}
}

func fastConfig() model.Config {
	cfg := model.DefaultConfig()
	cfg.Timer.TickIntervalMs = 1
	cfg.Modes.Watch = false
	cfg.Notify.Enabled = false
	cfg.Session.ShutdownTimeoutSec = 2
	return cfg
}

func testRunner(t *testing.T, ws setup.Workspace, cfg model.Config, plan Plan, opts ...Option) (*Runner, *recordRenderer, *bytes.Buffer) {
	t.Helper()
	rec := &recordRenderer{}
	var logBuf bytes.Buffer
	opts = append([]Option{WithRenderer(rec)}, opts...)
	r, err := newRunner(ws, cfg, plan, &logBuf, nil, nil, opts...)
	require.NoError(t, err)
	return r, rec, &logBuf
}

// start runs r in the background and waits for its control socket.
func start(t *testing.T, r *Runner) <-chan error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run() }()
	select {
	case <-r.Ready():
	case err := <-errCh:
		t.Fatalf("run returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("session did not become ready")
	}
	return errCh
}

func waitDone(t *testing.T, errCh <-chan error) {
	t.Helper()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("session did not finish")
	}
}

func journalTypes(t *testing.T, ws setup.Workspace) []string {
	t.Helper()
	entries, err := events.ReadJournal(ws.JournalPath())
	require.NoError(t, err)
	var types []string
	for _, e := range entries {
		types = append(types, e.EventType)
	}
	return types
}

func TestNewRunner_RejectsEmptyPlan(t *testing.T) {
	_, err := newRunner(setup.Workspace{Dir: t.TempDir()}, fastConfig(), Plan{}, &bytes.Buffer{}, nil, nil)
	assert.Error(t, err)
}

func TestRunner_CompletesProcessWithAutoAdvance(t *testing.T) {
	ws := newWorkspace(t)
	cfg := fastConfig()
	cfg.Timer.AutoAdvance = true
	cfg.Notify.Enabled = true
	sender := &recordSender{}

	plan := Plan{Process: "quick", Stages: []model.StageConfig{
		{Label: "develop", Duration: "3s", Mode: "continuous"},
		{Label: "wash", Duration: "2s"},
	}}
	r, rec, _ := testRunner(t, ws, cfg, plan, WithNotifySender(sender.Send))

	waitDone(t, start(t, r))

	st, err := ReadState(ws.StatePath())
	require.NoError(t, err)
	assert.Equal(t, model.SessionFinished, st.Status)
	assert.Equal(t, r.SessionID(), st.SessionID)
	assert.Equal(t, "quick", st.Process)
	assert.Equal(t, 1, st.StageIndex)
	assert.Equal(t, 2, st.StageCount)
	require.NotNil(t, st.Stage)
	assert.Equal(t, "wash", st.Stage.Label)
	assert.Equal(t, model.TimerFinished, st.Stage.State)

	types := journalTypes(t, ws)
	assert.Contains(t, types, string(events.EventSessionStarted))
	assert.Contains(t, types, string(events.EventStageStarted))
	assert.Contains(t, types, string(events.EventSessionFinished))
	finished := 0
	for _, typ := range types {
		if typ == string(events.EventStageFinished) {
			finished++
		}
	}
	assert.Equal(t, 2, finished)

	assert.Contains(t, sender.Messages(), "All 2 stages complete")
	assert.Contains(t, rec.Notices(), "All 2 stages complete")

	_, err = os.Stat(ws.SocketPath())
	assert.True(t, os.IsNotExist(err), "socket removed on shutdown")
	_, err = os.Stat(ws.LockPath())
	assert.True(t, os.IsNotExist(err), "lock released on shutdown")
}

func TestRunner_WaitsForNext(t *testing.T) {
	ws := newWorkspace(t)
	plan := Plan{Process: "two", Stages: []model.StageConfig{
		{Label: "develop", Duration: "2s"},
		{Label: "fix", Duration: "2s"},
	}}
	r, _, _ := testRunner(t, ws, fastConfig(), plan)
	errCh := start(t, r)
	client := uds.NewClient(ws.SocketPath())

	var st model.SessionState
	require.Eventually(t, func() bool {
		if err := client.Call(uds.CmdStatus, nil, &st); err != nil {
			return false
		}
		return st.Status == model.SessionWaiting
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, st.StageIndex)
	assert.Equal(t, model.TimerFinished, st.Stage.State)

	require.NoError(t, client.Call(uds.CmdNext, nil, &st))
	assert.Equal(t, 1, st.StageIndex)
	assert.Equal(t, "fix", st.Stage.Label)

	waitDone(t, errCh)
	final, err := ReadState(ws.StatePath())
	require.NoError(t, err)
	assert.Equal(t, model.SessionFinished, final.Status)
}

func TestRunner_ControlCommands(t *testing.T) {
	ws := newWorkspace(t)
	cfg := fastConfig()
	cfg.Timer.TickIntervalMs = 1000
	plan := AdHocPlan("", "10m", "orwo")
	r, _, logBuf := testRunner(t, ws, cfg, plan)
	errCh := start(t, r)
	client := uds.NewClient(ws.SocketPath())

	var st model.SessionState
	require.NoError(t, client.Call(uds.CmdStatus, nil, &st))
	assert.Equal(t, model.SessionRunning, st.Status)
	assert.Equal(t, "ad-hoc", st.Process)
	assert.Equal(t, "develop", st.Stage.Label)
	assert.Equal(t, "orwo", st.Stage.Mode)
	assert.Equal(t, 10, st.Stage.TotalMinutes)

	require.NoError(t, client.Call(uds.CmdPause, nil, &st))
	assert.Equal(t, model.SessionPaused, st.Status)
	assert.Equal(t, model.TimerPaused, st.Stage.State)

	var detail *uds.ErrorDetail
	err := client.Call(uds.CmdPause, nil, nil)
	require.True(t, errors.As(err, &detail), "got %v", err)
	assert.Equal(t, uds.ErrCodeInvalidState, detail.Code)

	require.NoError(t, client.Call(uds.CmdResume, nil, &st))
	assert.Equal(t, model.SessionRunning, st.Status)

	err = client.Call(uds.CmdNext, nil, nil)
	require.True(t, errors.As(err, &detail))
	assert.Equal(t, uds.ErrCodeInvalidState, detail.Code)

	require.NoError(t, client.Call(uds.CmdReset, nil, &st))
	assert.Equal(t, model.TimerIdle, st.Stage.State)
	assert.Equal(t, 600, st.Stage.RemainingSeconds)

	require.NoError(t, client.Call(uds.CmdResume, nil, &st))
	assert.Equal(t, model.TimerRunning, st.Stage.State)
	assert.True(t, st.Stage.IsInAgitationSubPhase, "orwo opens with agitation")

	require.NoError(t, client.Call(uds.CmdStop, nil, &st))
	assert.Equal(t, model.SessionStopped, st.Status)
	waitDone(t, errCh)

	final, err := ReadState(ws.StatePath())
	require.NoError(t, err)
	assert.Equal(t, model.SessionStopped, final.Status)
	assert.Contains(t, logBuf.String(), "session: stop requested via control socket")

	types := journalTypes(t, ws)
	assert.Contains(t, types, string(events.EventPaused))
	assert.Contains(t, types, string(events.EventResumed))
	assert.Contains(t, types, string(events.EventReset))
}

func TestRunner_SecondSessionIsLockedOut(t *testing.T) {
	ws := newWorkspace(t)
	cfg := fastConfig()
	cfg.Timer.TickIntervalMs = 1000
	first, _, _ := testRunner(t, ws, cfg, AdHocPlan("develop", "5m", ""))
	errCh := start(t, first)

	second, _, _ := testRunner(t, ws, cfg, AdHocPlan("develop", "5m", ""))
	err := second.Run()
	assert.ErrorIs(t, err, lock.ErrLocked)

	first.Shutdown()
	waitDone(t, errCh)
}

func TestRunner_UnknownModeFailsBeforeStart(t *testing.T) {
	ws := newWorkspace(t)
	r, _, _ := testRunner(t, ws, fastConfig(), AdHocPlan("develop", "5m", "no-such-mode"))

	err := r.Run()
	assert.ErrorIs(t, err, ErrUnknownMode)

	_, statErr := os.Stat(ws.LockPath())
	assert.True(t, os.IsNotExist(statErr), "lock released after failed start")
}

func TestRunner_ReloadRebindsPendingStage(t *testing.T) {
	ws := newWorkspace(t)
	cfg := fastConfig()
	cfg.Timer.TickIntervalMs = 1000
	cfg.Modes.Watch = true
	cfg.Modes.DebounceSec = 0.05

	house := func(action string) []byte {
		return []byte("schema_version: 1\nfile_type: agitation_modes\nmodes:\n" +
			"  - name: house\n    rules:\n      - priority: 1\n        condition: default\n        action: " + action + "\n")
	}
	modePath := filepath.Join(ws.ModesDir(&cfg), "house.yaml")
	require.NoError(t, os.WriteFile(modePath, house("still"), 0644))

	plan := Plan{Process: "house", Stages: []model.StageConfig{
		{Label: "develop", Duration: "10m", Mode: "continuous"},
		{Label: "fix", Duration: "5m", Mode: "house"},
	}}
	r, _, _ := testRunner(t, ws, cfg, plan)
	errCh := start(t, r)

	require.NoError(t, os.WriteFile(modePath, house("continuous"), 0644))

	require.Eventually(t, func() bool {
		entries, err := events.ReadJournal(ws.JournalPath())
		if err != nil {
			return false
		}
		for _, e := range entries {
			if e.EventType == string(events.EventModesReloaded) && e.Details["rebound"] == float64(1) {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)

	r.Shutdown()
	waitDone(t, errCh)
}

func TestLoadOrRecoverState_QuarantinesCorruptFile(t *testing.T) {
	ws := newWorkspace(t)
	require.NoError(t, os.Remove(ws.StatePath()))
	require.NoError(t, os.WriteFile(ws.StatePath(), []byte("status: [unclosed\n"), 0644))

	st, recovered, err := LoadOrRecoverState(ws.Dir, ws.StatePath())
	require.NoError(t, err)
	assert.True(t, recovered)
	assert.Equal(t, model.SessionIdle, st.Status)

	quarantined, err := filepath.Glob(filepath.Join(ws.QuarantineDir(), "session.yaml.*.corrupt"))
	require.NoError(t, err)
	assert.Len(t, quarantined, 1)
}

func TestReadState_MissingIsIdle(t *testing.T) {
	st, err := ReadState(filepath.Join(t.TempDir(), "session.yaml"))
	require.NoError(t, err)
	assert.Equal(t, model.SessionIdle, st.Status)
}

func TestWriteState_StampsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, WriteState(path, model.SessionState{Status: model.SessionRunning, SessionID: "x"}))
	require.NoError(t, atomicyaml.ValidateSchemaHeader(path, atomicyaml.FileTypeSessionState))

	st, err := ReadState(path)
	require.NoError(t, err)
	assert.Equal(t, model.SessionRunning, st.Status)
}

func TestPlanBuild(t *testing.T) {
	cat := catalog.New(nil)
	cfg := model.DefaultConfig()

	plan, err := ProcessPlan(cfg, "bw-standard")
	require.NoError(t, err)
	stages, err := plan.Build(cat)
	require.NoError(t, err)
	require.Len(t, stages, 4)
	assert.Equal(t, 480, stages[0].DurationSeconds)
	assert.Equal(t, "orwo", stages[0].ModeName())
	assert.Equal(t, "", stages[3].ModeName())

	_, err = ProcessPlan(cfg, "c41")
	assert.ErrorIs(t, err, ErrUnknownProcess)

	_, err = AdHocPlan("", "90s", "pulse").Build(cat)
	assert.NoError(t, err)

	_, err = AdHocPlan("", "-1m", "").Build(cat)
	assert.Error(t, err)
}

func TestStateChanged(t *testing.T) {
	base := func() model.SessionState {
		return model.SessionState{
			Status:     model.SessionRunning,
			StageIndex: 0,
			Stage: &model.StageStatus{
				State:                    model.TimerRunning,
				RemainingSeconds:         450,
				CurrentMinute:            1,
				Phase:                    "cycle",
				IsInAgitationSubPhase:    true,
				SubPhaseRemainingSeconds: 30,
			},
		}
	}
	tests := []struct {
		name   string
		mutate func(*model.SessionState)
		want   bool
	}{
		{"clocks only", func(s *model.SessionState) {
			s.Stage.RemainingSeconds--
			s.Stage.SubPhaseRemainingSeconds--
			s.UpdatedAt = "later"
		}, false},
		{"minute boundary", func(s *model.SessionState) { s.Stage.CurrentMinute = 2 }, true},
		{"agitate to rest", func(s *model.SessionState) { s.Stage.IsInAgitationSubPhase = false }, true},
		{"phase kind", func(s *model.SessionState) { s.Stage.Phase = "still" }, true},
		{"timer finished", func(s *model.SessionState) { s.Stage.State = model.TimerFinished }, true},
		{"session status", func(s *model.SessionState) { s.Status = model.SessionWaiting }, true},
		{"next stage", func(s *model.SessionState) { s.StageIndex = 1 }, true},
		{"stage dropped", func(s *model.SessionState) { s.Stage = nil }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cur := base()
			tt.mutate(&cur)
			assert.Equal(t, tt.want, stateChanged(base(), cur))
		})
	}

	assert.True(t, stateChanged(model.SessionState{}, base()), "nothing written yet")
	assert.False(t, stateChanged(model.SessionState{Status: model.SessionIdle}, model.SessionState{Status: model.SessionIdle}))
}
