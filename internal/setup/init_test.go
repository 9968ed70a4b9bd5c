package setup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/msageha/devtimer/internal/catalog"
	"github.com/msageha/devtimer/internal/model"
	atomicyaml "github.com/msageha/devtimer/internal/yaml"
)

func initProject(t *testing.T) (string, Workspace) {
	t.Helper()
	projectDir := filepath.Join(t.TempDir(), "darkroom")
	require.NoError(t, os.Mkdir(projectDir, 0755))
	require.NoError(t, Run(projectDir))
	return projectDir, Workspace{Dir: filepath.Join(projectDir, DirName)}
}

func TestRun_CreatesDirectoryStructure(t *testing.T) {
	_, ws := initProject(t)

	for _, d := range []string{"modes", "state", "locks", "logs", "quarantine"} {
		info, err := os.Stat(filepath.Join(ws.Dir, d))
		if !assert.NoError(t, err, d) {
			continue
		}
		assert.True(t, info.IsDir(), d)
	}
}

func TestRun_ConfigLoadsBack(t *testing.T) {
	_, ws := initProject(t)

	cfg, err := ws.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Timer.TickIntervalMs)
	assert.True(t, cfg.Modes.Watch)
	require.Contains(t, cfg.Processes, "bw-standard")
	assert.Equal(t, "develop", cfg.Processes["bw-standard"].Stages[0].Label)
}

func TestRun_ExampleModeParses(t *testing.T) {
	_, ws := initProject(t)

	modes, err := catalog.NewLoader(ws.ModesDir(nil)).LoadDir()
	require.NoError(t, err)
	require.NotEmpty(t, modes)
	for _, m := range modes {
		assert.True(t, m.IsCustom())
	}
}

func TestRun_WritesIdleState(t *testing.T) {
	_, ws := initProject(t)

	require.NoError(t, atomicyaml.ValidateSchemaHeader(ws.StatePath(), atomicyaml.FileTypeSessionState))
	data, err := os.ReadFile(ws.StatePath())
	require.NoError(t, err)
	var state model.SessionState
	require.NoError(t, yaml.Unmarshal(data, &state))
	assert.Equal(t, model.SessionIdle, state.Status)
}

func TestRun_RefusesExistingWorkspace(t *testing.T) {
	projectDir, _ := initProject(t)

	err := Run(projectDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestFindFrom_WalksUp(t *testing.T) {
	projectDir, ws := initProject(t)
	nested := filepath.Join(projectDir, "rolls", "2026-10")
	require.NoError(t, os.MkdirAll(nested, 0755))

	found, ok := FindFrom(nested)
	require.True(t, ok)
	assert.Equal(t, ws.Dir, found.Dir)

	_, ok = FindFrom(t.TempDir())
	assert.False(t, ok)
}

func TestWorkspace_Paths(t *testing.T) {
	ws := Workspace{Dir: "/tmp/p/.devtimer"}
	assert.Equal(t, "/tmp/p/.devtimer/config.yaml", ws.ConfigPath())
	assert.Equal(t, "/tmp/p/.devtimer/session.sock", ws.SocketPath())
	assert.Equal(t, "/tmp/p/.devtimer/locks/session.lock", ws.LockPath())
	assert.Equal(t, "/tmp/p/.devtimer/logs/events.jsonl", ws.JournalPath())
	assert.Equal(t, "/tmp/p/.devtimer/state/session.yaml", ws.StatePath())
	assert.Equal(t, "/tmp/p/.devtimer/modes", ws.ModesDir(nil))

	cfg := model.DefaultConfig()
	cfg.Modes.Dir = "/srv/modes"
	assert.Equal(t, "/srv/modes", ws.ModesDir(&cfg))
	cfg.Modes.Dir = "house"
	assert.Equal(t, "/tmp/p/.devtimer/house", ws.ModesDir(&cfg))
}

func TestLoadConfig_RejectsUnknownFields(t *testing.T) {
	ws := Workspace{Dir: t.TempDir()}
	require.NoError(t, os.WriteFile(ws.ConfigPath(), []byte("timer:\n  tick_ms: 5\n"), 0644))

	_, err := ws.LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_InvalidProcess(t *testing.T) {
	ws := Workspace{Dir: t.TempDir()}
	content := "processes:\n  bad:\n    stages:\n      - label: develop\n        duration: 1.5s\n"
	require.NoError(t, os.WriteFile(ws.ConfigPath(), []byte(content), 0644))

	_, err := ws.LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "whole seconds")
}
