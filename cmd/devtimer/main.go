package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/msageha/devtimer/internal/agitation"
	"github.com/msageha/devtimer/internal/catalog"
	"github.com/msageha/devtimer/internal/model"
	"github.com/msageha/devtimer/internal/notify"
	"github.com/msageha/devtimer/internal/session"
	"github.com/msageha/devtimer/internal/setup"
	"github.com/msageha/devtimer/internal/status"
	"github.com/msageha/devtimer/internal/uds"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		runInit(os.Args[2:])
	case "run":
		runSession(os.Args[2:])
	case "status":
		runStatus(os.Args[2:])
	case uds.CmdPause, uds.CmdResume, uds.CmdReset, uds.CmdNext, uds.CmdStop:
		runControl(os.Args[1], os.Args[2:])
	case "processes":
		runProcesses(os.Args[2:])
	case "modes":
		runModes(os.Args[2:])
	case "preview":
		runPreview(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "notify":
		runNotify(os.Args[2:])
	case "version":
		fmt.Printf("devtimer %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func runInit(args []string) {
	dir := "."
	switch len(args) {
	case 0:
	case 1:
		dir = args[0]
	default:
		fmt.Fprintln(os.Stderr, "usage: devtimer init [dir]")
		os.Exit(1)
	}
	if err := setup.Run(dir); err != nil {
		fail("init: %v", err)
	}
	absDir, _ := filepath.Abs(dir)
	fmt.Printf("Initialized %s/ in %s\n", setup.DirName, absDir)
}

func runSession(args []string) {
	const usage = "usage: devtimer run <process> | devtimer run --duration <d> [--mode <name>] [--label <label>] [--auto-advance] [--no-notify]"
	var process, duration, mode, label string
	var autoAdvance, noNotify bool

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--duration", "--mode", "--label":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "%s requires a value\n%s\n", args[i], usage)
				os.Exit(1)
			}
			switch args[i] {
			case "--duration":
				duration = args[i+1]
			case "--mode":
				mode = args[i+1]
			case "--label":
				label = args[i+1]
			}
			i++
		case "--auto-advance":
			autoAdvance = true
		case "--no-notify":
			noNotify = true
		default:
			if strings.HasPrefix(args[i], "--") || process != "" {
				fmt.Fprintf(os.Stderr, "unexpected argument: %s\n%s\n", args[i], usage)
				os.Exit(1)
			}
			process = args[i]
		}
	}
	if (process == "") == (duration == "") {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	ws := requireWorkspace()
	cfg, err := ws.LoadConfig()
	if err != nil {
		fail("%v", err)
	}
	if autoAdvance {
		cfg.Timer.AutoAdvance = true
	}
	if noNotify {
		cfg.Notify.Enabled = false
	}

	var plan session.Plan
	if process != "" {
		if plan, err = session.ProcessPlan(cfg, process); err != nil {
			fail("%v", err)
		}
	} else {
		plan = session.AdHocPlan(label, duration, mode)
	}

	r, err := session.New(ws, cfg, plan, os.Stdout)
	if err != nil {
		fail("create session: %v", err)
	}
	if err := r.Run(); err != nil {
		fail("run: %v", err)
	}
}

func runStatus(args []string) {
	jsonOutput := false
	for _, a := range args {
		switch a {
		case "--json":
			jsonOutput = true
		default:
			fmt.Fprintf(os.Stderr, "unknown flag: %s\nusage: devtimer status [--json]\n", a)
			os.Exit(1)
		}
	}

	ws := requireWorkspace()
	if err := status.Run(ws, os.Stdout, jsonOutput); err != nil {
		fail("status: %v", err)
	}
}

func runControl(command string, args []string) {
	if len(args) != 0 {
		fmt.Fprintf(os.Stderr, "usage: devtimer %s\n", command)
		os.Exit(1)
	}
	ws := requireWorkspace()

	var st model.SessionState
	if err := uds.NewClient(ws.SocketPath()).Call(command, nil, &st); err != nil {
		fail("%s: %v", command, err)
	}
	if st.Stage != nil {
		fmt.Println(session.FormatLine(st))
	} else {
		fmt.Printf("session %s\n", st.Status)
	}
}

func runProcesses(_ []string) {
	ws := requireWorkspace()
	cfg, err := ws.LoadConfig()
	if err != nil {
		fail("%v", err)
	}

	names := make([]string, 0, len(cfg.Processes))
	for name := range cfg.Processes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := cfg.Processes[name]
		fmt.Printf("%s  %s\n", name, p.Description)
		for _, s := range p.Stages {
			mode := s.Mode
			if mode == "" {
				mode = "-"
			}
			fmt.Printf("  %-10s  %6s  %s\n", s.Label, s.Duration, mode)
		}
	}
}

func runModes(args []string) {
	if len(args) >= 1 && args[0] == "export" {
		runModesExport(args[1:])
		return
	}
	jsonOutput := false
	for _, a := range args {
		switch a {
		case "--json":
			jsonOutput = true
		default:
			fmt.Fprintf(os.Stderr, "unknown flag: %s\nusage: devtimer modes [--json] | devtimer modes export <name>...\n", a)
			os.Exit(1)
		}
	}

	cat := loadCatalog()
	if jsonOutput {
		defs := make([]agitation.ModeDefinition, 0, len(cat.Names()))
		for _, m := range cat.Modes() {
			defs = append(defs, m.Definition())
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(defs); err != nil {
			fail("%v", err)
		}
		return
	}

	for _, m := range cat.Modes() {
		kind := "built-in"
		if m.IsCustom() {
			kind = "custom"
		}
		fmt.Printf("%-12s  %-8s  %s\n", m.Name(), kind, m.Description())
	}
}

// runModesExport prints modes as a mode file, ready to copy into modes/ and edit.
func runModesExport(names []string) {
	if len(names) == 0 {
		fmt.Fprintln(os.Stderr, "usage: devtimer modes export <name>...")
		os.Exit(1)
	}
	cat := loadCatalog()
	defs := make([]agitation.ModeDefinition, 0, len(names))
	for _, name := range names {
		m, ok := cat.Get(name)
		if !ok {
			fail("unknown mode %q", name)
		}
		defs = append(defs, m.Definition())
	}
	out, err := yaml.Marshal(catalog.NewModeFile(defs...))
	if err != nil {
		fail("%v", err)
	}
	fmt.Print(string(out))
}

func runPreview(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: devtimer preview <mode> <duration>")
		os.Exit(1)
	}
	cat := loadCatalog()
	m, ok := cat.Get(args[0])
	if !ok {
		fail("unknown mode %q (available: %s)", args[0], strings.Join(cat.Names(), ", "))
	}
	secs, err := model.ParseSeconds(args[1])
	if err != nil {
		fail("%v", err)
	}

	totalMinutes := (secs + 59) / 60
	fmt.Printf("%s over %s\n", m.Name(), session.Clock(secs))
	for i, p := range agitation.NewEngine().Schedule(totalMinutes, m) {
		fmt.Printf("  min %3d  %-10s  %s\n", i+1, p.Type.Kind, p.Description)
	}
}

func runValidate(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: devtimer validate <mode-file>...")
		os.Exit(1)
	}
	failed := false
	for _, path := range args {
		modes, err := catalog.LoadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
			continue
		}
		names := make([]string, 0, len(modes))
		for _, m := range modes {
			names = append(names, m.Name())
		}
		fmt.Printf("%s: ok (%s)\n", path, strings.Join(names, ", "))
	}
	if failed {
		os.Exit(1)
	}
}

func runNotify(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: devtimer notify <title> <message>")
		os.Exit(1)
	}
	if err := notify.Send(args[0], args[1]); err != nil {
		fail("notify: %v", err)
	}
	_ = notify.Beep()
}

func requireWorkspace() setup.Workspace {
	ws, ok := setup.Find()
	if !ok {
		fail("%s/ directory not found. Run 'devtimer init' first.", setup.DirName)
	}
	return ws
}

// loadCatalog returns the built-in modes plus the workspace's modes when run
// inside one.
func loadCatalog() *catalog.Catalog {
	ws, ok := setup.Find()
	if !ok {
		return catalog.New(nil)
	}
	cfg, err := ws.LoadConfig()
	if err != nil {
		fail("%v", err)
	}
	cat, err := catalog.Load(ws.ModesDir(&cfg))
	if err != nil {
		fail("%v", err)
	}
	return cat
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `devtimer %s: film development timer with agitation cues

Usage: devtimer <command> [options]

Session:
  init [dir]                      Initialize .devtimer/ directory
  run <process>                   Run a configured process
  run --duration <d> [--mode <m>] [--label <l>]
                                  Run a single stage
      --auto-advance              Start each stage as the previous one finishes
      --no-notify                 Disable desktop notifications
  status [--json]                 Show the session

Control (talks to a running session):
  pause | resume | reset | next | stop

Modes:
  processes                       List configured processes
  modes [--json]                  List agitation modes
  modes export <name>...          Print modes as an editable mode file
  preview <mode> <duration>       Show the agitation for every minute
  validate <file>...              Check mode files

Utilities:
  notify <title> <msg>            Send a test notification
  version                         Show version
  help                            Show this help

`, version)
}
