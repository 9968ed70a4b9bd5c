// Package session runs a development process in the foreground: it owns the
// stage timers, ticks them, and answers control requests from other devtimer
// invocations over the workspace socket.
package session

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/msageha/devtimer/internal/agitation"
	"github.com/msageha/devtimer/internal/catalog"
	"github.com/msageha/devtimer/internal/events"
	"github.com/msageha/devtimer/internal/lock"
	"github.com/msageha/devtimer/internal/model"
	"github.com/msageha/devtimer/internal/notify"
	"github.com/msageha/devtimer/internal/setup"
	"github.com/msageha/devtimer/internal/staging"
	"github.com/msageha/devtimer/internal/timer"
	"github.com/msageha/devtimer/internal/uds"
)

type Option func(*Runner)

// WithRenderer replaces the line renderer on the output writer.
func WithRenderer(r Renderer) Option {
	return func(rn *Runner) { rn.renderer = r }
}

// WithNotifySender replaces notify.Send for desktop notifications.
func WithNotifySender(fn notify.SendFunc) Option {
	return func(rn *Runner) { rn.notifySend = fn }
}

// Runner is one foreground session. Only the loop goroutine touches the
// sequencer and its timers; everything else reaches them through cmds.
type Runner struct {
	ws        setup.Workspace
	config    model.Config
	plan      Plan
	sessionID string
	logLevel  model.LogLevel
	logger    *log.Logger
	logFile   io.Closer

	renderer   Renderer
	notifySend notify.SendFunc

	fileLock *lock.FileLock
	server   *uds.Server
	engine   *agitation.Engine
	catalog  *catalog.Catalog
	watcher  *catalog.Watcher
	bus      *events.Bus
	journal  *events.Journal

	// loop goroutine only
	seq       *staging.Sequencer
	status    model.SessionStatus
	startedAt time.Time
	written   model.SessionState

	tickInterval time.Duration
	cmds         chan command
	reloads      chan struct{}
	ready        chan struct{}
	stopped      chan struct{}
	stopOnce     sync.Once

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	shutdown sync.Once
}

type command struct {
	name  string
	reply chan *uds.Response
}

// New creates a Runner logging to .devtimer/logs/session.log and rendering
// to out.
func New(ws setup.Workspace, cfg model.Config, plan Plan, out io.Writer, opts ...Option) (*Runner, error) {
	if err := os.MkdirAll(ws.LogsDir(), 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	logFile, err := os.OpenFile(ws.LogPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open session log: %w", err)
	}
	r, err := newRunner(ws, cfg, plan, logFile, logFile, out, opts...)
	if err != nil {
		_ = logFile.Close()
		return nil, err
	}
	return r, nil
}

func newRunner(ws setup.Workspace, cfg model.Config, plan Plan, w io.Writer, closer io.Closer, out io.Writer, opts ...Option) (*Runner, error) {
	if len(plan.Stages) == 0 {
		return nil, staging.ErrNoStages
	}
	id, err := model.GenerateID(model.IDTypeSession)
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	cfg.ApplyDefaults()
	level := model.ParseLogLevel(cfg.Logging.Level)
	logger := log.New(w, "", 0)
	ctx, cancel := context.WithCancel(context.Background())

	r := &Runner{
		ws:           ws,
		config:       cfg,
		plan:         plan,
		sessionID:    id,
		logLevel:     level,
		logger:       logger,
		logFile:      closer,
		renderer:     NewLineRenderer(out),
		notifySend:   notify.Send,
		fileLock:     lock.NewFileLock(ws.LockPath()),
		server:       uds.NewServer(ws.SocketPath(), uds.WithLogger(logger, level)),
		engine:       agitation.NewEngine(),
		bus:          events.NewBus(0),
		status:       model.SessionIdle,
		tickInterval: time.Duration(cfg.Timer.TickIntervalMs) * time.Millisecond,
		cmds:         make(chan command),
		reloads:      make(chan struct{}, 1),
		ready:        make(chan struct{}),
		stopped:      make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Runner) SessionID() string { return r.sessionID }

// Ready is closed once the control socket accepts requests.
func (r *Runner) Ready() <-chan struct{} { return r.ready }

// Run starts the session and blocks until it finishes, is stopped, or the
// process receives SIGINT or SIGTERM.
func (r *Runner) Run() error {
	// Step 1: Acquire the workspace lock
	if err := r.fileLock.TryLock(); err != nil {
		r.closeLog()
		return fmt.Errorf("session lock: %w", err)
	}
	r.log(model.LogLevelInfo, "session %s starting pid=%d process=%s", r.sessionID, os.Getpid(), r.plan.Process)

	// Step 2: Load built-in and user modes
	modesDir := r.ws.ModesDir(&r.config)
	loader := catalog.NewLoader(modesDir)
	custom, err := loader.LoadDir()
	if err != nil {
		r.cleanup()
		return fmt.Errorf("load modes: %w", err)
	}
	r.catalog = catalog.New(custom)

	// Step 3: Resolve the plan into stages
	stages, err := r.plan.Build(r.catalog)
	if err != nil {
		r.cleanup()
		return err
	}
	feedback := events.NewBusFeedback(r.bus, r.currentLabel)
	r.seq, err = staging.New(stages, r.engine,
		staging.WithTimerOptions(timer.WithFeedback(feedback)),
		staging.OnStageFinished(r.onStageFinished),
	)
	if err != nil {
		r.cleanup()
		return err
	}

	// Step 4: Check the previous state file
	r.checkState()

	// Step 5: Event subscribers
	r.subscribe()

	// Step 6: Watch the modes directory
	if r.config.Modes.Watch {
		r.watcher = catalog.NewWatcher(loader, r.catalog,
			catalog.WithLogger(r.logger, r.logLevel),
			catalog.WithDebounce(time.Duration(r.config.Modes.DebounceSec*float64(time.Second))),
			catalog.OnReload(r.requestRebind),
		)
		if err := r.watcher.Start(); err != nil {
			r.log(model.LogLevelWarn, "mode hot reload disabled: %v", err)
			r.watcher = nil
		}
	}

	// Step 7: Register handlers and start the control socket
	r.registerHandlers()
	if err := r.server.Start(); err != nil {
		r.Shutdown()
		return fmt.Errorf("start control socket: %w", err)
	}
	r.log(model.LogLevelInfo, "control socket listening on %s", r.server.SocketPath())

	// Step 8: Start the first stage and the tick loop
	r.wg.Add(1)
	go r.loop()
	close(r.ready)

	// Step 9: Wait for completion, stop or signals
	r.waitSignals()
	return nil
}

func (r *Runner) subscribe() {
	journal, err := events.NewJournal(r.ws.JournalPath(), r.sessionID, events.DefaultMaxJournalSize)
	if err != nil {
		r.log(model.LogLevelWarn, "event journal disabled: %v", err)
	} else {
		r.journal = journal
		r.bus.SubscribeAll(journal.Record)
	}

	if r.config.Notify.Enabled {
		n := notify.NewNotifier(r.config.Notify.Title,
			notify.WithSender(r.notifySend),
			notify.WithErrorHandler(func(err error) {
				r.log(model.LogLevelWarn, "notification failed: %v", err)
			}),
		)
		n.Subscribe(r.bus)
	}
}

func (r *Runner) checkState() {
	if err := os.MkdirAll(r.ws.StateDir(), 0755); err != nil {
		r.log(model.LogLevelWarn, "create state dir: %v", err)
	}
	prev, recovered, err := LoadOrRecoverState(r.ws.Dir, r.ws.StatePath())
	if err != nil {
		r.log(model.LogLevelWarn, "previous session state unreadable: %v", err)
		return
	}
	if recovered {
		r.log(model.LogLevelWarn, "session state was corrupted and has been quarantined")
	}
	if model.IsSessionActive(prev.Status) {
		r.log(model.LogLevelWarn, "previous session %s ended without shutdown (status=%s)", prev.SessionID, prev.Status)
	}
}

// requestRebind runs on the watcher goroutine.
func (r *Runner) requestRebind(*catalog.Catalog) {
	select {
	case r.reloads <- struct{}{}:
	default:
	}
}

func (r *Runner) loop() {
	defer r.wg.Done()
	defer r.finalize()

	if err := r.begin(); err != nil {
		r.log(model.LogLevelError, "start session: %v", err)
		r.stop()
		return
	}

	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.tick()
		case cmd := <-r.cmds:
			cmd.reply <- r.execute(cmd.name)
		case <-r.reloads:
			r.rebind()
		}
	}
}

func (r *Runner) begin() error {
	if err := r.seq.Current().Start(); err != nil {
		return err
	}
	r.startedAt = time.Now().UTC()
	r.status = model.SessionRunning
	r.bus.Publish(events.EventSessionStarted, map[string]interface{}{
		"process": r.plan.Process,
		"stages":  len(r.seq.Stages()),
	})
	r.announceStage()
	r.renderer.Render(r.persist())
	return nil
}

func (r *Runner) tick() {
	t := r.seq.Current()
	if t.State() != model.TimerRunning {
		return
	}
	snap := t.Tick()
	st := r.state()
	if stateChanged(r.written, st) {
		r.write(st)
	}
	r.renderer.Render(st)
	if snap.State == model.TimerFinished {
		r.afterStage()
	}
}

func (r *Runner) onStageFinished(index int, snap timer.Snapshot) {
	r.log(model.LogLevelInfo, "stage %d (%s) finished", index+1, snap.Label)
	r.bus.Publish(events.EventStageFinished, map[string]interface{}{
		"stage": snap.Label,
		"index": index,
	})
}

func (r *Runner) afterStage() {
	if !r.seq.HasNextStage() {
		n := len(r.seq.Stages())
		r.status = model.SessionFinished
		r.persist()
		r.bus.Publish(events.EventSessionFinished, map[string]interface{}{"stages": n})
		r.renderer.Notice(fmt.Sprintf("All %d stages complete", n))
		r.log(model.LogLevelInfo, "session finished")
		r.stop()
		return
	}
	if r.config.Timer.AutoAdvance {
		if err := r.advance(); err != nil {
			r.log(model.LogLevelError, "auto advance: %v", err)
		}
		return
	}
	r.status = model.SessionWaiting
	r.persist()
	next := r.seq.Stages()[r.seq.Index()+1]
	r.renderer.Notice(fmt.Sprintf("%s complete. Run `devtimer next` to start %s", r.currentLabel(), next.Label))
}

func (r *Runner) advance() error {
	next := r.seq.Advance()
	if err := next.Start(); err != nil {
		return err
	}
	r.status = model.SessionRunning
	r.bus.Publish(events.EventStageStarted, map[string]interface{}{
		"stage": next.Stage().Label,
		"index": r.seq.Index(),
	})
	r.announceStage()
	r.renderer.Render(r.persist())
	return nil
}

func (r *Runner) announceStage() {
	st := r.seq.Current().Stage()
	msg := fmt.Sprintf("%s: %s", st.Label, Clock(st.DurationSeconds))
	if name := st.ModeName(); name != "" {
		msg += ", " + name
	}
	r.renderer.Notice(msg)
	r.log(model.LogLevelInfo, "stage %d/%d started: %s", r.seq.Index()+1, len(r.seq.Stages()), msg)
}

func (r *Runner) rebind() {
	n := r.seq.RebindPending(r.catalog.Get)
	r.bus.Publish(events.EventModesReloaded, map[string]interface{}{
		"rebound": n,
		"version": r.catalog.Version(),
	})
	if n > 0 {
		r.log(model.LogLevelInfo, "rebound %d pending stage(s) to reloaded modes", n)
	}
}

// currentLabel names the stage the loop is on. Called from timer feedback,
// which runs on the loop goroutine.
func (r *Runner) currentLabel() string {
	if r.seq == nil {
		return ""
	}
	return r.seq.Current().Stage().Label
}

func (r *Runner) state() model.SessionState {
	t := r.seq.Current()
	st := IdleState()
	st.Status = r.status
	st.SessionID = r.sessionID
	st.Process = r.plan.Process
	st.PID = os.Getpid()
	st.StageIndex = r.seq.Index()
	st.StageCount = len(r.seq.Stages())
	st.Stage = StageStatus(t.Snapshot(), t.Stage().ModeName())
	if !r.startedAt.IsZero() {
		st.StartedAt = r.startedAt.Format(time.RFC3339)
	}
	st.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return st
}

func (r *Runner) persist() model.SessionState {
	st := r.state()
	r.write(st)
	return st
}

func (r *Runner) write(st model.SessionState) {
	if err := WriteState(r.ws.StatePath(), st); err != nil {
		r.log(model.LogLevelWarn, "write session state: %v", err)
		return
	}
	r.written = st
}

// stateChanged reports whether cur differs from the last written state in
// more than its running clocks. Ticks inside one minute and sub-phase are not
// written; live readers ask the control socket.
func stateChanged(prev, cur model.SessionState) bool {
	if prev.Status != cur.Status || prev.StageIndex != cur.StageIndex {
		return true
	}
	if prev.Stage == nil || cur.Stage == nil {
		return prev.Stage != cur.Stage
	}
	p, c := prev.Stage, cur.Stage
	return p.State != c.State ||
		p.CurrentMinute != c.CurrentMinute ||
		p.Phase != c.Phase ||
		p.IsInAgitationSubPhase != c.IsInAgitationSubPhase
}

// finalize runs as the loop exits and records how the session ended.
func (r *Runner) finalize() {
	if r.seq == nil {
		return
	}
	if model.IsSessionActive(r.status) {
		r.status = model.SessionStopped
	}
	r.persist()
}

func (r *Runner) stop() {
	r.stopOnce.Do(func() { close(r.stopped) })
}

// waitSignals blocks until the session ends or a shutdown signal arrives.
func (r *Runner) waitSignals() {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	select {
	case <-r.stopped:
	case <-r.ctx.Done():
	case sig := <-sigCh:
		r.log(model.LogLevelInfo, "received signal=%s, initiating graceful shutdown", sig)
		go func() {
			<-sigCh
			r.log(model.LogLevelWarn, "received second signal, forcing exit")
			os.Exit(1)
		}()
	}

	r.Shutdown()
}

// Shutdown stops the session (idempotent via sync.Once).
func (r *Runner) Shutdown() {
	r.shutdown.Do(func() {
		r.log(model.LogLevelInfo, "shutdown started")

		// 1. Cancel context (stops the tick loop)
		r.cancel()

		// 2. Stop producers
		if r.watcher != nil {
			_ = r.watcher.Close()
		}
		_ = r.server.Stop()

		// 3. Drain the loop with timeout
		timeout := r.config.Session.ShutdownTimeoutSec
		done := make(chan struct{})
		go func() {
			r.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Duration(timeout) * time.Second):
			r.log(model.LogLevelWarn, "shutdown timeout after %ds, state may be stale", timeout)
		}

		// 4. Let the journal and notifications catch up
		if !r.bus.CloseWait(time.Duration(timeout) * time.Second) {
			r.log(model.LogLevelWarn, "event subscribers still busy after %ds", timeout)
		}
		if r.journal != nil {
			_ = r.journal.Close()
		}

		// 5. Cleanup
		r.log(model.LogLevelInfo, "session %s stopped", r.sessionID)
		r.cleanup()
	})
}

func (r *Runner) cleanup() {
	_ = os.Remove(r.server.SocketPath())
	_ = r.fileLock.Unlock()
	r.closeLog()
}

func (r *Runner) closeLog() {
	if r.logFile != nil {
		_ = r.logFile.Close()
		r.logFile = nil
	}
}

func (r *Runner) log(level model.LogLevel, format string, args ...any) {
	if level < r.logLevel {
		return
	}
	msg := fmt.Sprintf(format, args...)
	r.logger.Printf("%s %s session: %s", time.Now().Format(time.RFC3339), level, msg)
}
