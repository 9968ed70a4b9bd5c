package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/msageha/devtimer/internal/events"
	"github.com/msageha/devtimer/internal/model"
	"github.com/msageha/devtimer/internal/timer"
	"github.com/msageha/devtimer/internal/uds"
)

func (r *Runner) registerHandlers() {
	for _, name := range []string{uds.CmdStatus, uds.CmdPause, uds.CmdResume, uds.CmdReset, uds.CmdNext, uds.CmdStop} {
		r.server.Handle(name, r.dispatch(name))
	}
}

// dispatch hands a request to the loop goroutine and waits for its answer.
func (r *Runner) dispatch(name string) uds.HandlerFunc {
	return func(ctx context.Context, _ *uds.Request) *uds.Response {
		cmd := command{name: name, reply: make(chan *uds.Response, 1)}
		select {
		case r.cmds <- cmd:
		case <-r.ctx.Done():
			return uds.ErrorResponse(uds.ErrCodeUnavailable, "session is shutting down")
		case <-ctx.Done():
			return uds.ErrorResponse(uds.ErrCodeUnavailable, "session did not accept the request")
		}
		select {
		case resp := <-cmd.reply:
			return resp
		case <-ctx.Done():
			return uds.ErrorResponse(uds.ErrCodeUnavailable, "session did not answer")
		}
	}
}

// execute runs on the loop goroutine.
func (r *Runner) execute(name string) *uds.Response {
	t := r.seq.Current()
	switch name {
	case uds.CmdStatus:
		return uds.SuccessResponse(r.state())

	case uds.CmdPause:
		if err := t.Pause(); err != nil {
			return stateError(err)
		}
		r.status = model.SessionPaused
		r.bus.Publish(events.EventPaused, map[string]interface{}{"stage": t.Stage().Label})
		r.log(model.LogLevelInfo, "paused at %s", Clock(t.Snapshot().RemainingSeconds))

	case uds.CmdResume:
		// a reset timer is idle and starts over
		var err error
		if t.State() == model.TimerIdle {
			err = t.Start()
		} else {
			err = t.Resume()
		}
		if err != nil {
			return stateError(err)
		}
		r.status = model.SessionRunning
		r.bus.Publish(events.EventResumed, map[string]interface{}{"stage": t.Stage().Label})
		r.log(model.LogLevelInfo, "resumed")

	case uds.CmdReset:
		if t.State() == model.TimerFinished {
			return uds.ErrorResponse(uds.ErrCodeInvalidState, fmt.Sprintf("stage %s already finished", t.Stage().Label))
		}
		t.Reset()
		r.status = model.SessionPaused
		r.bus.Publish(events.EventReset, map[string]interface{}{"stage": t.Stage().Label})
		r.log(model.LogLevelInfo, "stage %s reset", t.Stage().Label)

	case uds.CmdNext:
		if t.State() != model.TimerFinished {
			return uds.ErrorResponse(uds.ErrCodeInvalidState, fmt.Sprintf("stage %s is still %s", t.Stage().Label, t.State()))
		}
		if !r.seq.HasNextStage() {
			return uds.ErrorResponse(uds.ErrCodeInvalidState, "no stage left")
		}
		if err := r.advance(); err != nil {
			return stateError(err)
		}
		return uds.SuccessResponse(r.state())

	case uds.CmdStop:
		r.status = model.SessionStopped
		st := r.persist()
		r.log(model.LogLevelInfo, "stop requested via control socket")
		r.stop()
		return uds.SuccessResponse(st)

	default:
		return uds.ErrorResponse(uds.ErrCodeUnknownCommand, name)
	}

	st := r.persist()
	r.renderer.Render(st)
	return uds.SuccessResponse(st)
}

func stateError(err error) *uds.Response {
	if errors.Is(err, timer.ErrInvalidTransition) {
		return uds.ErrorResponse(uds.ErrCodeInvalidState, err.Error())
	}
	return uds.ErrorResponse(uds.ErrCodeInternal, err.Error())
}
