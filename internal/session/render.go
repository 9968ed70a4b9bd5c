package session

import (
	"fmt"
	"io"
	"strings"

	"github.com/msageha/devtimer/internal/agitation"
	"github.com/msageha/devtimer/internal/model"
)

// Renderer shows the session to the person at the tank.
type Renderer interface {
	Render(st model.SessionState)
	Notice(msg string)
}

// LineRenderer prints one line per call.
type LineRenderer struct {
	w io.Writer
}

func NewLineRenderer(w io.Writer) *LineRenderer {
	return &LineRenderer{w: w}
}

func (r *LineRenderer) Render(st model.SessionState) {
	if st.Stage == nil {
		return
	}
	_, _ = fmt.Fprintln(r.w, FormatLine(st))
}

func (r *LineRenderer) Notice(msg string) {
	_, _ = fmt.Fprintf(r.w, ">> %s\n", msg)
}

// FormatLine renders e.g.
//
//	[1/4 develop] 07:44 left  min 1/8  AGITATE 00:29  45s agitation, 15s rest
func FormatLine(st model.SessionState) string {
	s := st.Stage
	var b strings.Builder
	fmt.Fprintf(&b, "[%d/%d %s] %s left  min %d/%d", st.StageIndex+1, st.StageCount, s.Label,
		Clock(s.RemainingSeconds), s.CurrentMinute, s.TotalMinutes)

	switch s.State {
	case model.TimerIdle:
		b.WriteString("  ready")
	case model.TimerPaused:
		b.WriteString("  PAUSED")
	case model.TimerFinished:
		b.WriteString("  done")
		return b.String()
	}

	switch agitation.PhaseKind(s.Phase) {
	case agitation.PhaseCycle, agitation.PhasePeriodic:
		cue := "rest"
		if s.IsInAgitationSubPhase {
			cue = "AGITATE"
		}
		if s.SubPhaseRemainingSeconds > 0 {
			fmt.Fprintf(&b, "  %s %s", cue, Clock(s.SubPhaseRemainingSeconds))
		} else {
			fmt.Fprintf(&b, "  %s", cue)
		}
	case agitation.PhaseContinuous, agitation.PhaseCustom:
		b.WriteString("  AGITATE")
	case agitation.PhaseStill:
		b.WriteString("  still")
	}
	if s.PhaseDescription != "" {
		fmt.Fprintf(&b, "  %s", s.PhaseDescription)
	}
	return b.String()
}

// Clock formats seconds as mm:ss, or h:mm:ss from an hour up.
func Clock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, seconds/60%60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
