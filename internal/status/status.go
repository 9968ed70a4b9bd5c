// Package status reports on the workspace's session, live when one is
// running and from the last recorded state otherwise.
package status

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/msageha/devtimer/internal/events"
	"github.com/msageha/devtimer/internal/model"
	"github.com/msageha/devtimer/internal/session"
	"github.com/msageha/devtimer/internal/setup"
	"github.com/msageha/devtimer/internal/uds"
)

const recentEventCount = 5

const (
	SourceSocket    = "socket"
	SourceStateFile = "state_file"
)

type Report struct {
	Live         bool                  `json:"live"`
	Source       string                `json:"source"`
	Stale        bool                  `json:"stale,omitempty"`
	Session      model.SessionState    `json:"session"`
	RecentEvents []events.JournalEntry `json:"recent_events,omitempty"`
}

// Run collects the report and prints it to w.
func Run(ws setup.Workspace, w io.Writer, jsonOutput bool) error {
	report, err := Collect(ws)
	if err != nil {
		return err
	}
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(w, report)
	return nil
}

// Collect asks a running session first and falls back to state/session.yaml.
func Collect(ws setup.Workspace) (Report, error) {
	var report Report
	if st, ok := checkSession(ws.SocketPath()); ok {
		report.Live = true
		report.Source = SourceSocket
		report.Session = st
	} else {
		st, err := session.ReadState(ws.StatePath())
		if err != nil {
			return Report{}, err
		}
		report.Source = SourceStateFile
		report.Session = st
		// recorded as active but nobody answers
		report.Stale = model.IsSessionActive(st.Status)
	}
	report.RecentEvents = recentEvents(ws.JournalPath(), report.Session.SessionID, recentEventCount)
	return report, nil
}

func checkSession(sockPath string) (model.SessionState, bool) {
	var st model.SessionState
	if err := uds.NewClient(sockPath).Call(uds.CmdStatus, nil, &st); err != nil {
		return model.SessionState{}, false
	}
	return st, true
}

// recentEvents returns the last n journal entries of sessionID, feedback
// cues excluded.
func recentEvents(path, sessionID string, n int) []events.JournalEntry {
	if sessionID == "" {
		return nil
	}
	entries, err := events.ReadJournal(path)
	if err != nil {
		return nil
	}
	var out []events.JournalEntry
	for _, e := range entries {
		if e.SessionID != sessionID || e.EventType == string(events.EventFeedback) {
			continue
		}
		out = append(out, e)
	}
	// subscribers write concurrently, so file order is only roughly chronological
	sort.SliceStable(out, func(i, k int) bool { return out[i].Timestamp.Before(out[k].Timestamp) })
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

func printReport(w io.Writer, r Report) {
	s := r.Session
	switch {
	case r.Live:
		fmt.Fprintf(w, "Session: %s (pid %d)\n", s.Status, s.PID)
	case r.Stale:
		fmt.Fprintf(w, "Session: not running (last recorded %s, no clean shutdown)\n", s.Status)
	default:
		fmt.Fprintf(w, "Session: not running (last %s)\n", s.Status)
	}
	if s.SessionID == "" {
		return
	}

	if created, err := model.ParseIDTimestamp(s.SessionID); err == nil {
		fmt.Fprintf(w, "  id:       %s (created %s)\n", s.SessionID, created.Local().Format("2006-01-02 15:04:05"))
	} else {
		fmt.Fprintf(w, "  id:       %s\n", s.SessionID)
	}
	fmt.Fprintf(w, "  process:  %s\n", s.Process)
	if s.StartedAt != "" {
		fmt.Fprintf(w, "  started:  %s\n", s.StartedAt)
	}
	if s.Stage != nil {
		fmt.Fprintf(w, "  %s\n", session.FormatLine(s))
	}

	if len(r.RecentEvents) > 0 {
		fmt.Fprintln(w, "\nRecent events:")
		for _, e := range r.RecentEvents {
			stage, _ := e.Details["stage"].(string)
			fmt.Fprintf(w, "  %s  %-16s  %s\n", e.Timestamp.Local().Format("15:04:05"), e.EventType, stage)
		}
	}
}
