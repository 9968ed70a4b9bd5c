// Package notify turns timer cues into desktop notifications.
package notify

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/gen2brain/beeep"
)

// Send shows a desktop notification with sound. macOS goes through
// osascript; other platforms through beeep.
func Send(title, message string) error {
	if runtime.GOOS == "darwin" {
		return sendOSAScript(title, message)
	}
	return beeep.Notify(title, message, "")
}

func sendOSAScript(title, message string) error {
	script := fmt.Sprintf(
		`display notification "%s" with title "%s" sound name "default"`,
		escapeAppleScript(message), escapeAppleScript(title),
	)
	cmd := exec.Command("osascript", "-e", script)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("osascript: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Beep plays the system alert sound.
func Beep() error {
	return beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration)
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
