package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeAppleScript(t *testing.T) {
	cases := map[string]string{
		"":                           "",
		"fix: Agitate":               "fix: Agitate",
		`say "now"`:                  `say \"now\"`,
		`C:\tank`:                    `C:\\tank`,
		`\"`:                         `\\\"`,
		"develop: All 4 stages done": "develop: All 4 stages done",
	}
	for in, want := range cases {
		assert.Equal(t, want, escapeAppleScript(in), "input %q", in)
	}
}
