package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// AssertStageFinished checks the text log output for the success line of a
// stage.
func AssertStageFinished(t *testing.T, logs, stage string) bool {
	t.Helper()
	return assert.True(t, stageLogged(logs, "Finished stage", stage),
		"expected a finished log line for stage '%s'", stage)
}

// AssertStageNotStarted checks that a stage never started.
func AssertStageNotStarted(t *testing.T, logs, stage string) bool {
	t.Helper()
	return assert.False(t, stageLogged(logs, "Starting stage", stage),
		"stage '%s' was not expected to start", stage)
}

func stageLogged(logs, msg, stage string) bool {
	needle := " stage=" + stage + " "
	for _, line := range strings.Split(logs, "\n") {
		if strings.Contains(line, msg) && strings.Contains(line, needle) {
			return true
		}
	}
	return false
}
