package browser

import (
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// ProcessChecker reports whether a process with one of the given names is
// currently running. The check is inherently racy with respect to the
// browser's own lifecycle; callers treat it as a best-effort gate, not a
// guaranteed exclusion.
type ProcessChecker interface {
	IsRunning(processNames []string) bool
}

// SystemProcessChecker enumerates OS processes.
type SystemProcessChecker struct{}

// IsRunning reports whether any running process matches one of the names,
// case-insensitively.
func (SystemProcessChecker) IsRunning(processNames []string) bool {
	want := make(map[string]bool, len(processNames))
	for _, name := range processNames {
		want[strings.ToLower(name)] = true
	}

	procs, err := process.Processes()
	if err != nil {
		return false
	}
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}
		if want[strings.ToLower(name)] {
			return true
		}
	}
	return false
}
