//go:build unix

package tq_internal

import (
	"fmt"
	"time"

	"github.com/mackerelio/go-osstat/uptime"
)

// HostBootTime returns the host's estimated boot time, for diagnostic
// logging at startup (it helps explain a suspiciously short host uptime
// when triaging a worker that looks like it restarted unexpectedly).
func HostBootTime() (time.Time, error) {
	up, err := uptime.Get()
	if err != nil {
		return time.Time{}, fmt.Errorf("uptime.Get(): %w", err)
	}
	return time.Now().Add(-up), nil
}
