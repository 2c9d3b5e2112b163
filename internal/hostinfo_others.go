//go:build !unix

package tq_internal

import (
	"fmt"
	"time"
)

func HostBootTime() (time.Time, error) {
	return time.Time{}, fmt.Errorf("host boot time not available on this platform")
}
