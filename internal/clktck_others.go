//go:build !unix

package tq_internal

import "fmt"

func GetSysClktck() (int64, error) {
	return 0, fmt.Errorf("SC_CLK_TCK not available on this platform")
}
