//go:build !unix

package tq_internal

import "fmt"

func GetMyCpuTime() (float64, error) {
	return 0, fmt.Errorf("CPU time accounting not available on this platform")
}
