//go:build !unix

package tq_internal

func applyWorkerPriority(name string, p Priority) {
	priorityLog.Debugf("%s: priority hints are not supported on this platform, ignoring %s", name, p)
}
