// Command taskqueuedemo is a small driver that builds the queues named in
// its config file and exercises them, for manual inspection of logging,
// priority hints and shutdown behavior. It is not part of the library's
// public API surface.
package main

import (
	"os"

	taskqueue "github.com/go-taskqueue/taskqueue"
)

var mainLog = taskqueue.NewCompLogger("main")

func init() {
	taskqueue.AddCallerSrcPathPrefixToLogger(0)
}

func main() {
	mainLog.Info("start")
	os.Exit(taskqueue.Run())
}
