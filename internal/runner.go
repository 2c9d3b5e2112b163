// Demo runner: the main entry point for cmd/taskqueuedemo.
//
// It loads the config file, builds the named queues it describes, posts a
// small set of sample tasks to exercise the immediate/delayed/reply paths,
// and then blocks until a signal is received. Shutdown closes every queue,
// bounded by RunnerConfig.ShutdownMaxWait.

package tq_internal

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/bgp59/logrusx"
)

const (
	CONFIG_FLAG_NAME = "config"
	INSTANCE_DEFAULT = "taskqueuedemo"
)

var (
	// Build info, normally set via init() by the user of this package.
	Version string
	GitInfo string
)

var (
	versionArg = flag.Bool(
		"version",
		false,
		FormatFlagUsage(
			`Print the version and exit`,
		),
	)

	configFileArg = flag.String(
		CONFIG_FLAG_NAME,
		fmt.Sprintf("%s-config.yaml", INSTANCE_DEFAULT),
		FormatFlagUsage(
			`Config file to load`,
		),
	)
)

func init() {
	logrusx.EnableLoggerArgs()
}

var runnerLog = NewCompLogger("runner")

// Run loads the config, starts every queue it names, posts the demo
// workload to each, and blocks until interrupted. Its return value should
// be used as the process exit status.
func Run() int {
	if !flag.Parsed() {
		flag.Parse()
	}

	if *versionArg {
		fmt.Fprintf(os.Stderr, "Version: %s, GitInfo: %s\n", Version, GitInfo)
		return 0
	}

	runnerConfig, queueConfigs, err := LoadConfig(*configFileArg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config file: %v\n", err)
		return 1
	}

	logrusx.ApplySetLoggerArgs(runnerConfig.LoggerConfig)
	if err := SetLogger(runnerConfig.LoggerConfig); err != nil {
		fmt.Fprintf(os.Stderr, "error setting the logger: %v\n", err)
		return 1
	}

	if bootTime, err := HostBootTime(); err == nil {
		runnerLog.Infof("host up since %s (%s ago)", bootTime.Format(time.RFC3339), time.Since(bootTime).Round(time.Second))
	} else {
		runnerLog.Debugf("host boot time unavailable: %v", err)
	}

	if tick, err := GetSysClktck(); err == nil {
		runnerLog.Debugf("host scheduling clock tick: %d Hz", tick)
	}

	if len(queueConfigs) == 0 {
		queueConfigs = map[string]*QueueConfig{"default": DefaultQueueConfig()}
	}

	engines := make(map[string]*Engine, len(queueConfigs))
	for name, qCfg := range queueConfigs {
		engine, err := NewEngine(
			name,
			ParsePriority(qCfg.Priority),
			WithRecoverFromTaskPanic(qCfg.RecoverFromTaskPanic),
		)
		if err != nil {
			runnerLog.Fatalf("queue %q: %v", name, err)
		}
		engines[name] = engine
	}

	runDemoWorkload(engines)

	runnerLog.Infof("running %d queue(s), waiting for signal", len(engines))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	runnerLog.Warnf("%s signal received, shutting down", sig)

	shutdown(engines, runnerConfig.ShutdownMaxWait)

	return 0
}

// runDemoWorkload posts a handful of representative tasks to each queue:
// an immediate one, a delayed one, and a PostAndReply round trip back to
// the same queue. It exists to give the demo binary something observable
// to log, not as a substitute for the package's tests.
func runDemoWorkload(engines map[string]*Engine) {
	for name, engine := range engines {
		engine.Post(FuncTask(func() {
			runnerLog.Infof("%s: immediate task ran", name)
		}))
		engine.PostDelayed(FuncTask(func() {
			runnerLog.Infof("%s: delayed task ran", name)
		}), 200*time.Millisecond)
		engine.PostAndReply(
			FuncTask(func() { runnerLog.Infof("%s: reply-pair task ran", name) }),
			FuncTask(func() { runnerLog.Infof("%s: reply ran", name) }),
			engine,
		)
	}
}

// shutdown closes every engine concurrently, each bounded by maxWait. A
// negative maxWait means wait indefinitely; 0 means do not wait for the
// worker to drain, just force the process down.
func shutdown(engines map[string]*Engine, maxWait time.Duration) {
	if maxWait == 0 {
		runnerLog.Warn("shutdown_max_wait is 0, exiting without waiting for queues to drain")
		return
	}

	var wg sync.WaitGroup
	for name, engine := range engines {
		wg.Add(1)
		go func(name string, engine *Engine) {
			defer wg.Done()
			engine.Close()
			stats := engine.SnapStats()
			runnerLog.Infof("%s: closed, executed=%d panic_recovered=%d",
				name, stats.Executed(), stats.PanicRecovered())
		}(name, engine)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	if maxWait < 0 {
		<-done
		return
	}

	select {
	case <-done:
	case <-time.After(maxWait):
		runnerLog.Warnf("shutdown timed out after %s (%s), exiting anyway", maxWait, FormatShutdownWait(maxWait))
	}
}
