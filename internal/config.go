// Runner configuration.

// The configuration is loaded from a YAML file, with the following structure:
//
//  taskqueue_config:
//    shutdown_max_wait: 5s
//    log_config:
//      ...
//  queues:
//    default:
//      priority: normal
//    replies:
//      priority: low
//
// The "taskqueue_config" section maps to the RunnerConfig structure defined
// in this package. The "queues" section is a map of queue name to its
// QueueConfig, used by cmd/taskqueuedemo to build the queues it drives.

package tq_internal

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huandu/go-clone"
	"gopkg.in/yaml.v3"
)

const (
	RUNNER_CONFIG_SECTION_NAME = "taskqueue_config"
	QUEUES_SECTION_NAME        = "queues"

	RUNNER_CONFIG_SHUTDOWN_MAX_WAIT_DEFAULT = 5 * time.Second

	QUEUE_CONFIG_PRIORITY_DEFAULT = "normal"
)

// QueueConfig carries the construction parameters for a single named queue.
type QueueConfig struct {
	// Priority name: "low", "normal" or "high". Anything else is a
	// programming error; it is logged and treated as "normal" (see
	// ParsePriority).
	Priority string `yaml:"priority"`
	// Whether a panicking task should be recovered and logged rather than
	// taking down the worker goroutine. Off by default, matching the
	// fail-loud behavior of the original.
	RecoverFromTaskPanic bool `yaml:"recover_from_task_panic"`
}

func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		Priority:             QUEUE_CONFIG_PRIORITY_DEFAULT,
		RecoverFromTaskPanic: false,
	}
}

// Clone returns a deep copy, so that a single template config can seed many
// queues without them sharing mutable state.
func (cfg *QueueConfig) Clone() *QueueConfig {
	if cfg == nil {
		return nil
	}
	return clone.Clone(cfg).(*QueueConfig)
}

type RunnerConfig struct {
	// How long to wait for the queues to drain at shutdown. A negative value
	// signifies indefinite wait and 0 stands for no wait at all.
	ShutdownMaxWait time.Duration `yaml:"shutdown_max_wait"`

	LoggerConfig *LoggerConfig `yaml:"log_config"`
}

func DefaultRunnerConfig() *RunnerConfig {
	return &RunnerConfig{
		ShutdownMaxWait: RUNNER_CONFIG_SHUTDOWN_MAX_WAIT_DEFAULT,
		LoggerConfig:    DefaultLoggerConfig(),
	}
}

// LoadConfig loads the configuration from the specified YAML file (or buffer,
// for testing) as follows:
//   - the taskqueue_config section is returned as a *RunnerConfig
//   - the queues section is decoded into a map[string]*QueueConfig, each
//     entry pre-seeded with DefaultQueueConfig() before being overridden by
//     whatever the YAML specifies.
func LoadConfig(cfgFile string, buf []byte) (*RunnerConfig, map[string]*QueueConfig, error) {
	if buf == nil {
		f, err := os.Open(cfgFile)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()
		buf, err = io.ReadAll(f)
		if err != nil {
			return nil, nil, fmt.Errorf("file: %q: %v", cfgFile, err)
		}
	}

	docNode := yaml.Node{}
	err := yaml.Unmarshal(buf, &docNode)
	if err != nil {
		return nil, nil, fmt.Errorf("file: %q: %v", cfgFile, err)
	}

	runnerConfig := DefaultRunnerConfig()
	queueConfigs := map[string]*QueueConfig{}

	if docNode.Kind == yaml.DocumentNode && len(docNode.Content) > 0 {
		rootNode := docNode.Content[0]
		if rootNode.Kind != yaml.MappingNode {
			return nil, nil, fmt.Errorf("file: %q: invalid YAML root node %q", cfgFile, rootNode.Tag)
		}
		var toCfg any = nil
		for _, n := range rootNode.Content {
			if n.Kind == yaml.ScalarNode {
				switch n.Value {
				case RUNNER_CONFIG_SECTION_NAME:
					toCfg = runnerConfig
				case QUEUES_SECTION_NAME:
					toCfg = &queueConfigs
				}
				continue
			}
			if n.Kind == yaml.MappingNode && toCfg != nil {
				if rawQueues, ok := toCfg.(*map[string]*QueueConfig); ok {
					rawMap := map[string]yaml.Node{}
					if err = n.Decode(&rawMap); err != nil {
						return nil, nil, fmt.Errorf("file: %q: %v", cfgFile, err)
					}
					for name, queueNode := range rawMap {
						qCfg := DefaultQueueConfig()
						if err = queueNode.Decode(qCfg); err != nil {
							return nil, nil, fmt.Errorf("file: %q: queue %q: %v", cfgFile, name, err)
						}
						(*rawQueues)[name] = qCfg
					}
				} else if err = n.Decode(toCfg); err != nil {
					return nil, nil, fmt.Errorf("file: %q: %v", cfgFile, err)
				}
			}
			toCfg = nil
		}
	}

	return runnerConfig, queueConfigs, nil
}
