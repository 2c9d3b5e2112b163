// Worker priority hints.

package tq_internal

var priorityLog = NewCompLogger("priority")

type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

var priorityNameMap = map[Priority]string{
	PriorityLow:    "low",
	PriorityNormal: "normal",
	PriorityHigh:   "high",
}

func (p Priority) String() string {
	if name, ok := priorityNameMap[p]; ok {
		return name
	}
	return "normal"
}

// ParsePriority maps a config/CLI priority name to a Priority. An
// unrecognized name is a programming error: it is logged and Normal is
// substituted rather than returning an error, since a bad priority hint
// should never by itself stop a queue from starting.
func ParsePriority(name string) Priority {
	switch name {
	case "low", "Low", "LOW":
		return PriorityLow
	case "normal", "Normal", "NORMAL", "":
		return PriorityNormal
	case "high", "High", "HIGH":
		return PriorityHigh
	default:
		priorityLog.Warnf("invalid priority %q, substituting %q", name, PriorityNormal)
		return PriorityNormal
	}
}
