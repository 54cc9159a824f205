package stage

import (
	"strings"

	"slidecast/internal/jobs"
)

// Health summarizes whether a stage can be started.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs a blocked Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// Readiness evaluates the prerequisites for kind without starting anything.
func Readiness(kind jobs.Kind, in Inputs) Health {
	if err := CheckPrerequisites(kind, in); err != nil {
		return Unhealthy(string(kind), lastSegment(err))
	}
	return Healthy(string(kind))
}

func lastSegment(err error) string {
	msg := err.Error()
	if idx := strings.LastIndex(msg, ": "); idx >= 0 {
		return msg[idx+2:]
	}
	return msg
}
