package hal

import (
	"fmt"
	"strings"
)

// StateError reports a HAL operation invoked outside its lifecycle state.
// It is raised with panic: a sequencing violation is a programming error.
type StateError struct {
	Op      string
	State   State
	Allowed []State
	Reason  string
}

func (e *StateError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("hal: %s in state %s: %s", e.Op, e.State, e.Reason)
	}

	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = s.String()
	}
	return fmt.Sprintf("hal: %s not allowed in state %s (want %s)", e.Op, e.State, strings.Join(allowed, " or "))
}
