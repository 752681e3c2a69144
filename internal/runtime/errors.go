package runtime

import (
	"fmt"

	"github.com/civicchat/orchestra/pkg/domain"
)

// NodeError wraps a failure attributed to a specific agent.
type NodeError struct {
	AgentID domain.AgentID
	Cause   error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("agent '%s': %v", e.AgentID, e.Cause)
}

func (e *NodeError) Unwrap() error {
	return e.Cause
}

// PanicError is the cause recorded when an agent panics.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("agent panicked: %v", e.Value)
}
