package story

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error reported by the story graph.
//
// Runtime errors include:
//   - Not started: Advance called before a successful Start
//   - Unknown target: a chosen transition points at a missing node
//   - Unknown node: Start named a node that does not exist
//   - Empty graph: Start with no nodes loaded
//   - Duplicate node: two nodes share an id at construction
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// NodeID identifies the node the graph was on (or was asked for).
	NodeID string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeNotStarted indicates Advance was called with no current node.
	ErrCodeNotStarted RuntimeErrorCode = "NOT_STARTED"

	// ErrCodeUnknownTarget indicates a transition targets a missing node.
	ErrCodeUnknownTarget RuntimeErrorCode = "UNKNOWN_TARGET"

	// ErrCodeUnknownNode indicates Start was asked for a missing node.
	ErrCodeUnknownNode RuntimeErrorCode = "UNKNOWN_NODE"

	// ErrCodeEmptyGraph indicates Start was called on a graph with no nodes.
	ErrCodeEmptyGraph RuntimeErrorCode = "EMPTY_GRAPH"

	// ErrCodeDuplicateNode indicates two nodes share an id.
	ErrCodeDuplicateNode RuntimeErrorCode = "DUPLICATE_NODE"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("%s: %s (node=%s)", e.Code, e.Message, e.NodeID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsNotStarted returns true if the error is a not-started error.
// Uses errors.As to handle wrapped errors.
func IsNotStarted(err error) bool {
	return hasCode(err, ErrCodeNotStarted)
}

// IsUnknownTarget returns true if the error is an unknown-target error.
func IsUnknownTarget(err error) bool {
	return hasCode(err, ErrCodeUnknownTarget)
}

// IsUnknownNode returns true if the error is an unknown-node error.
func IsUnknownNode(err error) bool {
	return hasCode(err, ErrCodeUnknownNode)
}

// IsEmptyGraph returns true if the error is an empty-graph error.
func IsEmptyGraph(err error) bool {
	return hasCode(err, ErrCodeEmptyGraph)
}

// NewUnknownTargetError creates a RuntimeError for a dangling transition target.
func NewUnknownTargetError(nodeID, target string, index int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownTarget,
		Message: fmt.Sprintf("transition target %q not found", target),
		NodeID:  nodeID,
		Details: map[string]string{
			"target":     target,
			"transition": fmt.Sprintf("%d", index),
		},
	}
}
