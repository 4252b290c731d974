package graph

import (
	"errors"
	"fmt"
)

// ErrGraphInvariant matches every *GraphInvariantError via errors.Is.
var ErrGraphInvariant = errors.New("graph invariant violated")

// GraphInvariantError reports a broken level or shortcut invariant. It is
// fatal for preprocessing: a partially contracted graph cannot be queried.
type GraphInvariantError struct {
	Node   int32
	Level  int32
	Reason string
}

func (e *GraphInvariantError) Error() string {
	return fmt.Sprintf("graph invariant violated at node %d (level %d): %s", e.Node, e.Level, e.Reason)
}

func (e *GraphInvariantError) Is(target error) bool {
	return target == ErrGraphInvariant
}
