package snap

import (
	"errors"
	"fmt"
)

var (
	// ErrInvocationNotFound reports a lookup of a node name that is not part of
	// the indexed snapshot.
	ErrInvocationNotFound = errors.New("node invocation not found")

	// ErrMalformedSnapshot reports a structurally invalid snapshot, such as a
	// duplicated node name or a single-producer query against a fan-in input.
	ErrMalformedSnapshot = errors.New("malformed dependency structure snapshot")
)

// DependencyStructureIndex is an ephemeral name-keyed lookup over one
// DependencyStructureSnapshot. Build it once per snapshot; it is never persisted.
type DependencyStructureIndex struct {
	invocations map[string]NodeInvocation
}

// NewDependencyStructureIndex indexes the snapshot's invocations by node name.
func NewDependencyStructureIndex(snapshot DependencyStructureSnapshot) (*DependencyStructureIndex, error) {
	invocations := make(map[string]NodeInvocation, len(snapshot.Invocations))
	for _, invocation := range snapshot.Invocations {
		if _, ok := invocations[invocation.NodeName]; ok {
			return nil, fmt.Errorf("duplicate node name %q: %w", invocation.NodeName, ErrMalformedSnapshot)
		}
		invocations[invocation.NodeName] = invocation
	}
	return &DependencyStructureIndex{invocations: invocations}, nil
}

// Invocation returns the invocation recorded for nodeName.
func (x *DependencyStructureIndex) Invocation(nodeName string) (NodeInvocation, error) {
	if x == nil {
		return NodeInvocation{}, fmt.Errorf("index not initialized")
	}
	invocation, ok := x.invocations[nodeName]
	if !ok {
		return NodeInvocation{}, fmt.Errorf("node %q: %w", nodeName, ErrInvocationNotFound)
	}
	return invocation, nil
}

// UpstreamOutputs returns every producer recorded for the named input, in
// recorded order. Inputs without producers are never present in a snapshot,
// so querying one fails the same way as querying an unknown input.
func (x *DependencyStructureIndex) UpstreamOutputs(nodeName, inputName string) ([]OutputHandle, error) {
	invocation, err := x.Invocation(nodeName)
	if err != nil {
		return nil, err
	}
	for _, dep := range invocation.InputDependencies {
		if dep.InputName == inputName {
			return dep.UpstreamOutputs, nil
		}
	}
	return nil, fmt.Errorf("input %q not found for node %q: %w", inputName, nodeName, ErrMalformedSnapshot)
}

// UpstreamOutput is the single-producer accessor. It fails unless exactly one
// producer is recorded for the input.
func (x *DependencyStructureIndex) UpstreamOutput(nodeName, inputName string) (OutputHandle, error) {
	outputs, err := x.UpstreamOutputs(nodeName, inputName)
	if err != nil {
		return OutputHandle{}, err
	}
	if len(outputs) != 1 {
		return OutputHandle{}, fmt.Errorf(
			"input %q of node %q has %d upstream outputs, want exactly 1: %w",
			inputName, nodeName, len(outputs), ErrMalformedSnapshot,
		)
	}
	return outputs[0], nil
}
