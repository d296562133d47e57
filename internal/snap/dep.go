package snap

import "fmt"

// OutputHandle identifies one output port of one node, used as an edge endpoint.
type OutputHandle struct {
	NodeName   string
	OutputName string
}

// InputDependency records every upstream producer wired to one input port of
// one node. Producer order matches the graph's declaration order; the list is
// never empty, ports without producers are simply absent from the snapshot.
type InputDependency struct {
	InputName       string
	UpstreamOutputs []OutputHandle
}

// NodeInvocation is one node instance in a graph together with its wiring.
type NodeInvocation struct {
	NodeName           string
	NodeDefinitionName string
	Tags               map[string]string
	InputDependencies  []InputDependency
}

// DependencyStructureSnapshot is an immutable record of all input-to-producer
// wiring in a graph. Node names are unique across invocations and every
// referenced handle resolves to an invocation within the same snapshot.
type DependencyStructureSnapshot struct {
	Invocations []NodeInvocation
}

// NodeView is one node instance as exposed by a live graph.
type NodeView interface {
	Name() string
	DefinitionName() string
	Tags() map[string]string
}

// InputWiring pairs one input port with its upstream producers in declaration order.
type InputWiring struct {
	InputName string
	Upstream  []OutputHandle
}

// GraphView is the wiring query capability of a live node graph. The graph is
// assumed acyclic and closed; implementations must return nodes and wiring in
// declaration order.
type GraphView interface {
	Nodes() []NodeView
	// InputWirings returns, for the named node, every input port with at least
	// one upstream producer. Ports fed externally are not listed.
	InputWirings(nodeName string) []InputWiring
}

// BuildDependencyStructureSnapshot walks the graph's current wiring and records
// it invocation by invocation. The result is a pure function of the wiring:
// two calls against an unchanged graph yield structurally equal snapshots.
func BuildDependencyStructureSnapshot(g GraphView) (DependencyStructureSnapshot, error) {
	if g == nil {
		return DependencyStructureSnapshot{}, fmt.Errorf("graph view is required")
	}
	nodes := g.Nodes()
	invocations := make([]NodeInvocation, 0, len(nodes))
	for _, node := range nodes {
		wirings := g.InputWirings(node.Name())
		deps := make([]InputDependency, 0, len(wirings))
		for _, wiring := range wirings {
			if len(wiring.Upstream) == 0 {
				continue
			}
			deps = append(deps, InputDependency{
				InputName:       wiring.InputName,
				UpstreamOutputs: append([]OutputHandle(nil), wiring.Upstream...),
			})
		}
		invocations = append(invocations, NodeInvocation{
			NodeName:           node.Name(),
			NodeDefinitionName: node.DefinitionName(),
			Tags:               cloneTags(node.Tags()),
			InputDependencies:  deps,
		})
	}
	return DependencyStructureSnapshot{Invocations: invocations}, nil
}

func cloneTags(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}
