package snap

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrPortNotFound reports a header lookup of an input or output port that the
// definition does not declare.
var ErrPortNotFound = errors.New("port not found")

// ConfigFieldSnap is an opaque, pre-built snapshot of one config field shape,
// produced by the external config-schema builder and carried verbatim.
type ConfigFieldSnap struct {
	Raw json.RawMessage
}

// InputPortSnap describes one input port of a node definition.
type InputPortSnap struct {
	Name        string
	TypeKey     string
	Description string
}

// OutputPortSnap describes one output port of a node definition.
type OutputPortSnap struct {
	Name        string
	TypeKey     string
	Description string
	IsRequired  bool
}

// NodeDefHeader carries the metadata shared by atomic and composite node
// definition snapshots. The two variants share it by struct embedding.
type NodeDefHeader struct {
	Name                 string
	InputPorts           []InputPortSnap
	OutputPorts          []OutputPortSnap
	Description          string
	Tags                 map[string]string
	PositionalInputs     []string
	RequiredResourceKeys []string
	ConfigField          *ConfigFieldSnap
}

// InputSnap returns the named input port snapshot.
func (h NodeDefHeader) InputSnap(name string) (InputPortSnap, error) {
	for _, port := range h.InputPorts {
		if port.Name == name {
			return port, nil
		}
	}
	return InputPortSnap{}, fmt.Errorf("input %q of definition %q: %w", name, h.Name, ErrPortNotFound)
}

// OutputSnap returns the named output port snapshot.
func (h NodeDefHeader) OutputSnap(name string) (OutputPortSnap, error) {
	for _, port := range h.OutputPorts {
		if port.Name == name {
			return port, nil
		}
	}
	return OutputPortSnap{}, fmt.Errorf("output %q of definition %q: %w", name, h.Name, ErrPortNotFound)
}

// NodeDefSnap is the snapshot of an atomic node definition.
type NodeDefSnap struct {
	NodeDefHeader
}

// CompositeNodeDefSnap is the snapshot of a composite node definition. Beyond
// the shared header it records the wiring of the nested graph, which may itself
// contain further composites.
type CompositeNodeDefSnap struct {
	NodeDefHeader
	DependencyStructure DependencyStructureSnapshot
}

// NodeDefinitionSnap is satisfied by both definition snapshot variants. Callers
// that only need header fields treat the variants uniformly; callers needing
// internal wiring type-assert to CompositeNodeDefSnap.
type NodeDefinitionSnap interface {
	Header() NodeDefHeader
}

func (s NodeDefSnap) Header() NodeDefHeader          { return s.NodeDefHeader }
func (s CompositeNodeDefSnap) Header() NodeDefHeader { return s.NodeDefHeader }

// NodeDefinitionsSnapshot partitions every distinct node definition referenced
// by a pipeline into atomic and composite collections, in encounter order.
// Identity is definition name, not invocation name.
type NodeDefinitionsSnapshot struct {
	NodeDefSnaps          []NodeDefSnap
	CompositeNodeDefSnaps []CompositeNodeDefSnap
}

// PortView exposes one port of a live node definition.
type PortView interface {
	Name() string
	TypeKey() string
	Description() string
}

// OutputPortView additionally reports whether the output is always produced.
type OutputPortView interface {
	PortView
	IsRequired() bool
}

// NodeDefinitionView is the definition-metadata capability consumed by the
// definition snapshot builder.
type NodeDefinitionView interface {
	Name() string
	Description() string
	Tags() map[string]string
	InputPorts() []PortView
	OutputPorts() []OutputPortView
	PositionalInputs() []string
	RequiredResourceKeys() []string
	// ConfigField returns the pre-built config field snapshot, or nil when the
	// definition takes no config.
	ConfigField() *ConfigFieldSnap
}

// CompositeNodeDefinitionView is implemented by definitions that wrap a nested graph.
type CompositeNodeDefinitionView interface {
	NodeDefinitionView
	Graph() GraphView
	// ConfigMappingField returns the config-mapping field snapshot, or nil when
	// the composite declares no mapping.
	ConfigMappingField() *ConfigFieldSnap
}

// BuildNodeDefSnap snapshots an atomic node definition.
func BuildNodeDefSnap(def NodeDefinitionView) (NodeDefSnap, error) {
	if def == nil {
		return NodeDefSnap{}, fmt.Errorf("node definition view is required")
	}
	return NodeDefSnap{NodeDefHeader: buildHeader(def, def.ConfigField())}, nil
}

// BuildCompositeNodeDefSnap snapshots a composite definition, including the
// wiring of its internal graph. When the composite declares a config mapping,
// the mapping's field snapshot takes the place of the per-node config field.
func BuildCompositeNodeDefSnap(def CompositeNodeDefinitionView) (CompositeNodeDefSnap, error) {
	if def == nil {
		return CompositeNodeDefSnap{}, fmt.Errorf("composite node definition view is required")
	}
	depStructure, err := BuildDependencyStructureSnapshot(def.Graph())
	if err != nil {
		return CompositeNodeDefSnap{}, fmt.Errorf("snapshot internal graph of %q: %w", def.Name(), err)
	}
	return CompositeNodeDefSnap{
		NodeDefHeader:       buildHeader(def, def.ConfigMappingField()),
		DependencyStructure: depStructure,
	}, nil
}

// BuildNodeDefinitionsSnapshot partitions the pipeline's distinct definitions
// by variant, preserving encounter order. Repeated definition names are
// recorded once.
func BuildNodeDefinitionsSnapshot(defs []NodeDefinitionView) (NodeDefinitionsSnapshot, error) {
	seen := make(map[string]struct{}, len(defs))
	out := NodeDefinitionsSnapshot{
		NodeDefSnaps:          make([]NodeDefSnap, 0, len(defs)),
		CompositeNodeDefSnaps: make([]CompositeNodeDefSnap, 0),
	}
	for _, def := range defs {
		if def == nil {
			return NodeDefinitionsSnapshot{}, fmt.Errorf("node definition view is required")
		}
		if _, ok := seen[def.Name()]; ok {
			continue
		}
		seen[def.Name()] = struct{}{}
		if composite, ok := def.(CompositeNodeDefinitionView); ok {
			defSnap, err := BuildCompositeNodeDefSnap(composite)
			if err != nil {
				return NodeDefinitionsSnapshot{}, err
			}
			out.CompositeNodeDefSnaps = append(out.CompositeNodeDefSnaps, defSnap)
			continue
		}
		defSnap, err := BuildNodeDefSnap(def)
		if err != nil {
			return NodeDefinitionsSnapshot{}, err
		}
		out.NodeDefSnaps = append(out.NodeDefSnaps, defSnap)
	}
	return out, nil
}

func buildHeader(def NodeDefinitionView, configField *ConfigFieldSnap) NodeDefHeader {
	inputs := def.InputPorts()
	inputSnaps := make([]InputPortSnap, 0, len(inputs))
	for _, port := range inputs {
		inputSnaps = append(inputSnaps, InputPortSnap{
			Name:        port.Name(),
			TypeKey:     port.TypeKey(),
			Description: port.Description(),
		})
	}
	outputs := def.OutputPorts()
	outputSnaps := make([]OutputPortSnap, 0, len(outputs))
	for _, port := range outputs {
		outputSnaps = append(outputSnaps, OutputPortSnap{
			Name:        port.Name(),
			TypeKey:     port.TypeKey(),
			Description: port.Description(),
			IsRequired:  port.IsRequired(),
		})
	}
	return NodeDefHeader{
		Name:                 def.Name(),
		InputPorts:           inputSnaps,
		OutputPorts:          outputSnaps,
		Description:          def.Description(),
		Tags:                 cloneTags(def.Tags()),
		PositionalInputs:     append([]string{}, def.PositionalInputs()...),
		RequiredResourceKeys: append([]string{}, def.RequiredResourceKeys()...),
		ConfigField:          cloneConfigField(configField),
	}
}

func cloneConfigField(field *ConfigFieldSnap) *ConfigFieldSnap {
	if field == nil {
		return nil
	}
	clone := ConfigFieldSnap{Raw: append(json.RawMessage(nil), field.Raw...)}
	return &clone
}
