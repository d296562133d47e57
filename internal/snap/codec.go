package snap

import (
	"encoding/json"
	"fmt"
)

// The payload structs below pin the persisted field names for every snapshot
// record. Snapshots stored today must decode after the domain structs evolve,
// so the wire shape is kept separate from the domain shape, the same way
// execution plans are persisted.

// MarshalPipelineSnapshot serializes a pipeline snapshot with stable field names.
func MarshalPipelineSnapshot(snapshot PipelineSnapshot) ([]byte, error) {
	raw, err := json.Marshal(pipelineSnapshotPayloadFromDomain(snapshot))
	if err != nil {
		return nil, fmt.Errorf("marshal pipeline snapshot: %w", err)
	}
	return raw, nil
}

// UnmarshalPipelineSnapshot parses a persisted pipeline snapshot. Decoding
// needs no access to the live definitions the snapshot was built from.
func UnmarshalPipelineSnapshot(raw []byte) (PipelineSnapshot, error) {
	var payload pipelineSnapshotPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return PipelineSnapshot{}, fmt.Errorf("unmarshal pipeline snapshot: %w", err)
	}
	return payload.toDomain(), nil
}

// MarshalDependencyStructureSnapshot serializes a dependency structure snapshot
// on its own, for consumers that persist composite wiring independently.
func MarshalDependencyStructureSnapshot(snapshot DependencyStructureSnapshot) ([]byte, error) {
	raw, err := json.Marshal(depStructurePayloadFromDomain(snapshot))
	if err != nil {
		return nil, fmt.Errorf("marshal dependency structure snapshot: %w", err)
	}
	return raw, nil
}

// UnmarshalDependencyStructureSnapshot parses a persisted dependency structure snapshot.
func UnmarshalDependencyStructureSnapshot(raw []byte) (DependencyStructureSnapshot, error) {
	var payload depStructurePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return DependencyStructureSnapshot{}, fmt.Errorf("unmarshal dependency structure snapshot: %w", err)
	}
	return payload.toDomain(), nil
}

type outputHandlePayload struct {
	NodeName   string `json:"nodeName"`
	OutputName string `json:"outputName"`
}

type inputDependencyPayload struct {
	InputName       string                `json:"inputName"`
	UpstreamOutputs []outputHandlePayload `json:"upstreamOutputs"`
}

type nodeInvocationPayload struct {
	NodeName           string                   `json:"nodeName"`
	NodeDefinitionName string                   `json:"nodeDefinitionName"`
	Tags               map[string]string        `json:"tags"`
	InputDependencies  []inputDependencyPayload `json:"inputDependencies"`
}

type depStructurePayload struct {
	Invocations []nodeInvocationPayload `json:"invocations"`
}

type inputPortPayload struct {
	Name        string `json:"name"`
	TypeKey     string `json:"typeKey"`
	Description string `json:"description,omitempty"`
}

type outputPortPayload struct {
	Name        string `json:"name"`
	TypeKey     string `json:"typeKey"`
	Description string `json:"description,omitempty"`
	IsRequired  bool   `json:"isRequired"`
}

type nodeDefHeaderPayload struct {
	Name                 string              `json:"name"`
	InputPorts           []inputPortPayload  `json:"inputPorts"`
	OutputPorts          []outputPortPayload `json:"outputPorts"`
	Description          string              `json:"description,omitempty"`
	Tags                 map[string]string   `json:"tags"`
	PositionalInputs     []string            `json:"positionalInputs"`
	RequiredResourceKeys []string            `json:"requiredResourceKeys"`
	ConfigFieldSnap      json.RawMessage     `json:"configFieldSnap,omitempty"`
}

type nodeDefPayload struct {
	nodeDefHeaderPayload
}

type compositeNodeDefPayload struct {
	nodeDefHeaderPayload
	DependencyStructure depStructurePayload `json:"dependencyStructure"`
}

type nodeDefinitionsPayload struct {
	NodeDefSnaps          []nodeDefPayload          `json:"nodeDefSnaps"`
	CompositeNodeDefSnaps []compositeNodeDefPayload `json:"compositeNodeDefSnaps"`
}

type pipelineSnapshotPayload struct {
	ConfigSchemaSnapshot  json.RawMessage        `json:"configSchemaSnapshot"`
	TypeNamespaceSnapshot json.RawMessage        `json:"typeNamespaceSnapshot"`
	NodeDefinitions       nodeDefinitionsPayload `json:"nodeDefinitionsSnapshot"`
	DependencyStructure   depStructurePayload    `json:"dependencyStructureSnapshot"`
}

func depStructurePayloadFromDomain(snapshot DependencyStructureSnapshot) depStructurePayload {
	invocations := make([]nodeInvocationPayload, 0, len(snapshot.Invocations))
	for _, invocation := range snapshot.Invocations {
		deps := make([]inputDependencyPayload, 0, len(invocation.InputDependencies))
		for _, dep := range invocation.InputDependencies {
			outputs := make([]outputHandlePayload, 0, len(dep.UpstreamOutputs))
			for _, handle := range dep.UpstreamOutputs {
				outputs = append(outputs, outputHandlePayload{
					NodeName:   handle.NodeName,
					OutputName: handle.OutputName,
				})
			}
			deps = append(deps, inputDependencyPayload{
				InputName:       dep.InputName,
				UpstreamOutputs: outputs,
			})
		}
		invocations = append(invocations, nodeInvocationPayload{
			NodeName:           invocation.NodeName,
			NodeDefinitionName: invocation.NodeDefinitionName,
			Tags:               invocation.Tags,
			InputDependencies:  deps,
		})
	}
	return depStructurePayload{Invocations: invocations}
}

func (p depStructurePayload) toDomain() DependencyStructureSnapshot {
	invocations := make([]NodeInvocation, 0, len(p.Invocations))
	for _, invocation := range p.Invocations {
		deps := make([]InputDependency, 0, len(invocation.InputDependencies))
		for _, dep := range invocation.InputDependencies {
			outputs := make([]OutputHandle, 0, len(dep.UpstreamOutputs))
			for _, handle := range dep.UpstreamOutputs {
				outputs = append(outputs, OutputHandle{
					NodeName:   handle.NodeName,
					OutputName: handle.OutputName,
				})
			}
			deps = append(deps, InputDependency{
				InputName:       dep.InputName,
				UpstreamOutputs: outputs,
			})
		}
		tags := invocation.Tags
		if tags == nil {
			tags = map[string]string{}
		}
		invocations = append(invocations, NodeInvocation{
			NodeName:           invocation.NodeName,
			NodeDefinitionName: invocation.NodeDefinitionName,
			Tags:               tags,
			InputDependencies:  deps,
		})
	}
	return DependencyStructureSnapshot{Invocations: invocations}
}

func headerPayloadFromDomain(header NodeDefHeader) nodeDefHeaderPayload {
	inputs := make([]inputPortPayload, 0, len(header.InputPorts))
	for _, port := range header.InputPorts {
		inputs = append(inputs, inputPortPayload{
			Name:        port.Name,
			TypeKey:     port.TypeKey,
			Description: port.Description,
		})
	}
	outputs := make([]outputPortPayload, 0, len(header.OutputPorts))
	for _, port := range header.OutputPorts {
		outputs = append(outputs, outputPortPayload{
			Name:        port.Name,
			TypeKey:     port.TypeKey,
			Description: port.Description,
			IsRequired:  port.IsRequired,
		})
	}
	payload := nodeDefHeaderPayload{
		Name:                 header.Name,
		InputPorts:           inputs,
		OutputPorts:          outputs,
		Description:          header.Description,
		Tags:                 header.Tags,
		PositionalInputs:     header.PositionalInputs,
		RequiredResourceKeys: header.RequiredResourceKeys,
	}
	if header.ConfigField != nil {
		payload.ConfigFieldSnap = header.ConfigField.Raw
	}
	return payload
}

func (p nodeDefHeaderPayload) toDomain() NodeDefHeader {
	inputs := make([]InputPortSnap, 0, len(p.InputPorts))
	for _, port := range p.InputPorts {
		inputs = append(inputs, InputPortSnap{
			Name:        port.Name,
			TypeKey:     port.TypeKey,
			Description: port.Description,
		})
	}
	outputs := make([]OutputPortSnap, 0, len(p.OutputPorts))
	for _, port := range p.OutputPorts {
		outputs = append(outputs, OutputPortSnap{
			Name:        port.Name,
			TypeKey:     port.TypeKey,
			Description: port.Description,
			IsRequired:  port.IsRequired,
		})
	}
	header := NodeDefHeader{
		Name:                 p.Name,
		InputPorts:           inputs,
		OutputPorts:          outputs,
		Description:          p.Description,
		Tags:                 p.Tags,
		PositionalInputs:     p.PositionalInputs,
		RequiredResourceKeys: p.RequiredResourceKeys,
	}
	if header.Tags == nil {
		header.Tags = map[string]string{}
	}
	if header.PositionalInputs == nil {
		header.PositionalInputs = []string{}
	}
	if header.RequiredResourceKeys == nil {
		header.RequiredResourceKeys = []string{}
	}
	if len(p.ConfigFieldSnap) > 0 {
		header.ConfigField = &ConfigFieldSnap{Raw: p.ConfigFieldSnap}
	}
	return header
}

func pipelineSnapshotPayloadFromDomain(snapshot PipelineSnapshot) pipelineSnapshotPayload {
	defs := nodeDefinitionsPayload{
		NodeDefSnaps:          make([]nodeDefPayload, 0, len(snapshot.NodeDefinitions.NodeDefSnaps)),
		CompositeNodeDefSnaps: make([]compositeNodeDefPayload, 0, len(snapshot.NodeDefinitions.CompositeNodeDefSnaps)),
	}
	for _, defSnap := range snapshot.NodeDefinitions.NodeDefSnaps {
		defs.NodeDefSnaps = append(defs.NodeDefSnaps, nodeDefPayload{
			nodeDefHeaderPayload: headerPayloadFromDomain(defSnap.NodeDefHeader),
		})
	}
	for _, defSnap := range snapshot.NodeDefinitions.CompositeNodeDefSnaps {
		defs.CompositeNodeDefSnaps = append(defs.CompositeNodeDefSnaps, compositeNodeDefPayload{
			nodeDefHeaderPayload: headerPayloadFromDomain(defSnap.NodeDefHeader),
			DependencyStructure:  depStructurePayloadFromDomain(defSnap.DependencyStructure),
		})
	}
	return pipelineSnapshotPayload{
		ConfigSchemaSnapshot:  snapshot.ConfigSchema.Raw,
		TypeNamespaceSnapshot: snapshot.TypeNamespace.Raw,
		NodeDefinitions:       defs,
		DependencyStructure:   depStructurePayloadFromDomain(snapshot.DependencyStructure),
	}
}

func (p pipelineSnapshotPayload) toDomain() PipelineSnapshot {
	defs := NodeDefinitionsSnapshot{
		NodeDefSnaps:          make([]NodeDefSnap, 0, len(p.NodeDefinitions.NodeDefSnaps)),
		CompositeNodeDefSnaps: make([]CompositeNodeDefSnap, 0, len(p.NodeDefinitions.CompositeNodeDefSnaps)),
	}
	for _, defPayload := range p.NodeDefinitions.NodeDefSnaps {
		defs.NodeDefSnaps = append(defs.NodeDefSnaps, NodeDefSnap{
			NodeDefHeader: defPayload.nodeDefHeaderPayload.toDomain(),
		})
	}
	for _, defPayload := range p.NodeDefinitions.CompositeNodeDefSnaps {
		defs.CompositeNodeDefSnaps = append(defs.CompositeNodeDefSnaps, CompositeNodeDefSnap{
			NodeDefHeader:       defPayload.nodeDefHeaderPayload.toDomain(),
			DependencyStructure: defPayload.DependencyStructure.toDomain(),
		})
	}
	return PipelineSnapshot{
		ConfigSchema:        ConfigSchemaSnapshot{Raw: normalizeRaw(p.ConfigSchemaSnapshot)},
		TypeNamespace:       TypeNamespaceSnapshot{Raw: normalizeRaw(p.TypeNamespaceSnapshot)},
		NodeDefinitions:     defs,
		DependencyStructure: p.DependencyStructure.toDomain(),
	}
}

func normalizeRaw(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}
