package snap

import "encoding/json"

type fakeNode struct {
	name    string
	defName string
	tags    map[string]string
}

func (n fakeNode) Name() string            { return n.name }
func (n fakeNode) DefinitionName() string  { return n.defName }
func (n fakeNode) Tags() map[string]string { return n.tags }

type fakeGraph struct {
	nodes  []NodeView
	wiring map[string][]InputWiring
}

func (g fakeGraph) Nodes() []NodeView { return g.nodes }

func (g fakeGraph) InputWirings(nodeName string) []InputWiring {
	return g.wiring[nodeName]
}

type fakePort struct {
	name        string
	typeKey     string
	description string
	required    bool
}

func (p fakePort) Name() string        { return p.name }
func (p fakePort) TypeKey() string     { return p.typeKey }
func (p fakePort) Description() string { return p.description }
func (p fakePort) IsRequired() bool    { return p.required }

type fakeNodeDef struct {
	name        string
	description string
	tags        map[string]string
	inputs      []PortView
	outputs     []OutputPortView
	positional  []string
	resources   []string
	configField *ConfigFieldSnap
}

func (d fakeNodeDef) Name() string                  { return d.name }
func (d fakeNodeDef) Description() string           { return d.description }
func (d fakeNodeDef) Tags() map[string]string       { return d.tags }
func (d fakeNodeDef) InputPorts() []PortView        { return d.inputs }
func (d fakeNodeDef) OutputPorts() []OutputPortView { return d.outputs }
func (d fakeNodeDef) PositionalInputs() []string    { return d.positional }
func (d fakeNodeDef) RequiredResourceKeys() []string {
	return d.resources
}
func (d fakeNodeDef) ConfigField() *ConfigFieldSnap { return d.configField }

type fakeCompositeDef struct {
	fakeNodeDef
	graph         GraphView
	configMapping *ConfigFieldSnap
}

func (d fakeCompositeDef) Graph() GraphView { return d.graph }
func (d fakeCompositeDef) ConfigMappingField() *ConfigFieldSnap {
	return d.configMapping
}

type fakePipeline struct {
	graph         GraphView
	defs          []NodeDefinitionView
	configSchema  ConfigSchemaSnapshot
	typeNamespace TypeNamespaceSnapshot
}

func (p fakePipeline) Graph() GraphView                             { return p.graph }
func (p fakePipeline) NodeDefinitions() []NodeDefinitionView        { return p.defs }
func (p fakePipeline) ConfigSchemaSnapshot() ConfigSchemaSnapshot   { return p.configSchema }
func (p fakePipeline) TypeNamespaceSnapshot() TypeNamespaceSnapshot { return p.typeNamespace }

// diamondGraph wires load -> (clean, enrich) -> join, with join.rows fanning in
// from both branches.
func diamondGraph() fakeGraph {
	return fakeGraph{
		nodes: []NodeView{
			fakeNode{name: "load", defName: "load_def", tags: map[string]string{"kind": "source"}},
			fakeNode{name: "clean", defName: "transform_def", tags: map[string]string{}},
			fakeNode{name: "enrich", defName: "transform_def", tags: map[string]string{}},
			fakeNode{name: "join", defName: "join_def", tags: map[string]string{}},
		},
		wiring: map[string][]InputWiring{
			"clean": {
				{InputName: "rows", Upstream: []OutputHandle{{NodeName: "load", OutputName: "result"}}},
			},
			"enrich": {
				{InputName: "rows", Upstream: []OutputHandle{{NodeName: "load", OutputName: "result"}}},
			},
			"join": {
				{InputName: "rows", Upstream: []OutputHandle{
					{NodeName: "clean", OutputName: "result"},
					{NodeName: "enrich", OutputName: "result"},
				}},
			},
		},
	}
}

func transformDef() fakeNodeDef {
	return fakeNodeDef{
		name:        "transform_def",
		description: "row transform",
		tags:        map[string]string{"tier": "core"},
		inputs: []PortView{
			fakePort{name: "rows", typeKey: "RowSet", description: "input rows"},
		},
		outputs: []OutputPortView{
			fakePort{name: "result", typeKey: "RowSet", required: true},
		},
		positional:  []string{"rows"},
		resources:   []string{"warehouse"},
		configField: &ConfigFieldSnap{Raw: json.RawMessage(`{"fields":{"batch_size":"Int"}}`)},
	}
}

func samplePipeline() fakePipeline {
	graph := diamondGraph()
	loadDef := fakeNodeDef{
		name: "load_def",
		tags: map[string]string{},
		outputs: []OutputPortView{
			fakePort{name: "result", typeKey: "RowSet", required: true},
		},
	}
	joinDef := fakeNodeDef{
		name: "join_def",
		tags: map[string]string{},
		inputs: []PortView{
			fakePort{name: "rows", typeKey: "RowSet"},
		},
		outputs: []OutputPortView{
			fakePort{name: "result", typeKey: "RowSet", required: true},
		},
	}
	compositeDef := fakeCompositeDef{
		fakeNodeDef: fakeNodeDef{
			name: "ingest_def",
			tags: map[string]string{},
			outputs: []OutputPortView{
				fakePort{name: "result", typeKey: "RowSet", required: true},
			},
		},
		graph: fakeGraph{
			nodes: []NodeView{
				fakeNode{name: "fetch", defName: "load_def", tags: map[string]string{}},
				fakeNode{name: "parse", defName: "transform_def", tags: map[string]string{}},
			},
			wiring: map[string][]InputWiring{
				"parse": {
					{InputName: "rows", Upstream: []OutputHandle{{NodeName: "fetch", OutputName: "result"}}},
				},
			},
		},
		configMapping: &ConfigFieldSnap{Raw: json.RawMessage(`{"fields":{"source":"String"}}`)},
	}
	return fakePipeline{
		graph: graph,
		defs: []NodeDefinitionView{
			loadDef,
			transformDef(),
			joinDef,
			compositeDef,
		},
		configSchema:  ConfigSchemaSnapshot{Raw: json.RawMessage(`{"allConfigTypes":["Int","String"]}`)},
		typeNamespace: TypeNamespaceSnapshot{Raw: json.RawMessage(`{"allTypes":["RowSet"]}`)},
	}
}
