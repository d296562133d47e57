package snap

import (
	"errors"
	"reflect"
	"testing"
)

func TestBuildNodeDefSnapHeader(t *testing.T) {
	def := transformDef()

	got, err := BuildNodeDefSnap(def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "transform_def" || got.Description != "row transform" {
		t.Fatalf("unexpected header %v", got.NodeDefHeader)
	}
	if !reflect.DeepEqual(got.PositionalInputs, []string{"rows"}) {
		t.Fatalf("unexpected positional inputs %v", got.PositionalInputs)
	}
	if !reflect.DeepEqual(got.RequiredResourceKeys, []string{"warehouse"}) {
		t.Fatalf("unexpected resource keys %v", got.RequiredResourceKeys)
	}
	if got.ConfigField == nil || string(got.ConfigField.Raw) != `{"fields":{"batch_size":"Int"}}` {
		t.Fatalf("unexpected config field %v", got.ConfigField)
	}

	input, err := got.InputSnap("rows")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if input.TypeKey != "RowSet" {
		t.Fatalf("unexpected input type key %q", input.TypeKey)
	}
	output, err := got.OutputSnap("result")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !output.IsRequired {
		t.Fatalf("expected required output")
	}

	if _, err := got.InputSnap("nope"); !errors.Is(err, ErrPortNotFound) {
		t.Fatalf("expected ErrPortNotFound, got %v", err)
	}
}

func TestBuildCompositeNodeDefSnap(t *testing.T) {
	pipeline := samplePipeline()
	composite := pipeline.defs[3].(fakeCompositeDef)

	got, err := BuildCompositeNodeDefSnap(composite)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "ingest_def" {
		t.Fatalf("unexpected name %q", got.Name)
	}
	if got.ConfigField == nil || string(got.ConfigField.Raw) != `{"fields":{"source":"String"}}` {
		t.Fatalf("expected config mapping field, got %v", got.ConfigField)
	}
	if len(got.DependencyStructure.Invocations) != 2 {
		t.Fatalf("expected internal wiring with 2 invocations, got %d", len(got.DependencyStructure.Invocations))
	}
	if got.DependencyStructure.Invocations[0].NodeName != "fetch" {
		t.Fatalf("unexpected internal node order: %v", got.DependencyStructure.Invocations)
	}
}

func TestBuildNodeDefinitionsSnapshotPartitions(t *testing.T) {
	pipeline := samplePipeline()

	got, err := BuildNodeDefinitionsSnapshot(pipeline.defs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	atomicNames := make([]string, 0, len(got.NodeDefSnaps))
	for _, defSnap := range got.NodeDefSnaps {
		atomicNames = append(atomicNames, defSnap.Name)
	}
	if !reflect.DeepEqual(atomicNames, []string{"load_def", "transform_def", "join_def"}) {
		t.Fatalf("unexpected atomic partition %v", atomicNames)
	}
	if len(got.CompositeNodeDefSnaps) != 1 || got.CompositeNodeDefSnaps[0].Name != "ingest_def" {
		t.Fatalf("unexpected composite partition %v", got.CompositeNodeDefSnaps)
	}
}

func TestBuildNodeDefinitionsSnapshotDeduplicatesByName(t *testing.T) {
	defs := []NodeDefinitionView{transformDef(), transformDef()}

	got, err := BuildNodeDefinitionsSnapshot(defs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.NodeDefSnaps) != 1 {
		t.Fatalf("expected one definition after dedupe, got %d", len(got.NodeDefSnaps))
	}
}

func TestNodeDefinitionSnapVariants(t *testing.T) {
	pipeline := samplePipeline()
	snapshot, err := BuildNodeDefinitionsSnapshot(pipeline.defs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var all []NodeDefinitionSnap
	for _, defSnap := range snapshot.NodeDefSnaps {
		all = append(all, defSnap)
	}
	for _, defSnap := range snapshot.CompositeNodeDefSnaps {
		all = append(all, defSnap)
	}

	names := map[string]bool{}
	for _, defSnap := range all {
		names[defSnap.Header().Name] = true
		if composite, ok := defSnap.(CompositeNodeDefSnap); ok {
			if len(composite.DependencyStructure.Invocations) == 0 {
				t.Fatalf("composite %q missing internal wiring", composite.Name)
			}
		}
	}
	for _, want := range []string{"load_def", "transform_def", "join_def", "ingest_def"} {
		if !names[want] {
			t.Fatalf("missing definition %q in %v", want, names)
		}
	}
}
