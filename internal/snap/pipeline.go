package snap

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ConfigSchemaSnapshot is the opaque, externally built snapshot of a pipeline's
// config schema. Carried and re-encoded verbatim.
type ConfigSchemaSnapshot struct {
	Raw json.RawMessage
}

// TypeNamespaceSnapshot is the opaque, externally built snapshot of the type
// namespace a pipeline references. Carried and re-encoded verbatim.
type TypeNamespaceSnapshot struct {
	Raw json.RawMessage
}

// PipelineView is the live-pipeline capability consumed by the snapshot
// assembler. The config-schema and type-namespace sub-snapshots are produced by
// external builders; this package treats them as opaque values.
type PipelineView interface {
	Graph() GraphView
	// NodeDefinitions returns every distinct node definition referenced by the
	// pipeline, in encounter order.
	NodeDefinitions() []NodeDefinitionView
	ConfigSchemaSnapshot() ConfigSchemaSnapshot
	TypeNamespaceSnapshot() TypeNamespaceSnapshot
}

// PipelineSnapshot is a self-contained record of an entire pipeline definition
// at a point in time. It is assembled once and never mutated; a changed
// pipeline definition produces a wholly new snapshot, which is what makes
// structural versioning and diffing across deploys possible.
type PipelineSnapshot struct {
	ConfigSchema        ConfigSchemaSnapshot
	TypeNamespace       TypeNamespaceSnapshot
	NodeDefinitions     NodeDefinitionsSnapshot
	DependencyStructure DependencyStructureSnapshot
}

// BuildPipelineSnapshot is the sole construction path for PipelineSnapshot.
func BuildPipelineSnapshot(p PipelineView) (PipelineSnapshot, error) {
	if p == nil {
		return PipelineSnapshot{}, fmt.Errorf("pipeline view is required")
	}
	depStructure, err := BuildDependencyStructureSnapshot(p.Graph())
	if err != nil {
		return PipelineSnapshot{}, err
	}
	defs, err := BuildNodeDefinitionsSnapshot(p.NodeDefinitions())
	if err != nil {
		return PipelineSnapshot{}, err
	}
	return PipelineSnapshot{
		ConfigSchema:        p.ConfigSchemaSnapshot(),
		TypeNamespace:       p.TypeNamespaceSnapshot(),
		NodeDefinitions:     defs,
		DependencyStructure: depStructure,
	}, nil
}

// SnapshotID returns the sha256 hex digest of the snapshot's canonical
// encoding. Structurally equal snapshots share an id.
func SnapshotID(snapshot PipelineSnapshot) (string, error) {
	raw, err := MarshalPipelineSnapshot(snapshot)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
