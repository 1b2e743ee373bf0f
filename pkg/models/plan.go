package models

// NodeMapping is the compiled, executor-resolved view of a node.
type NodeMapping struct {
	NodeID     string         `json:"node_id"`
	TypeID     string         `json:"type_id"`
	ExecutorID string         `json:"executor_id"`
	Label      string         `json:"label,omitempty"`
	Config     map[string]any `json:"config"`
}

// PortMapping records which source port feeds which target port along one edge.
// Empty ports mean the whole upstream output record flows through.
type PortMapping struct {
	EdgeID     string `json:"edge_id"`
	SourcePort string `json:"source_port,omitempty"`
	TargetPort string `json:"target_port,omitempty"`
}

// DependencyMapping lists the port mappings one upstream node contributes.
type DependencyMapping struct {
	Source string        `json:"source"`
	Ports  []PortMapping `json:"ports"`
}

// InputMapping lists the dependencies of a node in incoming edge order.
type InputMapping []DependencyMapping

// Sources returns the dependency node ids in order.
func (m InputMapping) Sources() []string {
	sources := make([]string, 0, len(m))
	for _, dep := range m {
		sources = append(sources, dep.Source)
	}

	return sources
}

// Add appends a port mapping for source, grouping mappings of the same source.
func (m InputMapping) Add(source string, port PortMapping) InputMapping {
	for i := range m {
		if m[i].Source == source {
			m[i].Ports = append(m[i].Ports, port)

			return m
		}
	}

	return append(m, DependencyMapping{Source: source, Ports: []PortMapping{port}})
}

// EdgeMeta is the per-edge metadata the branch evaluator and the pipeline
// readiness rule need.
type EdgeMeta struct {
	EdgeID     string `json:"edge_id"`
	Source     string `json:"source"`
	Target     string `json:"target"`
	SourcePort string `json:"source_port,omitempty"`
	TargetPort string `json:"target_port,omitempty"`
	IsTrigger  bool   `json:"is_trigger"`
	BranchName string `json:"branch_name,omitempty"`
}

// EdgeMetadata lists the incoming and outgoing edges of one node.
type EdgeMetadata struct {
	Incoming []EdgeMeta `json:"incoming"`
	Outgoing []EdgeMeta `json:"outgoing"`
}

// EdgeIndex maps node id to its edge metadata.
type EdgeIndex map[string]EdgeMetadata

// TriggerEdges returns the incoming trigger edges of a node.
func (idx EdgeIndex) TriggerEdges(nodeID string) []EdgeMeta {
	var edges []EdgeMeta

	for _, edge := range idx[nodeID].Incoming {
		if edge.IsTrigger {
			edges = append(edges, edge)
		}
	}

	return edges
}

// CompiledPlan is the static, order-resolved representation of a graph used by
// both runners. It is never mutated after compilation.
type CompiledPlan struct {
	GraphID        string                  `json:"graph_id"`
	ExecutionOrder []string                `json:"execution_order"`
	NodeMappings   map[string]NodeMapping  `json:"node_mappings"`
	InputMappings  map[string]InputMapping `json:"input_mappings"`
	EdgeIndex      EdgeIndex               `json:"edge_index"`
}

// Dependencies returns the distinct upstream node ids of a node, in edge order.
func (p *CompiledPlan) Dependencies(nodeID string) []string {
	seen := make(map[string]bool)

	var deps []string

	for _, edge := range p.EdgeIndex[nodeID].Incoming {
		if !seen[edge.Source] {
			seen[edge.Source] = true
			deps = append(deps, edge.Source)
		}
	}

	return deps
}

// IsSink reports whether the node has no outgoing edges.
func (p *CompiledPlan) IsSink(nodeID string) bool {
	return len(p.EdgeIndex[nodeID].Outgoing) == 0
}
