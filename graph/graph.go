// Package graph implements the builder-graph compiler: it turns a
// user-authored DAG of operation nodes into an ordered list of instructions,
// resolving shared resources (lookup tables, derived token accounts, compute
// budgets) along the way.
package graph

// NodeType is the closed set of operation kinds a node may declare. The set
// is closed in the core; new behavior is added through the swap-adapter-style
// capability interface, never by registering new node types at runtime.
type NodeType string

const (
	NodeWallet           NodeType = "wallet"
	NodeTransferNative   NodeType = "transfer-native"
	NodeTransferToken    NodeType = "transfer-token"
	NodeCreateATA        NodeType = "create-associated-account"
	NodeSwap             NodeType = "swap"
	NodeMemo             NodeType = "memo"
	NodeExecuteConfig    NodeType = "execute-config"
)

// EdgeKind classifies an edge as establishing a sequential dependency
// (vertical, distinct batch eligibility) or a co-batching requirement
// (horizontal, same transaction).
type EdgeKind string

const (
	EdgeVertical   EdgeKind = "vertical"
	EdgeHorizontal EdgeKind = "horizontal"
)

// Node is one vertex of a BuilderGraph. Data is the free-form payload the
// node type's compile function interprets; keys are type-specific (e.g.
// "destination", "amount", "mint").
type Node struct {
	ID   string
	Type NodeType
	Data map[string]string
}

// Edge connects a named output port on SourceNodeID to a named input port on
// TargetNodeID.
type Edge struct {
	SourceNodeID string
	SourcePort   string
	TargetNodeID string
	TargetPort   string
	Kind         EdgeKind
}

// BuilderGraph is the user-authored DAG handed to validate/compile.
type BuilderGraph struct {
	Nodes []Node
	Edges []Edge
}

func (g *BuilderGraph) nodeByID(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

func (g *BuilderGraph) incomingEdges(nodeID, port string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.TargetNodeID == nodeID && e.TargetPort == port {
			out = append(out, e)
		}
	}
	return out
}
