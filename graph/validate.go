package graph

import "fmt"

// requiredPorts lists the input ports a node type must have satisfied either
// by an incoming edge or by its own Data default before it can no-op safely.
// Ports not listed here fall back to a wallet default or are optional.
var requiredPorts = map[NodeType][]string{
	NodeTransferNative: {"destination", "amount"},
	NodeTransferToken:  {"destinationOwner", "mint", "amount", "decimals"},
	NodeCreateATA:      {"mint"},
	NodeSwap:           {"inputMint", "outputMint", "amount"},
	NodeMemo:           {"message"},
	NodeExecuteConfig:  {"strategy"},
}

// Validate checks invariants I1-I4 plus per-node required-field presence.
// An empty returned slice means the graph is valid.
func Validate(g *BuilderGraph) []error {
	var errs []error

	errs = append(errs, validateAcyclic(g)...)
	errs = append(errs, validateRequiredInputs(g)...)
	errs = append(errs, validateSingleExecuteConfig(g)...)
	errs = append(errs, validateHorizontalGroups(g)...)

	return errs
}

// validateAcyclic enforces I1: the graph must have no cycles. Detection
// reuses the same Kahn sort the compiler uses, so "cycle" here means exactly
// what it means during compile.
func validateAcyclic(g *BuilderGraph) []error {
	_, err := kahnOrder(g)
	if err != nil {
		return []error{err}
	}
	return nil
}

// validateRequiredInputs enforces I2: every required input port is satisfied
// either by an incoming edge or by a present Data entry (including the
// default-from-wallet marker, which is simply an absent key for ports that
// fall back to the wallet and is therefore never "required" here).
func validateRequiredInputs(g *BuilderGraph) []error {
	var errs []error
	for _, n := range g.Nodes {
		for _, port := range requiredPorts[n.Type] {
			if len(g.incomingEdges(n.ID, port)) > 0 {
				continue
			}
			if v, ok := n.Data[port]; ok && v != "" {
				continue
			}
			errs = append(errs, fmt.Errorf("node %q: required input port %q unsatisfied", n.ID, port))
		}
	}
	return errs
}

// validateSingleExecuteConfig enforces I3.
func validateSingleExecuteConfig(g *BuilderGraph) []error {
	count := 0
	for _, n := range g.Nodes {
		if n.Type == NodeExecuteConfig {
			count++
		}
	}
	if count > 1 {
		return []error{fmt.Errorf("graph contains %d execute-config nodes, at most one is allowed", count)}
	}
	return nil
}

// validateHorizontalGroups enforces I4: horizontal edges form disjoint
// connected groups, and each group's anchor (any node in the group) has at
// least one vertical connection tying it to the rest of the graph.
func validateHorizontalGroups(g *BuilderGraph) []error {
	parent := map[string]string{}
	find := func(id string) string {
		for parent[id] != id {
			parent[id] = parent[parent[id]]
			id = parent[id]
		}
		return id
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	for _, n := range g.Nodes {
		parent[n.ID] = n.ID
	}
	for _, e := range g.Edges {
		if e.Kind == EdgeHorizontal {
			union(e.SourceNodeID, e.TargetNodeID)
		}
	}

	groups := map[string][]string{}
	for _, n := range g.Nodes {
		root := find(n.ID)
		groups[root] = append(groups[root], n.ID)
	}

	verticalTouches := map[string]bool{}
	for _, e := range g.Edges {
		if e.Kind == EdgeVertical {
			verticalTouches[e.SourceNodeID] = true
			verticalTouches[e.TargetNodeID] = true
		}
	}

	var errs []error
	for root, members := range groups {
		if len(members) < 2 {
			continue // not a horizontal group, a single untouched node
		}
		anchored := false
		for _, m := range members {
			if verticalTouches[m] {
				anchored = true
				break
			}
		}
		if !anchored {
			errs = append(errs, fmt.Errorf("horizontal group rooted at %q has no vertical anchor", root))
		}
	}
	return errs
}
