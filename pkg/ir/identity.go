package ir

// hashCons is the GVN identity cache: interns a floating
// pure node against every other node with the same opcode, mode,
// operands, and attribute, so two equal computations in the graph
// collapse onto one node as soon as the second is built.
func (g *Graph) hashCons(n *Node) *Node {
	key := structuralHash(n)
	if h := OpHooks[n.Op]; h != nil && h.Hash != nil {
		key = fnv1a64(key, h.Hash(n))
	}
	bucket := g.identity[key]
	for _, cand := range bucket {
		if structuralEq(cand, n) {
			return cand
		}
	}
	g.identity[key] = append(bucket, n)
	return n
}

// Identity re-runs the opcode's Identity hook against an
// already-constructed node, for a caller that has rewritten operands
// in place via SetIn and wants the construction-time simplifications
// re-applied without rebuilding the node.
func (g *Graph) Identity(n *Node) *Node {
	if h := OpHooks[n.Op]; h != nil && h.Identity != nil {
		return h.Identity(n)
	}
	return n
}
