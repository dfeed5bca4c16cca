package dedup

// Partition splits groups into connected components: two groups end up in
// the same component when they share a member id, or when one member of each
// appears together in a linked pair (for teams, two members that played each
// other and so share fixture rows). Components can be merged concurrently
// without two workers touching the same row. Group order within a component
// and component order follow the input.
func Partition(groups []Group, linked ...[2]string) [][]Group {
	parent := make(map[string]string)
	var find func(string) string
	find = func(x string) string {
		p, ok := parent[x]
		if !ok {
			parent[x] = x
			return x
		}
		if p == x {
			return x
		}
		root := find(p)
		parent[x] = root
		return root
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	for _, g := range groups {
		for i := 1; i < len(g.MemberIDs); i++ {
			union(g.MemberIDs[0], g.MemberIDs[i])
		}
	}
	for _, pair := range linked {
		union(pair[0], pair[1])
	}

	index := make(map[string]int)
	var out [][]Group
	for _, g := range groups {
		if len(g.MemberIDs) == 0 {
			continue
		}
		root := find(g.MemberIDs[0])
		i, ok := index[root]
		if !ok {
			i = len(out)
			index[root] = i
			out = append(out, nil)
		}
		out[i] = append(out[i], g)
	}
	return out
}
