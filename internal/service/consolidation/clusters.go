package consolidation

import "sort"

// clusterSet is a union-find over entity ids used to group entities
// whose elevated risks are linked through qualifying relationships.
type clusterSet struct {
	parent map[string]string
}

func newClusterSet() *clusterSet {
	return &clusterSet{parent: make(map[string]string)}
}

func (c *clusterSet) find(id string) string {
	root, ok := c.parent[id]
	if !ok {
		c.parent[id] = id
		return id
	}
	if root == id {
		return id
	}
	resolved := c.find(root)
	c.parent[id] = resolved
	return resolved
}

func (c *clusterSet) union(a, b string) {
	rootA, rootB := c.find(a), c.find(b)
	if rootA != rootB {
		c.parent[rootB] = rootA
	}
}

// groups returns every cluster with at least two members, each sorted
// for deterministic output.
func (c *clusterSet) groups() [][]string {
	byRoot := make(map[string][]string)
	for id := range c.parent {
		root := c.find(id)
		byRoot[root] = append(byRoot[root], id)
	}

	var out [][]string
	for _, members := range byRoot {
		if len(members) < 2 {
			continue
		}
		sort.Strings(members)
		out = append(out, members)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
