package loader

import "sort"

// waitGraph is a wait-for graph over package names. An edge waiter -> target
// means waiter cannot advance until target does. Any cycle is a dependency
// cycle in the content.
//
// Owned by the loader side; not safe for concurrent use.
type waitGraph struct {
	edges map[string]map[string]struct{}
}

func newWaitGraph() *waitGraph {
	return &waitGraph{edges: make(map[string]map[string]struct{})}
}

// wouldCauseCycle reports whether adding waiter -> target closes a cycle.
func (g *waitGraph) wouldCauseCycle(waiter, target string) bool {
	if waiter == target {
		return true
	}
	return g.canReach(target, waiter, make(map[string]bool))
}

func (g *waitGraph) addWaiter(waiter, target string) {
	set, ok := g.edges[waiter]
	if !ok {
		set = make(map[string]struct{})
		g.edges[waiter] = set
	}
	set[target] = struct{}{}
}

// removeWaiter drops every edge leaving waiter.
func (g *waitGraph) removeWaiter(waiter string) {
	delete(g.edges, waiter)
}

// removeOwner drops every edge touching name.
func (g *waitGraph) removeOwner(name string) {
	for waiter, set := range g.edges {
		delete(set, name)
		if len(set) == 0 {
			delete(g.edges, waiter)
		}
	}
	delete(g.edges, name)
}

func (g *waitGraph) clear() {
	g.edges = make(map[string]map[string]struct{})
}

func (g *waitGraph) size() int {
	return len(g.edges)
}

func (g *waitGraph) canReach(from, to string, visited map[string]bool) bool {
	if visited[from] {
		return false
	}
	visited[from] = true

	set, ok := g.edges[from]
	if !ok {
		return false
	}
	if _, ok := set[to]; ok {
		return true
	}
	for next := range set {
		if g.canReach(next, to, visited) {
			return true
		}
	}
	return false
}

// path returns the names on a path from -> ... -> to, or nil.
func (g *waitGraph) path(from, to string) []string {
	visited := make(map[string]bool)
	var walk func(cur string) []string
	walk = func(cur string) []string {
		if cur == to {
			return []string{cur}
		}
		if visited[cur] {
			return nil
		}
		visited[cur] = true
		for _, next := range sortedKeys(g.edges[cur]) {
			if rest := walk(next); rest != nil {
				return append([]string{cur}, rest...)
			}
		}
		return nil
	}
	return walk(from)
}

// cycles returns every cycle currently in the graph, each as a list of names.
func (g *waitGraph) cycles() [][]string {
	var out [][]string
	seen := make(map[string]bool)
	waiters := make([]string, 0, len(g.edges))
	for w := range g.edges {
		waiters = append(waiters, w)
	}
	sort.Strings(waiters)

	for _, w := range waiters {
		if seen[w] {
			continue
		}
		for _, next := range sortedKeys(g.edges[w]) {
			if p := g.path(next, w); p != nil {
				for _, n := range p {
					seen[n] = true
				}
				out = append(out, p)
				break
			}
		}
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
