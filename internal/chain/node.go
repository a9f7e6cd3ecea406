package chain

import (
	"errors"

	rserrors "git.home.luguber.info/inful/rsbuild/internal/errors"
	"git.home.luguber.info/inful/rsbuild/internal/toposort"
)

// Node is a handle to one addressable entry of a Chain. Methods return the
// receiver so calls can be chained.
type Node struct {
	c   *Chain
	idx int
}

func (n *Node) data() *node { return n.c.nodes[n.idx] }

// Path returns the node's canonical path.
func (n *Node) Path() string { return n.data().path }

// Name returns the last path segment name (the entry name for collection
// entries, the key for nested objects).
func (n *Node) Name() string { return n.data().seg.key }

// Object returns the nested object key below n.
func (n *Node) Object(key string) *Node {
	return &Node{c: n.c, idx: n.c.child(n.idx, segment{key: key})}
}

// Entry returns the named entry of collection below n.
func (n *Node) Entry(collection, name string) *Node {
	return &Node{c: n.c, idx: n.c.child(n.idx, segment{key: name, collection: collection})}
}

// Set replaces the value stored under key. Lists are replaced wholesale.
func (n *Node) Set(key string, value any) *Node {
	n.data().values[key] = cloneValue(value)
	return n
}

// Get returns the value stored under key. The returned value is shared with
// the chain and must be treated as read-only.
func (n *Node) Get(key string) any { return n.data().values[key] }

// Has reports whether key holds a value.
func (n *Node) Has(key string) bool {
	_, ok := n.data().values[key]
	return ok
}

// Values returns a copy of the node's own values.
func (n *Node) Values() map[string]any { return cloneMap(n.data().values) }

// Clear removes every value stored on the node. Children are kept.
func (n *Node) Clear() *Node {
	n.data().values = make(map[string]any)
	return n
}

// Merge folds opts into the node: scalars are last-write-wins, lists are
// appended and nested maps merge recursively.
func (n *Node) Merge(opts map[string]any) *Node {
	d := n.data()
	d.values = mergeValue(d.values, opts).(map[string]any)
	return n
}

// Use turns the node into a bundler plugin entry built from ctor and args.
// Using an existing entry replaces its constructor and arguments in place.
func (n *Node) Use(ctor Constructor, args ...any) *Node {
	d := n.data()
	d.ctor = ctor
	d.args = cloneSlice(args)
	d.used = true
	return n
}

// Tap rewrites the arguments of a Use entry.
func (n *Node) Tap(fn func(args []any) []any) *Node {
	d := n.data()
	d.args = cloneSlice(fn(cloneSlice(d.args)))
	return n
}

// Args returns a copy of the constructor arguments of a Use entry.
func (n *Node) Args() []any { return cloneSlice(n.data().args) }

// Constructor returns the constructor set by Use, or nil.
func (n *Node) Constructor() Constructor { return n.data().ctor }

// Before orders n ahead of the sibling entry name.
func (n *Node) Before(name string) *Node {
	d := n.data()
	d.before = appendUnique(d.before, name)
	return n
}

// After orders n behind the sibling entry name.
func (n *Node) After(name string) *Node {
	d := n.data()
	d.after = appendUnique(d.after, name)
	return n
}

// Delete removes n and everything below it. Addressing the same path later
// creates a fresh node.
func (n *Node) Delete() {
	if n.idx == 0 {
		return
	}
	n.c.remove(n.idx)
}

// order sorts the entries of one collection of parent.
func (c *Chain) order(parent *node, collection string, entries []int) ([]int, error) {
	g := toposort.New()
	byName := make(map[string]int, len(entries))
	for _, idx := range entries {
		name := c.nodes[idx].seg.key
		g.AddNode(name)
		byName[name] = idx
	}
	for _, idx := range entries {
		n := c.nodes[idx]
		for _, target := range n.before {
			g.AddEdge(n.seg.key, target)
		}
		for _, target := range n.after {
			g.AddEdge(target, n.seg.key)
		}
	}

	names, err := g.Sort()
	if err != nil {
		var cycle *toposort.CycleError
		if errors.As(err, &cycle) {
			return nil, rserrors.ChainOrderCycle(joinPath(parent.path, segment{key: collection}), cycle.Cycle, err)
		}
		return nil, err
	}
	out := make([]int, 0, len(names))
	for _, name := range names {
		out = append(out, byName[name])
	}
	return out, nil
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// mergeValue merges src into dst and returns the result. dst may be reused.
func mergeValue(dst, src any) any {
	switch s := src.(type) {
	case map[string]any:
		d, ok := dst.(map[string]any)
		if !ok {
			return cloneMap(s)
		}
		if d == nil {
			d = make(map[string]any, len(s))
		}
		for k, v := range s {
			if existing, ok := d[k]; ok {
				d[k] = mergeValue(existing, v)
			} else {
				d[k] = cloneValue(v)
			}
		}
		return d
	case []any:
		if d, ok := dst.([]any); ok {
			return append(d, cloneSlice(s)...)
		}
		return cloneSlice(s)
	case []string:
		if d, ok := dst.([]string); ok {
			return append(d, s...)
		}
		if d, ok := dst.([]any); ok {
			for _, v := range s {
				d = append(d, v)
			}
			return d
		}
		return append([]string(nil), s...)
	default:
		return src
	}
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		return cloneSlice(t)
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneSlice(s []any) []any {
	if s == nil {
		return nil
	}
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = cloneValue(v)
	}
	return out
}
