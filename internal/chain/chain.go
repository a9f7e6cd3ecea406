// Package chain implements the chainable bundler configuration builder.
//
// A Chain is an arena of addressable nodes. Every node is reachable by a
// dot/bracket path (output, module.rule[js].use[swc], plugin[define]) and
// re-addressing a path returns the same node, so plugins mutate entries in
// place instead of duplicating them. Entries inside a collection may declare
// Before/After constraints that are resolved when the chain is frozen with
// ToConfig.
//
// A Chain is not safe for concurrent use. Hook execution is sequential, so
// only one handler mutates a chain at a time.
package chain

// Constructor is implemented by bundler plugin constructors passed to Use.
type Constructor interface {
	ConstructorName() string
}

// PluginSpec is the frozen form of a node configured with Use.
type PluginSpec struct {
	Name        string
	Constructor Constructor
	Args        []any
}

// collectionKeys maps collection names to the key they are written under in
// the frozen config.
var collectionKeys = map[string]string{
	"plugin":    "plugins",
	"rule":      "rules",
	"oneOf":     "oneOf",
	"use":       "use",
	"minimizer": "minimizer",
}

// CollectionKey returns the config key a collection is serialized under.
func CollectionKey(collection string) string {
	if k, ok := collectionKeys[collection]; ok {
		return k
	}
	return collection
}

type node struct {
	seg      segment
	path     string
	parent   int
	values   map[string]any
	ctor     Constructor
	args     []any
	used     bool
	before   []string
	after    []string
	children []int
	deleted  bool
}

// Chain is the mutable configuration tree.
type Chain struct {
	nodes []*node
	index map[string]int
}

// New returns an empty chain holding only the root node.
func New() *Chain {
	c := &Chain{index: make(map[string]int)}
	c.nodes = append(c.nodes, &node{parent: -1, values: make(map[string]any)})
	c.index[""] = 0
	return c
}

// Root returns the root node. Values set on it become top-level config keys.
func (c *Chain) Root() *Node { return &Node{c: c, idx: 0} }

// Node returns the node at path, creating it and any missing ancestors.
func (c *Chain) Node(path string) (*Node, error) {
	segs, err := parsePath(path)
	if err != nil {
		return nil, err
	}
	idx := 0
	for _, s := range segs {
		idx = c.child(idx, s)
	}
	return &Node{c: c, idx: idx}, nil
}

// Exists reports whether a live node is addressed by path.
func (c *Chain) Exists(path string) bool {
	segs, err := parsePath(path)
	if err != nil {
		return false
	}
	p := ""
	for _, s := range segs {
		p = joinPath(p, s)
	}
	_, ok := c.index[p]
	return ok
}

// Object returns the nested object key under the root (output, resolve, ...).
func (c *Chain) Object(key string) *Node { return c.Root().Object(key) }

// Plugin returns the named entry of the root plugin collection.
func (c *Chain) Plugin(name string) *Node { return c.Root().Entry("plugin", name) }

// Rule returns the named entry of module.rule.
func (c *Chain) Rule(name string) *Node { return c.Object("module").Entry("rule", name) }

// Paths lists the paths of all live nodes in creation order.
func (c *Chain) Paths() []string {
	out := make([]string, 0, len(c.index))
	for _, n := range c.nodes {
		if n.deleted || n.parent < 0 {
			continue
		}
		out = append(out, n.path)
	}
	return out
}

func (c *Chain) child(parent int, s segment) int {
	path := joinPath(c.nodes[parent].path, s)
	if idx, ok := c.index[path]; ok {
		return idx
	}
	idx := len(c.nodes)
	c.nodes = append(c.nodes, &node{
		seg:    s,
		path:   path,
		parent: parent,
		values: make(map[string]any),
	})
	c.index[path] = idx
	p := c.nodes[parent]
	p.children = append(p.children, idx)
	return idx
}

func (c *Chain) remove(idx int) {
	n := c.nodes[idx]
	if n.deleted {
		return
	}
	for _, ch := range n.children {
		c.remove(ch)
	}
	n.deleted = true
	delete(c.index, n.path)
	if n.parent >= 0 {
		p := c.nodes[n.parent]
		kept := p.children[:0]
		for _, ch := range p.children {
			if ch != idx {
				kept = append(kept, ch)
			}
		}
		p.children = kept
	}
}

// ToConfig freezes the chain into a plain config tree. Collections are
// ordered by their Before/After constraints with ties kept in insertion
// order. A cycle returns a config error naming the entries involved.
func (c *Chain) ToConfig() (map[string]any, error) {
	out, err := c.render(0)
	if err != nil {
		return nil, err
	}
	return out.(map[string]any), nil
}

func (c *Chain) render(idx int) (any, error) {
	n := c.nodes[idx]
	if n.used {
		return PluginSpec{Name: n.seg.key, Constructor: n.ctor, Args: cloneSlice(n.args)}, nil
	}

	out := cloneMap(n.values)
	var collections []string
	grouped := make(map[string][]int)
	for _, ch := range n.children {
		child := c.nodes[ch]
		if child.seg.collection == "" {
			v, err := c.render(ch)
			if err != nil {
				return nil, err
			}
			if existing, ok := out[child.seg.key].(map[string]any); ok {
				if vm, ok := v.(map[string]any); ok {
					v = mergeValue(existing, vm)
				}
			}
			out[child.seg.key] = v
			continue
		}
		if _, ok := grouped[child.seg.collection]; !ok {
			collections = append(collections, child.seg.collection)
		}
		grouped[child.seg.collection] = append(grouped[child.seg.collection], ch)
	}

	for _, coll := range collections {
		ordered, err := c.order(n, coll, grouped[coll])
		if err != nil {
			return nil, err
		}
		items := make([]any, 0, len(ordered))
		for _, ch := range ordered {
			v, err := c.render(ch)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		out[CollectionKey(coll)] = items
	}
	return out, nil
}
