package kdtree

import (
	"fmt"

	"github.com/hupe1980/geoknn/distance"
	"github.com/hupe1980/geoknn/index"
	"github.com/hupe1980/geoknn/internal/arena"
	"github.com/hupe1980/geoknn/model"
)

// Compile-time check to ensure Tree satisfies the index interface.
var _ index.Index[model.Record] = (*Tree[model.Record])(nil)

type node[K any] struct {
	key   K
	left  model.RowID
	right model.RowID
}

// Options contains configuration options for the tree.
type Options struct {
	// MemoryAcquirer is charged for every arena chunk. Nil disables accounting.
	MemoryAcquirer arena.MemoryAcquirer

	// ChunkSize is the number of nodes per arena chunk.
	ChunkSize int
}

// DefaultOptions contains the default configuration options for the tree.
var DefaultOptions = Options{
	ChunkSize: arena.DefaultChunkSize,
}

// Stats describes the shape and footprint of a tree.
type Stats struct {
	Nodes         int
	Height        int
	Chunks        int
	BytesReserved int64
}

// Tree is a k-d tree keyed by K.
type Tree[K any] struct {
	space  distance.Space[K]
	dims   int
	nodes  *arena.Slab[node[K]]
	root   model.RowID
	height int
	closed bool
}

// New creates an empty tree over space.
func New[K any](space distance.Space[K], optFns ...func(o *Options)) (*Tree[K], error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if space == nil {
		return nil, &index.ErrInvalidDimension{Dimension: 0}
	}
	dims := space.Dims()
	if dims < 1 {
		return nil, &index.ErrInvalidDimension{Dimension: dims}
	}

	slabOpts := []arena.Option{arena.WithChunkSize(opts.ChunkSize)}
	if opts.MemoryAcquirer != nil {
		slabOpts = append(slabOpts, arena.WithMemoryAcquirer(opts.MemoryAcquirer))
	}

	nodes, err := arena.New[node[K]](slabOpts...)
	if err != nil {
		return nil, fmt.Errorf("kdtree: allocate arena: %w", err)
	}

	return &Tree[K]{
		space: space,
		dims:  dims,
		nodes: nodes,
	}, nil
}

// Dims returns the number of partitioning axes.
func (t *Tree[K]) Dims() int { return t.dims }

// Len returns the number of nodes.
func (t *Tree[K]) Len() int {
	if t.closed {
		return 0
	}
	return t.nodes.Len()
}

// Height returns the number of nodes on the longest root-to-leaf path.
func (t *Tree[K]) Height() int {
	if t.closed {
		return 0
	}
	return t.height
}

// Root returns the root row, or model.InvalidRowID for an empty tree.
func (t *Tree[K]) Root() model.RowID {
	if t.closed {
		return model.InvalidRowID
	}
	return t.root
}

// Closed reports whether Close has been called.
func (t *Tree[K]) Closed() bool { return t.closed }

// Stats returns shape and footprint statistics.
func (t *Tree[K]) Stats() Stats {
	if t.closed {
		return Stats{}
	}
	as := t.nodes.Stats()
	return Stats{
		Nodes:         as.Slots,
		Height:        t.height,
		Chunks:        as.ActiveChunks,
		BytesReserved: as.BytesReserved,
	}
}

// Insert routes key to a new leaf. Duplicates are kept as distinct nodes.
// If the arena cannot grow, the error wraps the acquirer's error and the tree
// is left unchanged.
func (t *Tree[K]) Insert(key K) (model.RowID, error) {
	if t.closed {
		return model.InvalidRowID, index.ErrClosed
	}

	if !t.root.IsValid() {
		id, err := t.nodes.Alloc(node[K]{key: key})
		if err != nil {
			return model.InvalidRowID, fmt.Errorf("kdtree: insert: %w", err)
		}
		t.root = id
		t.height = 1
		return id, nil
	}

	cur := t.root
	depth := 0
	for {
		n := t.nodes.Get(cur)

		ord, err := t.space.Compare(&key, &n.key, depth%t.dims)
		if err != nil {
			return model.InvalidRowID, fmt.Errorf("kdtree: insert: %w", err)
		}

		link := &n.left
		if ord == distance.Greater {
			link = &n.right
		}

		if link.IsValid() {
			cur = *link
			depth++
			continue
		}

		// Slot addresses are stable across arena growth, so link stays valid.
		id, err := t.nodes.Alloc(node[K]{key: key})
		if err != nil {
			return model.InvalidRowID, fmt.Errorf("kdtree: insert: %w", err)
		}
		*link = id

		if depth+2 > t.height {
			t.height = depth + 2
		}
		return id, nil
	}
}

// Get returns a copy of the key stored at id.
func (t *Tree[K]) Get(id model.RowID) (K, bool) {
	if t.closed {
		var zero K
		return zero, false
	}
	n := t.nodes.Get(id)
	if n == nil {
		var zero K
		return zero, false
	}
	return n.key, true
}

// Children returns the left and right child rows of id.
func (t *Tree[K]) Children(id model.RowID) (left, right model.RowID) {
	if t.closed {
		return model.InvalidRowID, model.InvalidRowID
	}
	n := t.nodes.Get(id)
	if n == nil {
		return model.InvalidRowID, model.InvalidRowID
	}
	return n.left, n.right
}

type walkFrame struct {
	id    model.RowID
	depth int
}

// Walk visits every node in pre-order until fn returns false.
func (t *Tree[K]) Walk(fn func(id model.RowID, key K, depth int) bool) {
	root := t.Root()
	if !root.IsValid() {
		return
	}

	stack := make([]walkFrame, 0, t.height+1)
	stack = append(stack, walkFrame{id: root})

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !fn(f.id, t.nodes.Get(f.id).key, f.depth) {
			return
		}

		left, right := t.Children(f.id)
		if right.IsValid() {
			stack = append(stack, walkFrame{id: right, depth: f.depth + 1})
		}
		if left.IsValid() {
			stack = append(stack, walkFrame{id: left, depth: f.depth + 1})
		}
	}
}

// InOrder visits every node left subtree first, then the node, then the
// right subtree, until fn returns false.
func (t *Tree[K]) InOrder(fn func(id model.RowID, key K, depth int) bool) {
	if t.closed {
		return
	}

	stack := make([]walkFrame, 0, t.height)
	cur := walkFrame{id: t.root}

	for cur.id.IsValid() || len(stack) > 0 {
		for cur.id.IsValid() {
			stack = append(stack, cur)
			cur = walkFrame{id: t.nodes.Get(cur.id).left, depth: cur.depth + 1}
		}

		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := t.nodes.Get(f.id)
		if !fn(f.id, n.key, f.depth) {
			return
		}
		cur = walkFrame{id: n.right, depth: f.depth + 1}
	}
}

// Close releases every node in post-order (children before their parent)
// and frees the arena. It returns the number of released nodes. Every later
// call on the tree reports index.ErrClosed or an empty result.
func (t *Tree[K]) Close() int {
	if t.closed {
		return 0
	}

	released := 0
	if t.root.IsValid() {
		stack := make([]model.RowID, 0, t.height)
		var last model.RowID
		cur := t.root

		for cur.IsValid() || len(stack) > 0 {
			for cur.IsValid() {
				stack = append(stack, cur)
				cur = t.nodes.Get(cur).left
			}

			top := stack[len(stack)-1]
			n := t.nodes.Get(top)
			if n.right.IsValid() && n.right != last {
				cur = n.right
				continue
			}

			t.nodes.Clear(top)
			released++
			last = top
			stack = stack[:len(stack)-1]
		}
	}

	t.nodes.Free()
	t.root = model.InvalidRowID
	t.height = 0
	t.closed = true

	return released
}
