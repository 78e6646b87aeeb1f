package kdtree

import (
	"fmt"

	"github.com/hupe1980/geoknn/distance"
	"github.com/hupe1980/geoknn/index"
	"github.com/hupe1980/geoknn/internal/pool"
	"github.com/hupe1980/geoknn/internal/queue"
	"github.com/hupe1980/geoknn/model"
)

// searchFrame is a pending visit. A guarded frame is a far subtree whose
// visit is decided only when it is popped, after its sibling near subtree
// has been fully explored.
type searchFrame struct {
	id      model.RowID
	depth   int
	plane   float64
	guarded bool
}

var framePool = pool.NewSlices[searchFrame](64, 1<<16)

// Search returns up to k nearest keys to probe, in heap storage order.
//
// k == 0 and an empty tree yield an empty result; k larger than the tree
// yields every allowed node. A non-nil filter keeps rejected rows out of the
// result without affecting traversal.
func (t *Tree[K]) Search(probe K, k int, filter index.Filter) ([]index.SearchResult, error) {
	h, err := t.newHeap(k)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return []index.SearchResult{}, nil
	}

	if err := t.search(&probe, h, filter); err != nil {
		return nil, err
	}

	return collect(h), nil
}

func (t *Tree[K]) newHeap(k int) (*queue.BoundedMaxHeap, error) {
	if t.closed {
		return nil, index.ErrClosed
	}
	if k < 0 {
		return nil, index.ErrInvalidK
	}
	n := t.nodes.Len()
	if k == 0 || n == 0 {
		return nil, nil
	}
	return queue.NewBoundedMax(min(k, n)), nil
}

func (t *Tree[K]) search(probe *K, h *queue.BoundedMaxHeap, filter index.Filter) error {
	buf := framePool.Get()
	stack := append(*buf, searchFrame{id: t.root})
	defer func() {
		*buf = stack[:0]
		framePool.Put(buf)
	}()

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		// Branch and bound: the far side can only hold something better than
		// the current worst if the splitting hyperplane is closer than it.
		if f.guarded && !h.Admits(f.plane) {
			continue
		}

		n := t.nodes.Get(f.id)

		if filter.Allows(f.id) {
			h.Offer(t.space.Distance(probe, &n.key), f.id)
		}

		axis := f.depth % t.dims
		ord, err := t.space.Compare(probe, &n.key, axis)
		if err != nil {
			return fmt.Errorf("kdtree: search: %w", err)
		}

		near, far := n.left, n.right
		if ord == distance.Greater {
			near, far = n.right, n.left
		}

		// Far is pushed first so it is popped after the whole near subtree.
		if far.IsValid() {
			stack = append(stack, searchFrame{
				id:      far,
				depth:   f.depth + 1,
				plane:   t.space.AxisDistance(probe, &n.key, axis),
				guarded: true,
			})
		}
		if near.IsValid() {
			stack = append(stack, searchFrame{id: near, depth: f.depth + 1})
		}
	}

	return nil
}

// BruteSearch scores every node against probe. It returns the same set as
// Search (up to ties) and serves as the exact reference.
func (t *Tree[K]) BruteSearch(probe K, k int, filter index.Filter) ([]index.SearchResult, error) {
	h, err := t.newHeap(k)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return []index.SearchResult{}, nil
	}

	n := t.nodes.Len()
	for i := 1; i <= n; i++ {
		id := model.RowID(i)
		if !filter.Allows(id) {
			continue
		}
		h.Offer(t.space.Distance(&probe, &t.nodes.Get(id).key), id)
	}

	return collect(h), nil
}

func collect(h *queue.BoundedMaxHeap) []index.SearchResult {
	items := h.Items()
	results := make([]index.SearchResult, len(items))
	for i, it := range items {
		results[i] = index.SearchResult{ID: it.Node, Distance: it.Distance}
	}
	return results
}
