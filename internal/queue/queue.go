// Package queue provides the fixed-capacity max-heap used as a top-k accumulator.
package queue

import "github.com/hupe1980/geoknn/model"

// Item is a scored reference to a tree node.
// The node is borrowed: the heap never owns or releases it.
type Item struct {
	Node     model.RowID // Node is the arena slot of the candidate.
	Distance float64     // Distance is the priority of the item in the heap.
}

// BoundedMaxHeap keeps the capacity smallest-distance items offered to it.
// The root is always the worst (largest distance) retained item, so admission
// of a new candidate is a single comparison.
//
// Value-based storage, no container/heap indirection.
type BoundedMaxHeap struct {
	items    []Item
	capacity int
}

// NewBoundedMax creates a heap retaining at most capacity items.
// A capacity <= 0 yields a heap that discards everything.
func NewBoundedMax(capacity int) *BoundedMaxHeap {
	if capacity < 0 {
		capacity = 0
	}
	return &BoundedMaxHeap{
		items:    make([]Item, 0, capacity),
		capacity: capacity,
	}
}

// Offer admits (distance, node) if the heap has room, or if distance is
// strictly smaller than the current worst. It reports whether the item was kept.
func (h *BoundedMaxHeap) Offer(distance float64, node model.RowID) bool {
	if !h.Full() {
		h.items = append(h.items, Item{Node: node, Distance: distance})
		h.siftUp(len(h.items) - 1)
		return true
	}

	// Full (or capacity 0): replace the root only when strictly better.
	if !h.Admits(distance) {
		return false
	}

	h.items[0] = Item{Node: node, Distance: distance}
	h.siftDown(0)
	return true
}

// Worst returns the retained item with the largest distance.
func (h *BoundedMaxHeap) Worst() (Item, bool) {
	if len(h.items) == 0 {
		return Item{}, false
	}
	return h.items[0], true
}

// Admits reports whether a candidate at distance would currently be kept.
func (h *BoundedMaxHeap) Admits(distance float64) bool {
	if !h.Full() {
		return true
	}
	worst, ok := h.Worst()
	return ok && distance < worst.Distance
}

// Len returns the number of retained items.
func (h *BoundedMaxHeap) Len() int { return len(h.items) }

// Cap returns the retention capacity.
func (h *BoundedMaxHeap) Cap() int { return h.capacity }

// Full reports whether Len has reached Cap.
func (h *BoundedMaxHeap) Full() bool { return len(h.items) >= h.capacity }

// Items returns the retained items in heap storage order.
// The slice aliases the heap and is invalidated by the next Offer.
func (h *BoundedMaxHeap) Items() []Item { return h.items }

func (h *BoundedMaxHeap) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !(h.items[i].Distance > h.items[p].Distance) {
			return
		}
		h.items[i], h.items[p] = h.items[p], h.items[i]
		i = p
	}
}

func (h *BoundedMaxHeap) siftDown(i int) {
	n := len(h.items)
	for {
		largest := i
		l := 2*i + 1
		r := l + 1
		if l < n && h.items[l].Distance > h.items[largest].Distance {
			largest = l
		}
		if r < n && h.items[r].Distance > h.items[largest].Distance {
			largest = r
		}
		if largest == i {
			return
		}
		h.items[i], h.items[largest] = h.items[largest], h.items[i]
		i = largest
	}
}
