// Package kdtree implements an unbalanced k-d tree over any distance.Space.
//
// At depth d the tree partitions on axis d % Dims. A key that is not strictly
// greater than a node on the active axis descends left, otherwise right, so
// equal coordinates always go left. The shape depends entirely on insertion
// order; there is no rebalancing and no deletion.
//
// Nodes live in an arena and reference their children by model.RowID. Insert,
// Search, the traversals and Close all use explicit stacks, so a degenerate
// (list-shaped) tree built from sorted input costs heap memory, never call
// stack depth. Sorted input of 100,000 points (height 100,000) is the tested
// stress limit; run the deep tree test with GEOKNN_STRESS_N=100000 to check
// it. Building such a tree is quadratic in the number of points.
//
// # Search
//
// Search is the classic branch-and-bound k-nearest-neighbor walk:
//
//  1. score the node and offer it to a bounded max-heap of capacity k
//  2. descend the near side (where Insert would route the probe)
//  3. once the near side is exhausted, descend the far side only while the
//     heap is not full or the hyperplane distance beats the current worst
//
// # Concurrency
//
// A Tree has no internal locking. Any number of Search/BruteSearch/Walk calls
// may run concurrently as long as no Insert or Close runs at the same time.
package kdtree
