// Package interval provides a generic augmented interval tree used as an
// overlap index over a mutable population. Insert and Delete are O(log N);
// QueryOverlap is O(log N + k) for k reported intervals.
//
// The tree is a red-black tree keyed by (Low, High) whose nodes carry the
// maximum right endpoint of their subtree (maxHigh), which lets queries
// prune whole subtrees.
package interval

import "cmp"

// Interval is a closed range [Low, High] carrying a Value, typically the
// position of the interval in the population being indexed.
type Interval[K cmp.Ordered, V comparable] struct {
	Low   K
	High  K
	Value V
}

// Tree is an augmented interval tree supporting overlap queries.
type Tree[K cmp.Ordered, V comparable] struct {
	root *node[K, V]
	size int
}

type node[K cmp.Ordered, V comparable] struct {
	interval    Interval[K, V]
	maxHigh     K
	left, right *node[K, V]
	parent      *node[K, V]
	color       color
}

// color represents the red-black tree node color.
type color bool

// Red-black tree color constants.
const (
	red   color = false
	black color = true
)

// New creates an empty interval tree.
func New[K cmp.Ordered, V comparable]() *Tree[K, V] {
	return &Tree[K, V]{}
}

// Len returns the number of intervals in the tree.
func (t *Tree[K, V]) Len() int {
	return t.size
}

// Insert adds an interval [low, high] with the given value to the tree.
func (t *Tree[K, V]) Insert(low, high K, value V) {
	n := &node[K, V]{
		interval: Interval[K, V]{Low: low, High: high, Value: value},
		maxHigh:  high,
		color:    red,
	}

	t.bstInsert(n)
	t.insertFixup(n)
	t.size++
}

// Delete removes one interval matching [low, high, value] from the tree.
// Returns true if the interval was found and removed, false otherwise.
func (t *Tree[K, V]) Delete(low, high K, value V) bool {
	n := t.findNode(low, high, value)
	if n == nil {
		return false
	}

	t.deleteNode(n)
	t.size--

	return true
}

// Replace moves the interval [oldLow, oldHigh] carrying value to
// [newLow, newHigh]. It reports false, leaving the tree unchanged, when no
// such interval is stored.
func (t *Tree[K, V]) Replace(oldLow, oldHigh, newLow, newHigh K, value V) bool {
	if !t.Delete(oldLow, oldHigh, value) {
		return false
	}

	t.Insert(newLow, newHigh, value)

	return true
}

// QueryOverlap returns all intervals that overlap with the query range [low, high].
// An interval [a, b] overlaps [low, high] when a <= high AND b >= low.
func (t *Tree[K, V]) QueryOverlap(low, high K) []Interval[K, V] {
	if t.root == nil {
		return nil
	}

	var results []Interval[K, V]

	t.collectOverlap(t.root, low, high, &results)

	return results
}

// bstInsert performs standard BST insertion by Low (then High for ties).
func (t *Tree[K, V]) bstInsert(n *node[K, V]) {
	if t.root == nil {
		t.root = n

		return
	}

	current := t.root

	for {
		updateMaxHigh(current, n.interval.High)

		if compareIntervals(n.interval, current.interval) < 0 {
			if current.left == nil {
				current.left = n
				n.parent = current

				return
			}

			current = current.left
		} else {
			if current.right == nil {
				current.right = n
				n.parent = current

				return
			}

			current = current.right
		}
	}
}

// findNode locates the node matching the exact interval and value.
func (t *Tree[K, V]) findNode(low, high K, value V) *node[K, V] {
	target := Interval[K, V]{Low: low, High: high, Value: value}

	return t.findExact(t.root, target)
}

// findExact searches for an exact interval match in the subtree.
func (t *Tree[K, V]) findExact(n *node[K, V], target Interval[K, V]) *node[K, V] {
	if n == nil {
		return nil
	}

	order := compareIntervals(target, n.interval)

	if order == 0 && n.interval.Value == target.Value {
		return n
	}

	if order < 0 {
		return t.findExact(n.left, target)
	}

	// Equal keys with a different value may sit on either side.
	if order == 0 {
		if found := t.findExact(n.left, target); found != nil {
			return found
		}
	}

	return t.findExact(n.right, target)
}

// deleteNode removes a node from the tree using standard RB-tree deletion.
func (t *Tree[K, V]) deleteNode(n *node[K, V]) {
	// If node has two children, swap with in-order successor.
	if n.left != nil && n.right != nil {
		succ := minimum(n.right)
		n.interval = succ.interval
		n = succ
	}

	// n now has at most one child.
	child := n.left
	if child == nil {
		child = n.right
	}

	needFixup := n.color == black

	t.transplant(n, child)
	t.propagateMaxHigh(n.parent)

	if !needFixup {
		return
	}

	if child != nil {
		t.deleteFixup(child)

		return
	}

	if n.parent != nil {
		t.deleteFixupLeaf(n.parent, n == n.parent.left)
		detachFromParent(n, t)
	}
}

// transplant replaces node u with node v in the tree.
func (t *Tree[K, V]) transplant(u, v *node[K, V]) {
	switch {
	case u.parent == nil:
		t.root = v
	case u == u.parent.left:
		u.parent.left = v
	default:
		u.parent.right = v
	}

	if v != nil {
		v.parent = u.parent
	}
}

// detachFromParent removes any remaining reference to n from its parent.
func detachFromParent[K cmp.Ordered, V comparable](n *node[K, V], t *Tree[K, V]) {
	if n.parent == nil {
		return
	}

	switch n {
	case n.parent.left:
		n.parent.left = nil
	case n.parent.right:
		n.parent.right = nil
	}

	t.propagateMaxHigh(n.parent)
}

// insertFixup restores red-black properties after insertion.
func (t *Tree[K, V]) insertFixup(n *node[K, V]) {
	for n != t.root && nodeColor(n.parent) == red {
		parent := n.parent

		grandparent := parent.parent
		if grandparent == nil {
			break
		}

		isLeft := parent == grandparent.left
		n = t.insertFixupCase(n, parent, grandparent, isLeft)
	}

	t.root.color = black
}

// insertFixupCase handles one side of the insert fixup.
// When leftCase is true, parent is grandparent.left; otherwise parent is grandparent.right.
func (t *Tree[K, V]) insertFixupCase(n, parent, grandparent *node[K, V], leftCase bool) *node[K, V] {
	uncle := childOf(grandparent, !leftCase)

	if nodeColor(uncle) == red {
		parent.color = black
		uncle.color = black
		grandparent.color = red

		return grandparent
	}

	// Check if n is the "inner" child.
	if n == childOf(parent, !leftCase) {
		t.rotate(parent, leftCase)
		n, parent = parent, n
	}

	parent.color = black
	grandparent.color = red
	t.rotate(grandparent, !leftCase)

	return n
}

// deleteFixup restores red-black properties after deletion (non-nil child case).
func (t *Tree[K, V]) deleteFixup(x *node[K, V]) {
	for x != t.root && nodeColor(x) == black {
		if x.parent == nil {
			break
		}

		isLeft := x == x.parent.left
		x = t.deleteFixupCase(x.parent, isLeft)
	}

	if x != nil {
		x.color = black
	}
}

// deleteFixupLeaf restores red-black properties when a black leaf was deleted.
func (t *Tree[K, V]) deleteFixupLeaf(parent *node[K, V], wasLeft bool) {
	for parent != nil {
		result := t.deleteFixupCaseLeaf(parent, wasLeft)
		if result.done {
			break
		}

		// Move up the tree.
		if parent.parent != nil {
			wasLeft = parent == parent.parent.left
		}

		parent = parent.parent
	}
}

// fixupResult captures whether the fixup loop should continue.
type fixupResult struct {
	done bool
}

// deleteFixupCaseLeaf handles one iteration of delete fixup for a nil leaf.
func (t *Tree[K, V]) deleteFixupCaseLeaf(parent *node[K, V], isLeft bool) fixupResult {
	sibling := childOf(parent, !isLeft)
	if sibling == nil {
		return fixupResult{done: false}
	}

	if nodeColor(sibling) == red {
		sibling.color = black
		parent.color = red
		t.rotate(parent, isLeft)

		sibling = childOf(parent, !isLeft)

		if sibling == nil {
			return fixupResult{done: true}
		}
	}

	return t.fixupRecolor(parent, sibling, isLeft)
}

// fixupRecolor handles the recolor/rotation sub-cases of delete fixup.
func (t *Tree[K, V]) fixupRecolor(parent, sibling *node[K, V], isLeft bool) fixupResult {
	outerChild := childOf(sibling, !isLeft)
	innerChild := childOf(sibling, isLeft)

	if nodeColor(innerChild) == black && nodeColor(outerChild) == black {
		sibling.color = red

		if parent.color == red {
			parent.color = black

			return fixupResult{done: true}
		}

		return fixupResult{done: false}
	}

	return t.fixupRotate(parent, sibling, isLeft)
}

// fixupRotate performs the final rotation case of delete fixup.
func (t *Tree[K, V]) fixupRotate(parent, sibling *node[K, V], isLeft bool) fixupResult {
	outerChild := childOf(sibling, !isLeft)

	if nodeColor(outerChild) == black {
		setBlack(childOf(sibling, isLeft))
		sibling.color = red
		t.rotate(sibling, !isLeft)

		sibling = childOf(parent, !isLeft)
		outerChild = childOf(sibling, !isLeft)
	}

	if sibling != nil {
		sibling.color = parent.color
	}

	parent.color = black

	setBlack(outerChild)
	t.rotate(parent, isLeft)

	return fixupResult{done: true}
}

// deleteFixupCase handles one iteration of delete fixup for a real child node.
func (t *Tree[K, V]) deleteFixupCase(parent *node[K, V], isLeft bool) *node[K, V] {
	sibling := childOf(parent, !isLeft)
	if sibling == nil {
		return parent
	}

	if nodeColor(sibling) == red {
		sibling.color = black
		parent.color = red
		t.rotate(parent, isLeft)

		sibling = childOf(parent, !isLeft)
	}

	if sibling == nil {
		return parent
	}

	outerChild := childOf(sibling, !isLeft)
	innerChild := childOf(sibling, isLeft)

	if nodeColor(innerChild) == black && nodeColor(outerChild) == black {
		sibling.color = red

		return parent
	}

	if nodeColor(outerChild) == black {
		setBlack(innerChild)

		sibling.color = red
		t.rotate(sibling, !isLeft)

		sibling = childOf(parent, !isLeft)
	}

	if sibling != nil {
		sibling.color = parent.color
	}

	parent.color = black

	setBlack(childOf(sibling, !isLeft))
	t.rotate(parent, isLeft)

	return t.root
}

// rotate performs a rotation at node n. When left is true, rotates left;
// otherwise rotates right. Maintains maxHigh augmentation.
func (t *Tree[K, V]) rotate(n *node[K, V], left bool) {
	var pivot *node[K, V]

	if left {
		pivot = n.right
		n.right = pivot.left

		if pivot.left != nil {
			pivot.left.parent = n
		}

		pivot.left = n
	} else {
		pivot = n.left
		n.left = pivot.right

		if pivot.right != nil {
			pivot.right.parent = n
		}

		pivot.right = n
	}

	pivot.parent = n.parent

	switch {
	case n.parent == nil:
		t.root = pivot
	case n == n.parent.left:
		n.parent.left = pivot
	default:
		n.parent.right = pivot
	}

	n.parent = pivot

	// Recalculate maxHigh bottom-up: n first, then pivot.
	recalcMaxHigh(n)
	recalcMaxHigh(pivot)
}

// collectOverlap recursively collects intervals overlapping [low, high].
func (t *Tree[K, V]) collectOverlap(n *node[K, V], low, high K, results *[]Interval[K, V]) {
	if n == nil {
		return
	}

	// Prune: if maxHigh in this subtree is less than query low, no overlap possible.
	if n.maxHigh < low {
		return
	}

	// Search left subtree.
	t.collectOverlap(n.left, low, high, results)

	// Check current node's interval: overlaps when a <= high AND b >= low.
	if n.interval.Low <= high && n.interval.High >= low {
		*results = append(*results, n.interval)
	}

	// Prune right: if node's Low > high, no right child can overlap.
	if n.interval.Low > high {
		return
	}

	// Search right subtree.
	t.collectOverlap(n.right, low, high, results)
}

// compareIntervals orders intervals by Low, then High.
func compareIntervals[K cmp.Ordered, V comparable](a, b Interval[K, V]) int {
	if c := cmp.Compare(a.Low, b.Low); c != 0 {
		return c
	}

	return cmp.Compare(a.High, b.High)
}

// nodeColor returns the color of a node, treating nil as black.
func nodeColor[K cmp.Ordered, V comparable](n *node[K, V]) color {
	if n == nil {
		return black
	}

	return n.color
}

// setBlack sets a node's color to black if it is non-nil.
func setBlack[K cmp.Ordered, V comparable](n *node[K, V]) {
	if n != nil {
		n.color = black
	}
}

// childOf returns the left or right child of a node.
// When left is true, returns n.left; otherwise n.right.
func childOf[K cmp.Ordered, V comparable](n *node[K, V], left bool) *node[K, V] {
	if n == nil {
		return nil
	}

	if left {
		return n.left
	}

	return n.right
}

// recalcMaxHigh recalculates a node's maxHigh from its interval and children.
func recalcMaxHigh[K cmp.Ordered, V comparable](n *node[K, V]) {
	if n == nil {
		return
	}

	m := n.interval.High

	if n.left != nil && n.left.maxHigh > m {
		m = n.left.maxHigh
	}

	if n.right != nil && n.right.maxHigh > m {
		m = n.right.maxHigh
	}

	n.maxHigh = m
}

// updateMaxHigh updates a node's maxHigh if the given value is larger.
func updateMaxHigh[K cmp.Ordered, V comparable](n *node[K, V], high K) {
	if high > n.maxHigh {
		n.maxHigh = high
	}
}

// propagateMaxHigh recalculates maxHigh from the given node up to the root.
func (t *Tree[K, V]) propagateMaxHigh(n *node[K, V]) {
	for n != nil {
		recalcMaxHigh(n)
		n = n.parent
	}
}

// minimum returns the leftmost node in the subtree rooted at n.
func minimum[K cmp.Ordered, V comparable](n *node[K, V]) *node[K, V] {
	for n.left != nil {
		n = n.left
	}

	return n
}
