package submit

import "container/heap"

// resolveConstraints is the Constraint Resolver half of C6. For each
// collected constraint it looks up both endpoints in the registry; a
// missing endpoint means the corresponding operation isn't needed (e.g. a
// push that's skipped because the bookmark is already synced), which is
// expected and simply skipped rather than treated as an error. Resolved
// constraints become directed edges from→to, deduplicated.
func resolveConstraints(constraints []ExecutionConstraint, reg *nodeRegistry) [][]int {
	edges := make(map[[2]int]bool)

	add := func(from, to int, fromOK, toOK bool) {
		if !fromOK || !toOK {
			return
		}
		edges[[2]int{from, to}] = true
	}

	for _, c := range constraints {
		switch v := c.(type) {
		case PushOrder:
			from, fromOK := reg.push[string(v.Parent)]
			to, toOK := reg.push[string(v.Child)]
			add(from, to, fromOK, toOK)
		case PushBeforeRetarget:
			from, fromOK := reg.push[string(v.Base)]
			to, toOK := reg.update[string(v.Pr)]
			add(from, to, fromOK, toOK)
		case RetargetBeforePush:
			from, fromOK := reg.update[string(v.Pr)]
			to, toOK := reg.push[string(v.OldBase)]
			add(from, to, fromOK, toOK)
		case PushBeforeCreate:
			from, fromOK := reg.push[string(v.Push)]
			to, toOK := reg.create[string(v.Create)]
			add(from, to, fromOK, toOK)
		case CreateOrder:
			from, fromOK := reg.create[string(v.Parent)]
			to, toOK := reg.create[string(v.Child)]
			add(from, to, fromOK, toOK)
		}
	}

	byFrom := make(map[int][]int)
	for e := range edges {
		byFrom[e[0]] = append(byFrom[e[0]], e[1])
	}
	maxIdx := -1
	for e := range edges {
		if e[0] > maxIdx {
			maxIdx = e[0]
		}
		if e[1] > maxIdx {
			maxIdx = e[1]
		}
	}
	out := make([][]int, maxIdx+1)
	for from, tos := range byFrom {
		out[from] = tos
	}
	return out
}

// heapItem is a (insertion_order, node_index) pair: the load-bearing key
// that makes the topological sort fully deterministic, so dry runs match
// the eventual real execution byte for byte.
type heapItem struct {
	order int
	index int
}

type minHeap []heapItem

func (h minHeap) Len() int { return len(h) }
func (h minHeap) Less(i, j int) bool {
	if h[i].order != h[j].order {
		return h[i].order < h[j].order
	}
	return h[i].index < h[j].index
}
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)        { *h = append(*h, x.(heapItem)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// scheduleSteps is the Topological Scheduler half of C6. It runs Kahn's
// algorithm seeded from a min-heap keyed by (insertion_order, node_index),
// so that among nodes simultaneously ready, the one inserted earliest
// (and, on a tie, the lowest index) always goes first. If the sorted
// count ends up short of the node count, every node whose indegree never
// reached zero is collected and the scheduler reports a cycle — a bug in
// constraint collection, never a user error.
func scheduleSteps(nodes []executionNode, edgesFrom [][]int) ([]ExecutionStep, error) {
	indegree := make([]int, len(nodes))
	for from, tos := range edgesFrom {
		if from >= len(nodes) {
			continue
		}
		for _, to := range tos {
			indegree[to]++
		}
	}

	h := &minHeap{}
	heap.Init(h)
	for i, n := range nodes {
		if indegree[i] == 0 {
			heap.Push(h, heapItem{order: n.order, index: i})
		}
	}

	var out []ExecutionStep
	done := make([]bool, len(nodes))
	for h.Len() > 0 {
		item := heap.Pop(h).(heapItem)
		out = append(out, nodes[item.index].step)
		done[item.index] = true

		if item.index < len(edgesFrom) {
			for _, to := range edgesFrom[item.index] {
				indegree[to]--
				if indegree[to] == 0 {
					heap.Push(h, heapItem{order: nodes[to].order, index: to})
				}
			}
		}
	}

	if len(out) != len(nodes) {
		var stuck []string
		for i, n := range nodes {
			if !done[i] {
				stuck = append(stuck, describeStep(n.step))
			}
		}
		return nil, ErrSchedulerCycle(stuck)
	}
	return out, nil
}

func describeStep(s ExecutionStep) string {
	switch s.Kind {
	case StepPush:
		return "Push(" + s.Push.Name + ")"
	case StepUpdateBase:
		return "UpdateBase(" + s.Update.Bookmark.Name + ")"
	case StepCreatePr:
		return "CreatePr(" + s.Create.Bookmark.Name + ")"
	case StepPublishPr:
		return "PublishPr(" + s.Publish.HeadRef + ")"
	default:
		return "?"
	}
}
