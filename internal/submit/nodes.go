package submit

// executionNode pairs a concrete step with its insertion order, which
// serves as the stable secondary sort key that makes topological order
// deterministic (see scheduleSteps).
type executionNode struct {
	step  ExecutionStep
	order int
}

// nodeRegistry is the four-way lookup from (kind, name) to node index.
// Operations the plan doesn't need are simply never registered; they
// become unresolvable constraint endpoints, which the resolver skips
// (see resolveConstraints) rather than treating as an error.
type nodeRegistry struct {
	push    map[string]int
	update  map[string]int
	create  map[string]int
	publish map[string]int
}

func newNodeRegistry() *nodeRegistry {
	return &nodeRegistry{
		push:    make(map[string]int),
		update:  make(map[string]int),
		create:  make(map[string]int),
		publish: make(map[string]int),
	}
}

// buildExecutionNodes is the Node Builder (C5). It allocates one node per
// operation the plan actually contains. Nodes are appended in stack order
// where applicable — pushes and creates in segment order, then updates,
// then publishes — so that insertion order provides a stable secondary
// key for topological ties.
func buildExecutionNodes(segments []NarrowedBookmarkSegment, pushNeeded map[string]bool, updates []PrBaseUpdate, creates []PrToCreate, publishes []PullRequest) ([]executionNode, *nodeRegistry) {
	reg := newNodeRegistry()
	var nodes []executionNode

	appendNode := func(step ExecutionStep) int {
		idx := len(nodes)
		nodes = append(nodes, executionNode{step: step, order: idx})
		return idx
	}

	// Pushes in stack order. pushNeeded is only ever keyed by names already
	// present in segments (see CreateSubmissionPlan), so every entry is
	// covered by this loop.
	pushed := make(map[string]bool, len(segments))
	for _, seg := range segments {
		name := seg.Bookmark.Name
		if pushNeeded[name] && !pushed[name] {
			idx := appendNode(ExecutionStep{Kind: StepPush, Push: seg.Bookmark})
			reg.push[name] = idx
			pushed[name] = true
		}
	}

	for _, u := range updates {
		idx := appendNode(ExecutionStep{Kind: StepUpdateBase, Update: u})
		reg.update[u.Bookmark.Name] = idx
	}

	// Creates in stack order. creates is only ever populated for names
	// already present in segments, so every entry is covered by this loop.
	createByName := make(map[string]PrToCreate, len(creates))
	for _, c := range creates {
		createByName[c.Bookmark.Name] = c
	}
	created := make(map[string]bool, len(creates))
	for _, seg := range segments {
		name := seg.Bookmark.Name
		if c, ok := createByName[name]; ok && !created[name] {
			idx := appendNode(ExecutionStep{Kind: StepCreatePr, Create: c})
			reg.create[name] = idx
			created[name] = true
		}
	}

	for _, pr := range publishes {
		idx := appendNode(ExecutionStep{Kind: StepPublishPr, Publish: pr})
		reg.publish[pr.HeadRef] = idx
	}

	return nodes, reg
}
