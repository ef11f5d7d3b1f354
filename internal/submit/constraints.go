package submit

// PrToCreate describes a prospective CreatePr operation.
type PrToCreate struct {
	Bookmark   Bookmark
	BaseBranch string
	Title      string
	Draft      bool
}

// PrBaseUpdate describes a prospective UpdateBase operation.
type PrBaseUpdate struct {
	Bookmark     Bookmark
	CurrentBase  string
	ExpectedBase string
	Pr           PullRequest
}

// StepKind tags the variant held by an ExecutionStep.
type StepKind int

const (
	StepPush StepKind = iota
	StepUpdateBase
	StepCreatePr
	StepPublishPr
)

// ExecutionStep is a concrete operation chosen for execution. Exactly one
// of the payload fields is meaningful, selected by Kind — this is Go's
// idiom for the tagged union the source expresses as a Rust enum.
type ExecutionStep struct {
	Kind    StepKind
	Push    Bookmark
	Update  PrBaseUpdate
	Create  PrToCreate
	Publish PullRequest
}

// BookmarkName returns the bookmark this step concerns, used to key the
// running bookmark→PR map and to filter plans down to a selection.
func (s ExecutionStep) BookmarkName() string {
	switch s.Kind {
	case StepPush:
		return s.Push.Name
	case StepUpdateBase:
		return s.Update.Bookmark.Name
	case StepCreatePr:
		return s.Create.Bookmark.Name
	case StepPublishPr:
		return s.Publish.HeadRef
	default:
		return ""
	}
}

// PushRef, UpdateRef and CreateRef are newtype-wrapped bookmark names, one
// per step kind a constraint can reference. Keeping them distinct types
// (rather than bare strings) prevents constructing a constraint that pairs
// endpoints of the wrong kind — e.g. a PushBeforeCreate naming two
// CreateRefs — at compile time. A registry keyed by (kind, name) is the
// canonical way to resolve them to node indices (see NodeRegistry).
type PushRef string
type UpdateRef string
type CreateRef string

// ExecutionConstraint is a declarative ordering obligation between two
// prospective operations. Constraints are pure values holding names, not
// indices; indices only exist once C5 has materialized which operations
// the plan actually needs.
type ExecutionConstraint interface {
	isExecutionConstraint()
}

// PushOrder requires the ancestor's push before the descendant's push.
type PushOrder struct {
	Parent PushRef
	Child  PushRef
}

// PushBeforeRetarget requires a PR's new base ref to exist on the remote
// before the PR is retargeted to it.
type PushBeforeRetarget struct {
	Base PushRef
	Pr   UpdateRef
}

// RetargetBeforePush requires retargeting before pushing the PR's former
// base, when that former base now sits later in the new stack order (a
// swap): otherwise the push of the former base would fast-forward through
// the PR's still-current base on the remote.
type RetargetBeforePush struct {
	Pr      UpdateRef
	OldBase PushRef
}

// PushBeforeCreate requires a branch to exist on the remote before a PR
// can be created from it.
type PushBeforeCreate struct {
	Push   PushRef
	Create CreateRef
}

// CreateOrder requires the parent PR to exist (for its URL/number) before
// the child PR's stack comment can reference it.
type CreateOrder struct {
	Parent CreateRef
	Child  CreateRef
}

func (PushOrder) isExecutionConstraint()         {}
func (PushBeforeRetarget) isExecutionConstraint() {}
func (RetargetBeforePush) isExecutionConstraint() {}
func (PushBeforeCreate) isExecutionConstraint()   {}
func (CreateOrder) isExecutionConstraint()        {}

// collectConstraints is the Constraint Collector (C4). It emits typed
// constraints from structural facts alone — stack adjacency and planned
// base updates — independent of which operation nodes actually exist.
func collectConstraints(segments []NarrowedBookmarkSegment, updates []PrBaseUpdate, creates []PrToCreate, stackIndex map[string]int) []ExecutionConstraint {
	var constraints []ExecutionConstraint

	for i := 1; i < len(segments); i++ {
		parent := segments[i-1].Bookmark.Name
		child := segments[i].Bookmark.Name
		constraints = append(constraints,
			PushOrder{Parent: PushRef(parent), Child: PushRef(child)},
			CreateOrder{Parent: CreateRef(parent), Child: CreateRef(child)},
		)
	}

	for _, u := range updates {
		constraints = append(constraints, PushBeforeRetarget{
			Base: PushRef(u.ExpectedBase),
			Pr:   UpdateRef(u.Bookmark.Name),
		})

		// Swap detection: if the PR's former base now sits after the
		// bookmark itself in the new ordering, the former base's push
		// would otherwise fast-forward through the PR's current base.
		if curIdx, ok := stackIndex[u.CurrentBase]; ok {
			if bmIdx, ok2 := stackIndex[u.Bookmark.Name]; ok2 && curIdx > bmIdx {
				constraints = append(constraints, RetargetBeforePush{
					Pr:      UpdateRef(u.Bookmark.Name),
					OldBase: PushRef(u.CurrentBase),
				})
			}
		}
	}

	for _, c := range creates {
		constraints = append(constraints, PushBeforeCreate{
			Push:   PushRef(c.Bookmark.Name),
			Create: CreateRef(c.Bookmark.Name),
		})
	}

	return constraints
}

// buildStackIndex maps each narrowed segment's bookmark name to its
// position in the stack, used by collectConstraints' swap detection.
func buildStackIndex(segments []NarrowedBookmarkSegment) map[string]int {
	idx := make(map[string]int, len(segments))
	for i, seg := range segments {
		idx[seg.Bookmark.Name] = i
	}
	return idx
}
