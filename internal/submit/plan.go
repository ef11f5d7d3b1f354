package submit

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Plan is the engine's immutable-after-construction work order: the
// segments it was built from, the constraints collected (informational —
// kept for diagnostics, not consulted again after scheduling), the
// resolved execution order, the existing-PR map it started from, and the
// remote/default-branch names steps were computed against.
type Plan struct {
	Segments      []NarrowedBookmarkSegment
	Constraints   []ExecutionConstraint
	ExecutionSteps []ExecutionStep
	ExistingPRs   map[string]PullRequest
	Remote        string
	DefaultBranch string
}

// CreateSubmissionPlan is the Planning phase entry point: it runs the
// Constraint Collector (C4), Node Builder (C5) and Constraint
// Resolver/Scheduler (C6) over an Analysis, producing an immutable Plan.
func CreateSubmissionPlan(analysis *Analysis, existingPRs map[string]PullRequest, remote, defaultBranch string) (*Plan, error) {
	segments := analysis.Segments
	stackIndex := buildStackIndex(segments)

	var updates []PrBaseUpdate
	var creates []PrToCreate
	pushNeeded := make(map[string]bool, len(segments))

	for i, seg := range segments {
		bm := seg.Bookmark
		expectedBase := baseBranchFor(i, segments, defaultBranch)
		pushNeeded[bm.Name] = !bm.IsSynced

		if pr, ok := existingPRs[bm.Name]; ok {
			if pr.BaseRef != expectedBase {
				updates = append(updates, PrBaseUpdate{
					Bookmark:     bm,
					CurrentBase:  pr.BaseRef,
					ExpectedBase: expectedBase,
					Pr:           pr,
				})
			}
			continue
		}

		creates = append(creates, PrToCreate{
			Bookmark:   bm,
			BaseBranch: expectedBase,
			Title:      generatePrTitle(bm.Name, seg),
		})
	}

	constraints := collectConstraints(segments, updates, creates, stackIndex)
	nodes, reg := buildExecutionNodes(segments, pushNeeded, updates, creates, nil)
	edges := resolveConstraints(constraints, reg)
	steps, err := scheduleSteps(nodes, edges)
	if err != nil {
		return nil, err
	}

	prs := make(map[string]PullRequest, len(existingPRs))
	for k, v := range existingPRs {
		prs[k] = v
	}

	return &Plan{
		Segments:       segments,
		Constraints:    constraints,
		ExecutionSteps: steps,
		ExistingPRs:    prs,
		Remote:         remote,
		DefaultBranch:  defaultBranch,
	}, nil
}

// baseBranchFor returns the expected base ref for the segment at index i:
// the default branch for the trunk-most segment, or the previous
// segment's bookmark name otherwise.
func baseBranchFor(i int, segments []NarrowedBookmarkSegment, defaultBranch string) string {
	if i == 0 {
		return defaultBranch
	}
	return segments[i-1].Bookmark.Name
}

// generatePrTitle uses the oldest commit in the segment (Changes is
// newest-first, so the root commit is last) as the PR title, falling
// back to the bookmark name when there's no usable description.
func generatePrTitle(bookmarkName string, seg NarrowedBookmarkSegment) string {
	if len(seg.Changes) == 0 {
		return bookmarkName
	}
	root := seg.Changes[len(seg.Changes)-1]
	if root.DescriptionFirstLine == "" {
		return bookmarkName
	}
	return root.DescriptionFirstLine
}

// IsEmpty reports whether the plan has no steps at all.
func (p *Plan) IsEmpty() bool { return len(p.ExecutionSteps) == 0 }

func (p *Plan) CountPushes() int   { return p.countKind(StepPush) }
func (p *Plan) CountCreates() int  { return p.countKind(StepCreatePr) }
func (p *Plan) CountUpdates() int  { return p.countKind(StepUpdateBase) }
func (p *Plan) CountPublishes() int { return p.countKind(StepPublishPr) }

func (p *Plan) countKind(kind StepKind) int {
	n := 0
	for _, s := range p.ExecutionSteps {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

// ApplyUpdateOnly filters the plan down to steps for bookmarks that
// already have an existing PR, dropping every CreatePr step. A Push
// survives only if its bookmark already has an existing PR.
func (p *Plan) ApplyUpdateOnly() {
	var filtered []ExecutionStep
	for _, s := range p.ExecutionSteps {
		if s.Kind == StepCreatePr {
			continue
		}
		if s.Kind == StepPush {
			if _, ok := p.ExistingPRs[s.Push.Name]; !ok {
				continue
			}
		}
		filtered = append(filtered, s)
	}
	p.ExecutionSteps = filtered
}

// ApplyDraft marks every CreatePr step as draft. Ignored if publish is
// also requested — publish wins.
func (p *Plan) ApplyDraft(draft, publish bool) {
	if draft && !publish {
		for i := range p.ExecutionSteps {
			if p.ExecutionSteps[i].Kind == StepCreatePr {
				p.ExecutionSteps[i].Create.Draft = true
			}
		}
	}
}

// ApplyPublish appends a PublishPr step for every existing draft PR.
// These steps are appended directly without going through constraint
// resolution: publishing a pre-existing PR has no ordering dependency on
// anything else in the plan.
func (p *Plan) ApplyPublish(publish bool) {
	if !publish {
		return
	}
	for _, pr := range p.ExistingPRs {
		if pr.IsDraft {
			p.ExecutionSteps = append(p.ExecutionSteps, ExecutionStep{Kind: StepPublishPr, Publish: pr})
		}
	}
}

// FilterToSelection retains only segments and execution steps whose
// bookmark name is in selected.
func (p *Plan) FilterToSelection(selected map[string]bool) {
	var segs []NarrowedBookmarkSegment
	for _, s := range p.Segments {
		if selected[s.Bookmark.Name] {
			segs = append(segs, s)
		}
	}
	p.Segments = segs

	var steps []ExecutionStep
	for _, s := range p.ExecutionSteps {
		if selected[s.BookmarkName()] {
			steps = append(steps, s)
		}
	}
	p.ExecutionSteps = steps
}

// FormatDryRun renders the stable dry-run text for the plan (§6.3).
func FormatDryRun(p *Plan) string {
	if p.IsEmpty() {
		return "Nothing to do - already in sync"
	}
	var b strings.Builder
	for _, s := range p.ExecutionSteps {
		b.WriteString(FormatStep(s, p.Remote))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatStep renders a single dry-run line for one step.
func FormatStep(s ExecutionStep, remote string) string {
	switch s.Kind {
	case StepPush:
		return fmt.Sprintf("  → push %s to %s", s.Push.Name, remote)
	case StepUpdateBase:
		return fmt.Sprintf("  → update %s (PR #%d) %s → %s", s.Update.Bookmark.Name, s.Update.Pr.Number, s.Update.CurrentBase, s.Update.ExpectedBase)
	case StepCreatePr:
		line := fmt.Sprintf("  → create PR %s → %s (%s)", s.Create.Bookmark.Name, s.Create.BaseBranch, s.Create.Title)
		if s.Create.Draft {
			line += " [draft]"
		}
		return line
	case StepPublishPr:
		return fmt.Sprintf("  → publish PR #%d (%s)", s.Publish.Number, s.Publish.HeadRef)
	default:
		return ""
	}
}

// manifestJSON is the on-the-wire shape of the stack-comment manifest; see
// comment.go for the reconciler that builds and parses it.
type manifestJSON struct {
	Version     int              `json:"version"`
	Stack       []manifestItem   `json:"stack"`
	BaseBranch  string           `json:"base_branch"`
}

type manifestItem struct {
	BookmarkName string `json:"bookmark_name"`
	PrURL        string `json:"pr_url"`
	PrNumber     int    `json:"pr_number"`
	PrTitle      string `json:"pr_title"`
}

func (m manifestJSON) marshal() ([]byte, error) { return json.Marshal(m) }
