package submit

import (
	"fmt"
	"io"
)

// Result accumulates what actually happened during execution. It is built
// incrementally by the Executor and never read during execution
// decisions — only the in-flight bookmark→PR map feeds forward within a
// run.
type Result struct {
	Success         bool
	CreatedPRs      []PullRequest
	UpdatedPRs      []PullRequest
	PushedBookmarks []string
	Errors          []string
}

// NewResult returns a Result that starts out successful.
func NewResult() *Result { return &Result{Success: true} }

// Fail records a fatal error and marks the result failed.
func (r *Result) Fail(err string) {
	r.Errors = append(r.Errors, err)
	r.Success = false
}

// SoftFail records a non-fatal error; Success is left untouched.
func (r *Result) SoftFail(err string) {
	r.Errors = append(r.Errors, err)
}

// Execute is the Executor (C7). It walks the plan's steps in order,
// calling workspace and platform collaborators, classifying each outcome
// as success, fatal (stop) or soft (continue, e.g. a publish failure must
// not abort the stack). It returns the accumulated Result plus the final
// bookmark→PullRequest map, seeded from the plan's existing PRs and
// updated after each successful create/update/publish; the Stack-Comment
// Reconciler (C8) reads this map once execution completes.
//
// When dryRun is true, Execute writes one deterministic line per step to w
// (see FormatStep) and performs no collaborator calls at all.
func Execute(plan *Plan, ws Workspace, pf Platform, w io.Writer, dryRun bool) (*Result, map[string]PullRequest) {
	prMap := make(map[string]PullRequest, len(plan.ExistingPRs))
	for k, v := range plan.ExistingPRs {
		prMap[k] = v
	}

	if dryRun {
		fmt.Fprintln(w, FormatDryRun(plan))
		return NewResult(), prMap
	}

	result := NewResult()
	for _, step := range plan.ExecutionSteps {
		switch o := executeStep(step, ws, pf, plan.Remote).(type) {
		case stepSuccess:
			if o.bookmark != "" {
				prMap[o.bookmark] = o.pr
			}
		case stepFatal:
			result.Fail(string(o))
			return result, prMap
		case stepSoft:
			result.SoftFail(string(o))
		}

		if step.Kind == StepPush {
			result.PushedBookmarks = append(result.PushedBookmarks, step.Push.Name)
		}
	}
	return result, prMap
}

type stepOutcome interface{ isStepOutcome() }
type stepSuccess struct {
	bookmark string
	pr       PullRequest
}
type stepFatal string
type stepSoft string

func (stepSuccess) isStepOutcome() {}
func (stepFatal) isStepOutcome()   {}
func (stepSoft) isStepOutcome()    {}

// executeStep dispatches a single step to its collaborator call and maps
// the result onto the Success/Fatal/Soft outcome classes per the
// executor's step table: Push/UpdateBase/CreatePr failures are fatal,
// PublishPr failures are soft.
func executeStep(step ExecutionStep, ws Workspace, pf Platform, remote string) stepOutcome {
	switch step.Kind {
	case StepPush:
		if err := ws.Push(step.Push.Name, remote); err != nil {
			return stepFatal(fmt.Sprintf("pushing %s: %v", step.Push.Name, err))
		}
		return stepSuccess{}

	case StepUpdateBase:
		pr, err := pf.UpdatePrBase(step.Update.Pr.Number, step.Update.ExpectedBase)
		if err != nil {
			return stepFatal(fmt.Sprintf("updating base of PR #%d: %v", step.Update.Pr.Number, err))
		}
		return stepSuccess{bookmark: step.Update.Bookmark.Name, pr: pr}

	case StepCreatePr:
		pr, err := pf.CreatePrWithOptions(step.Create.Bookmark.Name, step.Create.BaseBranch, step.Create.Title, step.Create.Draft)
		if err != nil {
			return stepFatal(fmt.Sprintf("creating PR for %s: %v", step.Create.Bookmark.Name, err))
		}
		return stepSuccess{bookmark: step.Create.Bookmark.Name, pr: pr}

	case StepPublishPr:
		pr, err := pf.PublishPr(step.Publish.Number)
		if err != nil {
			return stepSoft(fmt.Sprintf("publishing PR #%d: %v", step.Publish.Number, err))
		}
		return stepSuccess{bookmark: step.Publish.HeadRef, pr: pr}

	default:
		return stepFatal("unknown step kind")
	}
}
