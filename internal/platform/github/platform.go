// Package github adapts internal/github's PR service onto the engine's
// Platform collaborator interface (internal/submit.Platform).
package github

import (
	"fmt"

	"github.com/jj-ryu/ryu/internal/github"
	"github.com/jj-ryu/ryu/internal/submit"
)

// Adapter implements submit.Platform on top of a github.Service.
type Adapter struct {
	svc github.Service
}

// New wraps a github.Service so it can be used as a submit.Platform.
func New(svc github.Service) *Adapter {
	return &Adapter{svc: svc}
}

func toPullRequest(pr *github.PRInfo) submit.PullRequest {
	return submit.PullRequest{
		Number:  pr.Number,
		HTMLURL: pr.URL,
		BaseRef: pr.BaseRefName,
		HeadRef: pr.HeadRefName,
		Title:   pr.Title,
		IsDraft: pr.IsDraft,
	}
}

// FindExistingPr looks up the open PR whose head is headRef, if any.
func (a *Adapter) FindExistingPr(headRef string) (*submit.PullRequest, error) {
	found, err := a.svc.LookupPRsByBranch([]string{headRef})
	if err != nil {
		return nil, fmt.Errorf("looking up PR for %s: %w", headRef, err)
	}
	pr, ok := found[headRef]
	if !ok {
		return nil, nil
	}
	out := toPullRequest(pr)
	return &out, nil
}

// CreatePrWithOptions opens a new PR for headRef against baseRef.
func (a *Adapter) CreatePrWithOptions(headRef, baseRef, title string, draft bool) (submit.PullRequest, error) {
	pr, err := a.svc.CreatePR(headRef, baseRef, title, "", draft)
	if err != nil {
		return submit.PullRequest{}, fmt.Errorf("creating PR for %s: %w", headRef, err)
	}
	return toPullRequest(pr), nil
}

// UpdatePrBase retargets an existing PR's base branch.
func (a *Adapter) UpdatePrBase(prNumber int, newBase string) (submit.PullRequest, error) {
	if err := a.svc.UpdatePR(prNumber, github.UpdatePROpts{Base: &newBase}); err != nil {
		return submit.PullRequest{}, fmt.Errorf("retargeting PR #%d: %w", prNumber, err)
	}
	pr, err := a.svc.GetPR(prNumber)
	if err != nil {
		return submit.PullRequest{}, fmt.Errorf("reading back PR #%d after retarget: %w", prNumber, err)
	}
	return toPullRequest(pr), nil
}

// PublishPr marks a draft PR ready for review.
func (a *Adapter) PublishPr(prNumber int) (submit.PullRequest, error) {
	pr, err := a.svc.MarkReadyForReview(prNumber)
	if err != nil {
		return submit.PullRequest{}, fmt.Errorf("publishing PR #%d: %w", prNumber, err)
	}
	return toPullRequest(pr), nil
}

// ListPrComments returns every comment on a PR's thread.
func (a *Adapter) ListPrComments(prNumber int) ([]submit.PrComment, error) {
	comments, err := a.svc.ListIssueComments(prNumber)
	if err != nil {
		return nil, fmt.Errorf("listing comments on PR #%d: %w", prNumber, err)
	}
	out := make([]submit.PrComment, len(comments))
	for i, c := range comments {
		out[i] = submit.PrComment{ID: c.ID, Body: c.Body}
	}
	return out, nil
}

// CreatePrComment posts a new comment on a PR.
func (a *Adapter) CreatePrComment(prNumber int, body string) error {
	return a.svc.CommentOnPR(prNumber, body)
}

// UpdatePrComment rewrites an existing comment's body.
func (a *Adapter) UpdatePrComment(prNumber int, commentID int64, body string) error {
	return a.svc.EditIssueComment(commentID, body)
}
