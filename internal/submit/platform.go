package submit

// Platform is the PR-hosting collaborator the engine uses during analysis
// (to check for an existing parent PR under scope "only") and during
// execution (to create/update/publish PRs and reconcile stack comments).
type Platform interface {
	FindExistingPr(headRef string) (*PullRequest, error)
	CreatePrWithOptions(headRef, baseRef, title string, draft bool) (PullRequest, error)
	UpdatePrBase(prNumber int, newBase string) (PullRequest, error)
	PublishPr(prNumber int) (PullRequest, error)
	ListPrComments(prNumber int) ([]PrComment, error)
	CreatePrComment(prNumber int, body string) error
	UpdatePrComment(prNumber int, commentID int64, body string) error
}
