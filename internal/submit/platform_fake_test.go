package submit

import "fmt"

// fakePlatform is an in-memory Platform double driven entirely by maps, in
// the teacher's style of hand-written fakes rather than a mocking library.
type fakePlatform struct {
	prs          map[string]PullRequest // keyed by head ref
	nextNumber   int
	comments     map[int][]PrComment // keyed by PR number
	failCreate        map[string]bool
	failUpdate        map[int]bool
	failPublish       map[int]bool
	failListComments  map[int]bool
	failCreateComment map[int]bool
	failUpdateComment map[int]bool
	createCalls       []string
	updateCalls       []int
	publishCalls      []int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		prs:               make(map[string]PullRequest),
		nextNumber:        1,
		comments:          make(map[int][]PrComment),
		failCreate:        make(map[string]bool),
		failUpdate:        make(map[int]bool),
		failPublish:       make(map[int]bool),
		failListComments:  make(map[int]bool),
		failCreateComment: make(map[int]bool),
		failUpdateComment: make(map[int]bool),
	}
}

func (f *fakePlatform) withExistingPr(headRef, baseRef string, number int, draft bool) *fakePlatform {
	f.prs[headRef] = PullRequest{Number: number, HTMLURL: fmt.Sprintf("https://example.invalid/pr/%d", number), BaseRef: baseRef, HeadRef: headRef, Title: headRef, IsDraft: draft}
	if number >= f.nextNumber {
		f.nextNumber = number + 1
	}
	return f
}

func (f *fakePlatform) FindExistingPr(headRef string) (*PullRequest, error) {
	if pr, ok := f.prs[headRef]; ok {
		return &pr, nil
	}
	return nil, nil
}

func (f *fakePlatform) CreatePrWithOptions(headRef, baseRef, title string, draft bool) (PullRequest, error) {
	if f.failCreate[headRef] {
		return PullRequest{}, fmt.Errorf("create failed for %s", headRef)
	}
	f.createCalls = append(f.createCalls, headRef)
	pr := PullRequest{Number: f.nextNumber, HTMLURL: fmt.Sprintf("https://example.invalid/pr/%d", f.nextNumber), BaseRef: baseRef, HeadRef: headRef, Title: title, IsDraft: draft}
	f.nextNumber++
	f.prs[headRef] = pr
	return pr, nil
}

func (f *fakePlatform) UpdatePrBase(prNumber int, newBase string) (PullRequest, error) {
	if f.failUpdate[prNumber] {
		return PullRequest{}, fmt.Errorf("update failed for #%d", prNumber)
	}
	f.updateCalls = append(f.updateCalls, prNumber)
	for ref, pr := range f.prs {
		if pr.Number == prNumber {
			pr.BaseRef = newBase
			f.prs[ref] = pr
			return pr, nil
		}
	}
	return PullRequest{}, fmt.Errorf("no such PR #%d", prNumber)
}

func (f *fakePlatform) PublishPr(prNumber int) (PullRequest, error) {
	if f.failPublish[prNumber] {
		return PullRequest{}, fmt.Errorf("publish failed for #%d", prNumber)
	}
	f.publishCalls = append(f.publishCalls, prNumber)
	for ref, pr := range f.prs {
		if pr.Number == prNumber {
			pr.IsDraft = false
			f.prs[ref] = pr
			return pr, nil
		}
	}
	return PullRequest{}, fmt.Errorf("no such PR #%d", prNumber)
}

func (f *fakePlatform) ListPrComments(prNumber int) ([]PrComment, error) {
	if f.failListComments[prNumber] {
		return nil, fmt.Errorf("listing comments failed for #%d", prNumber)
	}
	return f.comments[prNumber], nil
}

func (f *fakePlatform) CreatePrComment(prNumber int, body string) error {
	if f.failCreateComment[prNumber] {
		return fmt.Errorf("creating comment failed for #%d", prNumber)
	}
	id := int64(len(f.comments[prNumber]) + 1)
	f.comments[prNumber] = append(f.comments[prNumber], PrComment{ID: id, Body: body})
	return nil
}

func (f *fakePlatform) UpdatePrComment(prNumber int, commentID int64, body string) error {
	if f.failUpdateComment[prNumber] {
		return fmt.Errorf("updating comment failed for #%d", prNumber)
	}
	for i, c := range f.comments[prNumber] {
		if c.ID == commentID {
			f.comments[prNumber][i].Body = body
			return nil
		}
	}
	return fmt.Errorf("no such comment %d on PR #%d", commentID, prNumber)
}

// fakeWorkspace is an in-memory Workspace double; Push just records which
// bookmarks were pushed, optionally failing for configured names.
type fakeWorkspace struct {
	pushed    []string
	failPush  map[string]bool
	remote    string
	defBranch string
}

func newFakeWorkspace() *fakeWorkspace {
	return &fakeWorkspace{failPush: make(map[string]bool), remote: "origin", defBranch: "main"}
}

func (w *fakeWorkspace) ResolveRevset(expr string) ([]LogEntry, error) { return nil, nil }
func (w *fakeWorkspace) LocalBookmarks() ([]Bookmark, error)          { return nil, nil }
func (w *fakeWorkspace) DefaultBranch() (string, error)               { return w.defBranch, nil }
func (w *fakeWorkspace) Remote() (string, error)                      { return w.remote, nil }
func (w *fakeWorkspace) Push(bookmark, remote string) error {
	if w.failPush[bookmark] {
		return fmt.Errorf("push failed for %s", bookmark)
	}
	w.pushed = append(w.pushed, bookmark)
	return nil
}
