package submit

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestBuildManifest_EmptyWhenNoPRsYetExist(t *testing.T) {
	segments := []NarrowedBookmarkSegment{{Bookmark: Bookmark{Name: "feature-a"}}}
	_, ok := BuildManifest(segments, map[string]PullRequest{}, "main")
	if ok {
		t.Error("expected BuildManifest to report nothing to build when no PR exists yet")
	}
}

func TestManifestRoundTrip(t *testing.T) {
	segments := []NarrowedBookmarkSegment{
		{Bookmark: Bookmark{Name: "feature-a"}},
		{Bookmark: Bookmark{Name: "feature-b"}},
	}
	prMap := map[string]PullRequest{
		"feature-a": {Number: 1, HTMLURL: "https://example.invalid/pr/1", Title: "Add feature a"},
		"feature-b": {Number: 2, HTMLURL: "https://example.invalid/pr/2", Title: "Add feature b"},
	}
	manifest, ok := BuildManifest(segments, prMap, "main")
	if !ok {
		t.Fatal("expected a manifest to be built")
	}

	body, err := FormatStackComment(manifest, "feature-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parsed, ok := ParseStackComment(body)
	if !ok {
		t.Fatal("expected the formatted comment to parse back")
	}
	if parsed.BaseBranch != "main" {
		t.Errorf("expected base branch main, got %s", parsed.BaseBranch)
	}
	if len(parsed.Stack) != 2 {
		t.Fatalf("expected 2 stack entries, got %d", len(parsed.Stack))
	}
	if parsed.Stack[0].BookmarkName != "feature-a" || parsed.Stack[1].BookmarkName != "feature-b" {
		t.Errorf("unexpected stack order after round-trip: %+v", parsed.Stack)
	}
}

func TestFormatStackComment_MarksCurrentPRWithGlyph(t *testing.T) {
	manifest := manifestJSON{
		Version:    1,
		BaseBranch: "main",
		Stack: []manifestItem{
			{BookmarkName: "feature-a", PrNumber: 1, PrTitle: "Add feature a"},
			{BookmarkName: "feature-b", PrNumber: 2, PrTitle: "Add feature b"},
		},
	}
	body, err := FormatStackComment(manifest, "feature-b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(body, "**Add feature b #2** 👈") {
		t.Errorf("expected the current PR's line to be bolded and marked, got:\n%s", body)
	}
	if strings.Contains(body, "Add feature a #1 👈") {
		t.Error("did not expect the non-current PR's line to carry the current-PR marker")
	}
}

func TestParseStackComment_RecognizesLegacyPrefix(t *testing.T) {
	manifest := manifestJSON{Version: 1, BaseBranch: "main", Stack: []manifestItem{{BookmarkName: "feature-a", PrNumber: 1}}}
	payload, err := manifest.marshal()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := CommentPrefixLegacy + base64.StdEncoding.EncodeToString(payload) + CommentPostfix + "\nlegacy body\n"
	parsed, ok := ParseStackComment(body)
	if !ok {
		t.Fatal("expected legacy-prefixed comment to still parse")
	}
	if len(parsed.Stack) != 1 || parsed.Stack[0].BookmarkName != "feature-a" {
		t.Errorf("unexpected parsed manifest: %+v", parsed)
	}
}

func TestParseStackComment_NoSentinelReturnsFalse(t *testing.T) {
	_, ok := ParseStackComment("just a regular comment, no stack info here")
	if ok {
		t.Error("expected no manifest to be found in a plain comment")
	}
}

func TestReconcileStackComments_CreatesThenUpdatesOnRerun(t *testing.T) {
	segments := []NarrowedBookmarkSegment{{Bookmark: Bookmark{Name: "feature-a"}}}
	prMap := map[string]PullRequest{"feature-a": {Number: 1, HTMLURL: "https://example.invalid/pr/1", Title: "Add feature a"}}
	pf := newFakePlatform()
	result := NewResult()

	ReconcileStackComments(segments, prMap, "main", pf, result)
	if len(pf.comments[1]) != 1 {
		t.Fatalf("expected one comment created, got %d", len(pf.comments[1]))
	}
	firstBody := pf.comments[1][0].Body

	// Re-run with an updated title: should edit the existing comment, not
	// create a second one.
	prMap["feature-a"] = PullRequest{Number: 1, HTMLURL: "https://example.invalid/pr/1", Title: "Add feature a (v2)"}
	ReconcileStackComments(segments, prMap, "main", pf, result)
	if len(pf.comments[1]) != 1 {
		t.Fatalf("expected the existing stack comment to be updated in place, got %d comments", len(pf.comments[1]))
	}
	if pf.comments[1][0].Body == firstBody {
		t.Error("expected the comment body to change after the re-run")
	}
	if !result.Success {
		t.Errorf("expected reconciliation to succeed, got errors: %v", result.Errors)
	}
}

func TestReconcileStackComments_PerPRFailureIsSoftAndDoesNotAbortOthers(t *testing.T) {
	segments := []NarrowedBookmarkSegment{
		{Bookmark: Bookmark{Name: "feature-a"}},
		{Bookmark: Bookmark{Name: "feature-b"}},
	}
	prMap := map[string]PullRequest{
		"feature-a": {Number: 1, Title: "Add feature a"},
		"feature-b": {Number: 2, Title: "Add feature b"},
	}
	pf := newFakePlatform()
	pf.failListComments[1] = true
	result := NewResult()

	ReconcileStackComments(segments, prMap, "main", pf, result)
	if !result.Success {
		t.Errorf("expected overall success: a per-PR comment failure is soft, got %v", result.Errors)
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected exactly one soft error for PR #1, got %v", result.Errors)
	}
	if len(pf.comments[2]) != 1 {
		t.Errorf("expected feature-b's comment to still be created despite feature-a's failure, got %d", len(pf.comments[2]))
	}
}
