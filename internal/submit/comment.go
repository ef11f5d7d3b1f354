package submit

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Stack-comment payload sentinels (§6.4). CommentPrefixLegacy is
// recognized on read-only lookup only: an older format a stack may still
// carry from before a rename, never written by this engine.
const (
	CommentPrefix       = "<!--- JJ-RYU_STACK: "
	CommentPrefixLegacy = "<!--- JJ-STACK_INFO: "
	CommentPostfix      = " --->"
	stackCommentThisPR  = "👈"
	manifestVersion     = 1
)

// BuildManifest constructs the stack-comment manifest (root→leaf order)
// from a plan's segments and the now-current bookmark→PR map.
func BuildManifest(segments []NarrowedBookmarkSegment, prMap map[string]PullRequest, defaultBranch string) (manifestJSON, bool) {
	items := make([]manifestItem, 0, len(segments))
	for _, seg := range segments {
		pr, ok := prMap[seg.Bookmark.Name]
		if !ok {
			continue
		}
		items = append(items, manifestItem{
			BookmarkName: seg.Bookmark.Name,
			PrURL:        pr.HTMLURL,
			PrNumber:     pr.Number,
			PrTitle:      pr.Title,
		})
	}
	if len(items) == 0 {
		return manifestJSON{}, false
	}
	return manifestJSON{Version: manifestVersion, Stack: items, BaseBranch: defaultBranch}, true
}

// FormatStackComment renders the full comment body: the base64 manifest
// payload between the sentinels, then a human-readable listing newest
// (leaf) first, the base branch, a separator, and an attribution line.
// currentBookmark names the PR this particular comment is posted on, so
// its line can be bolded with the "current PR" marker.
func FormatStackComment(m manifestJSON, currentBookmark string) (string, error) {
	payload, err := m.marshal()
	if err != nil {
		return "", fmt.Errorf("marshaling stack comment manifest: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(payload)

	var b strings.Builder
	b.WriteString(CommentPrefix)
	b.WriteString(encoded)
	b.WriteString(CommentPostfix)
	b.WriteString("\n")

	for i := len(m.Stack) - 1; i >= 0; i-- {
		item := m.Stack[i]
		if item.BookmarkName == currentBookmark {
			fmt.Fprintf(&b, "* **%s #%d** %s\n", item.PrTitle, item.PrNumber, stackCommentThisPR)
		} else {
			fmt.Fprintf(&b, "* %s #%d\n", item.PrTitle, item.PrNumber)
		}
	}
	fmt.Fprintf(&b, "* `%s`\n", m.BaseBranch)
	b.WriteString("\n---\n")
	b.WriteString("<sub>Stack managed by ryu.</sub>\n")

	return b.String(), nil
}

// ParseStackComment decodes a comment body previously written by
// FormatStackComment (or a legacy-prefixed predecessor) back into a
// manifest. It returns ok=false if the body carries neither sentinel.
func ParseStackComment(body string) (manifestJSON, bool) {
	prefix := CommentPrefix
	start := strings.Index(body, prefix)
	if start == -1 {
		prefix = CommentPrefixLegacy
		start = strings.Index(body, prefix)
		if start == -1 {
			return manifestJSON{}, false
		}
	}
	payloadStart := start + len(prefix)
	end := strings.Index(body[payloadStart:], CommentPostfix)
	if end == -1 {
		return manifestJSON{}, false
	}
	encoded := body[payloadStart : payloadStart+end]

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return manifestJSON{}, false
	}
	var m manifestJSON
	if err := json.Unmarshal(raw, &m); err != nil {
		return manifestJSON{}, false
	}
	return m, true
}

// ReconcileStackComments is the Stack-Comment Reconciler (C8). For every
// PR now known in prMap, it lists the PR's existing comments, finds the
// first one whose body carries either sentinel, and updates it — or
// creates a new comment if none is found. Each per-PR failure is a soft
// error: a broken comment never aborts an otherwise-successful stack.
func ReconcileStackComments(segments []NarrowedBookmarkSegment, prMap map[string]PullRequest, defaultBranch string, pf Platform, result *Result) {
	manifest, ok := BuildManifest(segments, prMap, defaultBranch)
	if !ok {
		return
	}

	for _, seg := range segments {
		pr, ok := prMap[seg.Bookmark.Name]
		if !ok {
			continue
		}

		body, err := FormatStackComment(manifest, seg.Bookmark.Name)
		if err != nil {
			result.SoftFail(fmt.Sprintf("formatting stack comment for PR #%d: %v", pr.Number, err))
			continue
		}

		comments, err := pf.ListPrComments(pr.Number)
		if err != nil {
			result.SoftFail(fmt.Sprintf("listing comments on PR #%d: %v", pr.Number, err))
			continue
		}

		var existing *PrComment
		for i := range comments {
			if strings.Contains(comments[i].Body, CommentPrefix) || strings.Contains(comments[i].Body, CommentPrefixLegacy) {
				existing = &comments[i]
				break
			}
		}

		if existing != nil {
			if err := pf.UpdatePrComment(pr.Number, existing.ID, body); err != nil {
				result.SoftFail(fmt.Sprintf("updating stack comment on PR #%d: %v", pr.Number, err))
			}
			continue
		}
		if err := pf.CreatePrComment(pr.Number, body); err != nil {
			result.SoftFail(fmt.Sprintf("creating stack comment on PR #%d: %v", pr.Number, err))
		}
	}
}
