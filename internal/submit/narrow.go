package submit

import (
	"sort"
	"strings"
)

// SelectBookmarkForSegment is the Segment Narrower (C2). It reduces a
// segment's candidate bookmarks to one canonical choice.
func SelectBookmarkForSegment(segment BookmarkSegment, bookmarks map[string]Bookmark, target string) Bookmark {
	candidates := segment.Bookmarks

	if len(candidates) == 1 {
		return bookmarks[candidates[0]]
	}

	if target != "" {
		for _, c := range candidates {
			if c == target {
				return bookmarks[c]
			}
		}
	}

	pool := candidates
	var nonTemporary []string
	for _, c := range candidates {
		if !isTemporaryBookmark(c) {
			nonTemporary = append(nonTemporary, c)
		}
	}
	if len(nonTemporary) > 0 {
		pool = nonTemporary
	}

	sorted := append([]string(nil), pool...)
	sort.Slice(sorted, func(i, j int) bool {
		if len(sorted[i]) != len(sorted[j]) {
			return len(sorted[i]) < len(sorted[j])
		}
		return sorted[i] < sorted[j]
	})
	return bookmarks[sorted[0]]
}

// isTemporaryBookmark reports whether name looks like a disposable WIP
// branch rather than a canonical one. The "wip" substring check is
// deliberately loose: it will also match innocuous names like "swipe".
// This is an accepted false-positive, not a bug; see DESIGN.md.
func isTemporaryBookmark(name string) bool {
	lower := strings.ToLower(name)
	for _, substr := range []string{"wip", "tmp", "temp", "backup"} {
		if strings.Contains(lower, substr) {
			return true
		}
	}
	if strings.HasSuffix(lower, "-old") || strings.HasSuffix(lower, "_old") {
		return true
	}
	if strings.HasPrefix(lower, "wip-") || strings.HasPrefix(lower, "wip/") {
		return true
	}
	return false
}
