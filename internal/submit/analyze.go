package submit

import "fmt"

// AnalyzeSubmission is the Analyzer (C3), default scope. It locates the
// target index in the stack (the leaf if target is empty), narrows every
// segment from trunk (index 0) through the target inclusive, and rewrites
// the target name to the actually-selected narrowed bookmark.
func AnalyzeSubmission(graph *ChangeGraph, target string) (*Analysis, error) {
	if graph.Stack == nil {
		return nil, ErrNoStack()
	}

	segments := graph.Stack.Segments
	targetIndex := len(segments) - 1
	if target != "" {
		found := false
		for i, seg := range segments {
			for _, b := range seg.Bookmarks {
				if b == target {
					targetIndex = i
					found = true
				}
			}
		}
		if !found {
			return nil, ErrBookmarkNotFound(target)
		}
	}

	narrowed := make([]NarrowedBookmarkSegment, 0, targetIndex+1)
	for i := 0; i <= targetIndex; i++ {
		seg := segments[i]
		narrowed = append(narrowed, NarrowedBookmarkSegment{
			Bookmark: SelectBookmarkForSegment(seg, graph.Bookmarks, target),
			Changes:  seg.Changes,
		})
	}

	actualTarget := narrowed[len(narrowed)-1].Bookmark.Name
	return &Analysis{TargetBookmark: actualTarget, Segments: narrowed}, nil
}

// ApplyScope applies a post-analysis scope refinement (upto/only/stack) on
// top of the default analysis. For ScopeDefault it returns analysis
// unchanged.
func ApplyScope(graph *ChangeGraph, analysis *Analysis, scope Scope, scopeName string, platform Platform) (*Analysis, error) {
	switch scope {
	case ScopeDefault:
		return analysis, nil

	case ScopeUpto:
		idx := -1
		for i, seg := range analysis.Segments {
			if seg.Bookmark.Name == scopeName {
				idx = i
				break
			}
		}
		if idx == -1 {
			return nil, ErrInvalidArgument("--upto %q does not match any segment in the stack", scopeName)
		}
		return &Analysis{
			TargetBookmark: scopeName,
			Segments:       append([]NarrowedBookmarkSegment(nil), analysis.Segments[:idx+1]...),
		}, nil

	case ScopeOnly:
		idx := -1
		for i, seg := range analysis.Segments {
			if seg.Bookmark.Name == scopeName {
				idx = i
				break
			}
		}
		if idx == -1 {
			return nil, ErrInvalidArgument("--only %q does not match any segment in the stack", scopeName)
		}
		if idx > 0 {
			parent := analysis.Segments[idx-1].Bookmark
			pr, err := platform.FindExistingPr(parent.Name)
			if err != nil {
				return nil, ErrPlatform(err)
			}
			if pr == nil {
				return nil, ErrInvalidArgument("%q has no PR. Use --upto instead.", parent.Name)
			}
		}
		return &Analysis{
			TargetBookmark: analysis.Segments[idx].Bookmark.Name,
			Segments:       []NarrowedBookmarkSegment{analysis.Segments[idx]},
		}, nil

	case ScopeStack:
		if graph.Stack == nil {
			return nil, ErrNoStack()
		}
		descendants := findAllDescendants(graph, analysis.TargetBookmark)
		result := append([]NarrowedBookmarkSegment(nil), analysis.Segments...)
		seen := make(map[string]bool, len(result))
		for _, s := range result {
			seen[s.Bookmark.Name] = true
		}
		leaf := analysis.TargetBookmark
		for _, name := range descendants {
			sub, err := AnalyzeSubmission(graph, name)
			if err != nil {
				return nil, err
			}
			for _, seg := range sub.Segments {
				if !seen[seg.Bookmark.Name] {
					seen[seg.Bookmark.Name] = true
					result = append(result, seg)
				}
			}
			leaf = sub.TargetBookmark
		}
		return &Analysis{TargetBookmark: leaf, Segments: result}, nil

	default:
		return nil, fmt.Errorf("unknown scope %d", scope)
	}
}

// findAllDescendants walks the stack's segments after the one containing
// bookmark, collecting every subsequent bookmark name. The engine operates
// on a single stack per invocation, so this is a straightforward suffix
// walk rather than a multi-stack search.
func findAllDescendants(graph *ChangeGraph, bookmark string) []string {
	if graph.Stack == nil {
		return nil
	}
	idx := -1
	for i, seg := range graph.Stack.Segments {
		for _, b := range seg.Bookmarks {
			if b == bookmark {
				idx = i
			}
		}
	}
	if idx == -1 {
		return nil
	}
	var names []string
	for i := idx + 1; i < len(graph.Stack.Segments); i++ {
		seg := graph.Stack.Segments[i]
		if len(seg.Bookmarks) > 0 {
			names = append(names, seg.Bookmarks[0])
		}
	}
	return names
}
