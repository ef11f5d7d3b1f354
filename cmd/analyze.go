package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jj-ryu/ryu/internal/jj"
	"github.com/jj-ryu/ryu/internal/state"
	"github.com/jj-ryu/ryu/internal/submit"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Print the current stack without changing anything",
	Long: `Analyze projects the working copy's change graph into its bookmark
stack and prints it, read-only. It never pushes, creates PRs, or
touches comments — use it to see what 'ryu submit' would operate on.`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()

	cwd, err := repoRoot()
	if err != nil {
		return fmt.Errorf("resolving repo root: %w", err)
	}
	runner := jj.NewRunner(cwd)
	remoteData, err := runner.GitRemoteList()
	if err != nil {
		return fmt.Errorf("listing remotes: %w", err)
	}
	remote := "origin"
	if _, ok := jj.ParseRemoteList(remoteData)[remote]; !ok {
		remote = ""
	}
	ws := jj.NewWorkspace(runner, remote)

	commits, err := ws.ResolveRevset("trunk()..@")
	if err != nil {
		return fmt.Errorf("resolving change graph: %w", err)
	}
	bookmarks, err := ws.LocalBookmarks()
	if err != nil {
		return fmt.Errorf("listing bookmarks: %w", err)
	}

	graph, err := submit.BuildChangeGraph(commits, bookmarks)
	if err != nil {
		return err
	}

	tracking, _ := state.LoadTrackingState(cwd)
	prCache, _ := state.LoadPrCache(cwd)

	return printAnalysis(w, graph, tracking, prCache)
}

func printAnalysis(w io.Writer, graph *submit.ChangeGraph, tracking *state.TrackingState, prCache *state.PrCache) error {
	if graph.Stack == nil || len(graph.Stack.Segments) == 0 {
		fmt.Fprintln(w, "No bookmark stack found")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Stacks are bookmarks that point to commits between trunk and the working copy.")
		fmt.Fprintln(w, "Create a bookmark with: jj bookmark create <name>")
		return nil
	}

	leaf := graph.Stack.Segments[len(graph.Stack.Segments)-1]
	fmt.Fprintf(w, "Stack: %s\n\n", leaf.Bookmarks[len(leaf.Bookmarks)-1])

	isTracked := func(name string) bool {
		if tracking == nil {
			return false
		}
		for _, e := range tracking.Entries {
			if e.BookmarkName == name {
				return true
			}
		}
		return false
	}

	totalBookmarks := 0
	trackedCount := 0
	for i := len(graph.Stack.Segments) - 1; i >= 0; i-- {
		seg := graph.Stack.Segments[i]
		totalBookmarks += len(seg.Bookmarks)

		for j, change := range seg.Changes {
			marker := "o"
			if change.IsWorkingCopy {
				marker = "@"
			}
			desc := change.DescriptionFirstLine
			if desc == "" {
				desc = "(no description)"
			}
			if j == 0 {
				for _, bm := range seg.Bookmarks {
					status := "·"
					prSuffix := ""
					if isTracked(bm) {
						trackedCount++
						status = "↑"
						if bookmark, ok := graph.Bookmarks[bm]; ok && bookmark.IsSynced {
							status = "✓"
						}
						if prCache != nil {
							if cached, ok := prCache.Find(bm); ok {
								prSuffix = fmt.Sprintf(" #%d", cached.Number)
							}
						}
					}
					fmt.Fprintf(w, "       [%s%s] %s\n", bm, prSuffix, status)
				}
			}
			fmt.Fprintf(w, "    %s  %.8s %.8s %s\n", marker, change.ChangeID, change.CommitID, desc)
			fmt.Fprintln(w, "    |")
		}
	}
	fmt.Fprintln(w, "  trunk()")
	fmt.Fprintln(w)

	if trackedCount > 0 {
		fmt.Fprintf(w, "%d bookmark(s) (%d tracked)\n", totalBookmarks, trackedCount)
	} else {
		fmt.Fprintf(w, "%d bookmark(s)\n", totalBookmarks)
	}
	if graph.ExcludedBookmarkCount > 0 {
		fmt.Fprintln(w, "(bookmarks excluded due to merge commits)")
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Legend: ✓ = tracked synced, ↑ = tracked needs push, · = untracked, @ = working copy")

	if totalBookmarks-trackedCount > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "(use 'ryu track' to track untracked bookmarks)")
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "To submit this stack: ryu submit")
	return nil
}
