package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jj-ryu/ryu/internal/auth"
	gh "github.com/jj-ryu/ryu/internal/github"
	"github.com/jj-ryu/ryu/internal/jj"
	platformgh "github.com/jj-ryu/ryu/internal/platform/github"
	"github.com/jj-ryu/ryu/internal/state"
	"github.com/jj-ryu/ryu/internal/submit"
)

var submitCmd = &cobra.Command{
	Use:   "submit [target-bookmark]",
	Short: "Submit a stack of bookmarks as linked pull requests",
	Long: `Submit projects the current change graph into a linear stack of
bookmarks and opens or updates one pull request per bookmark, each
targeting the bookmark below it.

With no argument, the stack's current tip is the target. Scope flags
narrow or extend that default.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSubmit,
}

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.Flags().String("remote", "origin", "Push remote name")
	submitCmd.Flags().BoolP("dry-run", "n", false, "Show the plan without making changes")
	submitCmd.Flags().String("upto", "", "Submit only up to the given bookmark")
	submitCmd.Flags().String("only", "", "Submit only the given bookmark (its parent must already have a PR)")
	submitCmd.Flags().String("stack", "", "Extend the stack through the given bookmark to the leaf")
	submitCmd.Flags().Bool("update-only", false, "Only update bookmarks that already have a PR; never create new ones")
	submitCmd.Flags().BoolP("draft", "d", false, "Create new PRs as drafts")
	submitCmd.Flags().Bool("publish", false, "Mark existing draft PRs in the stack as ready for review")
	submitCmd.Flags().Bool("tracked-only", false, "Restrict submission to bookmarks already recorded in tracking state")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	remote, _ := cmd.Flags().GetString("remote")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	upto, _ := cmd.Flags().GetString("upto")
	only, _ := cmd.Flags().GetString("only")
	stack, _ := cmd.Flags().GetString("stack")
	updateOnly, _ := cmd.Flags().GetBool("update-only")
	draft, _ := cmd.Flags().GetBool("draft")
	publish, _ := cmd.Flags().GetBool("publish")
	trackedOnly, _ := cmd.Flags().GetBool("tracked-only")
	w := cmd.OutOrStdout()

	var target string
	if len(args) == 1 {
		target = args[0]
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	token, source := auth.ResolveToken(defaultHost)
	if token == "" {
		return fmt.Errorf("not authenticated. Run 'ryu auth login' or 'gh auth login' or set GH_TOKEN")
	}
	log.Debug().Str("source", source).Msg("resolved auth token")

	cwd, err := repoRoot()
	if err != nil {
		return fmt.Errorf("resolving repo root: %w", err)
	}
	runner := jj.NewRunner(cwd)
	ws := jj.NewWorkspace(runner, remote)

	remoteData, err := runner.GitRemoteList()
	if err != nil {
		return fmt.Errorf("listing remotes: %w", err)
	}
	remotes := jj.ParseRemoteList(remoteData)
	remoteURL, ok := remotes[remote]
	if !ok {
		return fmt.Errorf("remote %q not found (available: %v)", remote, remotes)
	}

	apiURL := os.Getenv("GITHUB_API_URL")
	client, err := gh.NewClient(token, remoteURL, apiURL)
	if err != nil {
		return err
	}
	log.Info().Str("repo", client.Owner()+"/"+client.Repo()).Msg("resolved repository")
	platform := platformgh.New(client)

	log.Debug().Str("remote", remote).Msg("fetching")
	if err := runner.GitFetch(remote); err != nil {
		return fmt.Errorf("fetching %s: %w", remote, err)
	}

	defaultBranch, err := ws.DefaultBranch()
	if err != nil {
		return fmt.Errorf("resolving default branch: %w", err)
	}

	oldRemoteTargets, err := remoteBookmarkTargets(runner, remote)
	if err != nil {
		return fmt.Errorf("reading remote bookmark targets: %w", err)
	}
	repoFullName := client.Owner() + "/" + client.Repo()
	postDiffComment := func(bookmarkName string, pr submit.PullRequest, newCommitID string) {
		oldTarget, hadRemote := oldRemoteTargets[bookmarkName]
		if !hadRemote || oldTarget == newCommitID {
			return
		}
		diff, err := runner.Interdiff(oldTarget, newCommitID)
		if err != nil {
			log.Warn().Err(err).Int("pr", pr.Number).Msg("interdiff failed, skipping change comment")
			return
		}
		comment := gh.BuildDiffComment(diff, repoFullName, defaultBranch, oldTarget, newCommitID)
		if err := client.CommentOnPR(pr.Number, comment); err != nil {
			log.Warn().Err(err).Int("pr", pr.Number).Msg("failed to post change comment")
		}
	}

	scope, scopeName := submit.ScopeDefault, ""
	switch {
	case upto != "":
		scope, scopeName = submit.ScopeUpto, upto
	case only != "":
		scope, scopeName = submit.ScopeOnly, only
	case stack != "":
		scope, scopeName = submit.ScopeStack, stack
	}

	result, err := runSubmitPipeline(submitDeps{
		ws:              ws,
		platform:        platform,
		remote:          remote,
		defaultBranch:   defaultBranch,
		target:          target,
		scope:           scope,
		scopeName:       scopeName,
		updateOnly:      updateOnly,
		draft:           draft,
		publish:         publish,
		trackedOnly:     trackedOnly,
		dryRun:          dryRun,
		repoRoot:        cwd,
		postPushComment: postDiffComment,
	}, w)
	if err != nil {
		return err
	}
	if !result.Success {
		for _, e := range result.Errors {
			_, _ = fmt.Fprintf(w, "error: %s\n", e)
		}
		return fmt.Errorf("submission failed")
	}
	for _, e := range result.Errors {
		_, _ = fmt.Fprintf(w, "warning: %s\n", e)
	}
	return nil
}

// remoteBookmarkTargets reads the current remote commit id for every local
// bookmark, so a later push's before/after can be diffed for a
// "changes since last push" comment.
func remoteBookmarkTargets(runner jj.Runner, remote string) (map[string]string, error) {
	data, err := runner.BookmarkList()
	if err != nil {
		return nil, err
	}
	infos, err := jj.ParseBookmarkList(data)
	if err != nil {
		return nil, err
	}
	targets := make(map[string]string, len(infos))
	for _, info := range infos {
		if rs, ok := info.Remotes[remote]; ok && rs.Target != "" {
			targets[info.Name] = rs.Target
		}
	}
	return targets, nil
}

// submitDeps bundles everything the pipeline needs, so it can be driven
// identically from the CLI and from tests with fake collaborators.
type submitDeps struct {
	ws            submit.Workspace
	platform      submit.Platform
	remote        string
	defaultBranch string
	target        string
	scope         submit.Scope
	scopeName     string
	updateOnly    bool
	draft         bool
	publish       bool
	trackedOnly   bool
	dryRun        bool
	repoRoot      string
	// postPushComment, if set, is called for every pushed bookmark that
	// already had an existing PR, so a "changes since last push" comment
	// can be posted. Optional: tests may leave it nil.
	postPushComment func(bookmarkName string, pr submit.PullRequest, newCommitID string)
}

// runSubmitPipeline drives the three-phase engine: analysis, planning, and
// execution, then reconciles stack comments on every touched PR.
func runSubmitPipeline(d submitDeps, w io.Writer) (*submit.Result, error) {
	commits, err := d.ws.ResolveRevset("trunk()..@")
	if err != nil {
		return nil, fmt.Errorf("resolving change graph: %w", err)
	}
	bookmarks, err := d.ws.LocalBookmarks()
	if err != nil {
		return nil, fmt.Errorf("listing bookmarks: %w", err)
	}

	graph, err := submit.BuildChangeGraph(commits, bookmarks)
	if err != nil {
		return nil, err
	}

	analysis, err := submit.AnalyzeSubmission(graph, d.target)
	if err != nil {
		return nil, err
	}
	analysis, err = submit.ApplyScope(graph, analysis, d.scope, d.scopeName, d.platform)
	if err != nil {
		return nil, err
	}

	existingPRs := make(map[string]submit.PullRequest)
	for _, seg := range analysis.Segments {
		pr, err := d.platform.FindExistingPr(seg.Bookmark.Name)
		if err != nil {
			return nil, fmt.Errorf("looking up PR for %s: %w", seg.Bookmark.Name, err)
		}
		if pr != nil {
			existingPRs[seg.Bookmark.Name] = *pr
		}
	}

	plan, err := submit.CreateSubmissionPlan(analysis, existingPRs, d.remote, d.defaultBranch)
	if err != nil {
		return nil, err
	}
	if d.trackedOnly {
		ts, err := state.LoadTrackingState(d.repoRoot)
		if err != nil {
			return nil, fmt.Errorf("loading tracking state: %w", err)
		}
		selected := make(map[string]bool, len(ts.Entries))
		for _, e := range ts.Entries {
			selected[e.BookmarkName] = true
		}
		plan.FilterToSelection(selected)
	}
	if d.updateOnly {
		plan.ApplyUpdateOnly()
	}
	plan.ApplyDraft(d.draft, d.publish)
	plan.ApplyPublish(d.publish)

	segmentByName := make(map[string]submit.NarrowedBookmarkSegment, len(analysis.Segments))
	for _, seg := range analysis.Segments {
		segmentByName[seg.Bookmark.Name] = seg
	}

	result, prMap := submit.Execute(plan, d.ws, d.platform, w, d.dryRun)
	if d.dryRun {
		return result, nil
	}

	if d.postPushComment != nil {
		for _, name := range result.PushedBookmarks {
			pr, hadPR := existingPRs[name]
			seg, hasSeg := segmentByName[name]
			if hadPR && hasSeg {
				d.postPushComment(name, pr, seg.Bookmark.CommitID)
			}
		}
	}

	ts, err := state.LoadTrackingState(d.repoRoot)
	if err == nil {
		for _, seg := range analysis.Segments {
			if pr, ok := prMap[seg.Bookmark.Name]; ok {
				ts.Upsert(state.TrackingEntry{
					ChangeID:     seg.Bookmark.ChangeID,
					BookmarkName: seg.Bookmark.Name,
					PrNumber:     pr.Number,
				})
			}
		}
		_ = ts.Save(d.repoRoot)
	}

	submit.ReconcileStackComments(analysis.Segments, prMap, d.defaultBranch, d.platform, result)
	return result, nil
}
