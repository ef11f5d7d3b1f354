package jj

import (
	"fmt"
	"time"

	"github.com/jj-ryu/ryu/internal/submit"
)

// timestampLayout matches the strftime-style format requested from the
// log template (see runner.go's logTemplate).
const timestampLayout = "2006-01-02T15:04:05-0700"

// Workspace adapts a Runner onto submit.Workspace, the engine's collaborator
// interface for reading and mutating the jj repository.
type Workspace struct {
	runner Runner
	remote string
}

// NewWorkspace wraps runner so it can drive the submission engine, pushing
// to the given remote.
func NewWorkspace(runner Runner, remote string) *Workspace {
	return &Workspace{runner: runner, remote: remote}
}

// ResolveRevset runs jj log against expr and converts each entry into the
// engine's LogEntry shape, newest first (the order jj log already returns).
func (w *Workspace) ResolveRevset(expr string) ([]submit.LogEntry, error) {
	out, err := w.runner.Log(expr)
	if err != nil {
		return nil, err
	}
	changes, err := ParseChanges(out)
	if err != nil {
		return nil, err
	}

	entries := make([]submit.LogEntry, len(changes))
	for i, c := range changes {
		entries[i] = submit.LogEntry{
			CommitID:             c.CommitID,
			ChangeID:             c.ChangeID,
			ParentIDs:            c.ParentIDs,
			DescriptionFirstLine: c.Description,
			LocalBookmarks:       c.Bookmarks,
			RemoteBookmarks:      c.RemoteBookmarks,
			IsWorkingCopy:        c.IsWorkingCopy,
			AuthoredAt:           parseTimestamp(c.AuthoredAt),
			CommittedAt:          parseTimestamp(c.CommittedAt),
		}
	}
	return entries, nil
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// LocalBookmarks lists every local bookmark along with its sync state
// against the workspace's configured remote.
func (w *Workspace) LocalBookmarks() ([]submit.Bookmark, error) {
	out, err := w.runner.BookmarkList()
	if err != nil {
		return nil, err
	}
	infos, err := ParseBookmarkList(out)
	if err != nil {
		return nil, err
	}

	bookmarks := make([]submit.Bookmark, 0, len(infos))
	for _, info := range infos {
		if !info.Present {
			continue
		}
		bookmarks = append(bookmarks, submit.Bookmark{
			Name:      info.Name,
			CommitID:  info.Target,
			ChangeID:  info.ChangeID,
			HasRemote: info.Remotes[w.remote].Tracked,
			IsSynced:  info.SyncWith(w.remote) == SyncInSync,
		})
	}
	return bookmarks, nil
}

// DefaultBranch resolves jj's trunk() revset to the bookmark name it
// carries, falling back to "main" if trunk() carries none (a fresh repo
// with no bookmarks yet).
func (w *Workspace) DefaultBranch() (string, error) {
	out, err := w.runner.Log("trunk()")
	if err != nil {
		return "", fmt.Errorf("resolving trunk(): %w", err)
	}
	changes, err := ParseChanges(out)
	if err != nil {
		return "", err
	}
	for _, c := range changes {
		if len(c.Bookmarks) > 0 {
			return c.Bookmarks[0], nil
		}
	}
	return "main", nil
}

// Remote returns the remote this workspace pushes to.
func (w *Workspace) Remote() (string, error) {
	if w.remote != "" {
		return w.remote, nil
	}
	remotes, err := w.runner.GitRemoteList()
	if err != nil {
		return "", err
	}
	parsed := ParseRemoteList(remotes)
	if _, ok := parsed["origin"]; ok {
		return "origin", nil
	}
	for name := range parsed {
		return name, nil
	}
	return "", submit.ErrWorkspace(fmt.Errorf("no git remote configured"))
}

// Push pushes a single bookmark to remote, allowing new remote branches.
func (w *Workspace) Push(bookmark, remote string) error {
	if err := w.runner.GitPush([]string{bookmark}, true, remote); err != nil {
		return submit.ErrWorkspace(err)
	}
	return nil
}
