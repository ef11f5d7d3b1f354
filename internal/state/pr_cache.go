package state

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const prCacheSchemaVersion = 1

// CachedPr is a snapshot of a pull request as last observed from the
// platform, keyed by head bookmark name.
type CachedPr struct {
	BookmarkName string `toml:"bookmark_name"`
	Number       int    `toml:"number"`
	HTMLURL      string `toml:"html_url"`
	BaseRef      string `toml:"base_ref"`
	Title        string `toml:"title"`
	IsDraft      bool   `toml:"is_draft"`
}

// PrCache is the schema of pr_cache.toml.
type PrCache struct {
	SchemaVersion int        `toml:"schema_version"`
	Prs           []CachedPr `toml:"prs"`
}

func prCachePath(repoRoot string) string {
	return filepath.Join(stateDir(repoRoot), "pr_cache.toml")
}

// LoadPrCache reads pr_cache.toml, returning an empty cache if absent.
func LoadPrCache(repoRoot string) (*PrCache, error) {
	data, err := os.ReadFile(prCachePath(repoRoot))
	if os.IsNotExist(err) {
		return &PrCache{SchemaVersion: prCacheSchemaVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading PR cache: %w", err)
	}
	var pc PrCache
	if err := toml.Unmarshal(data, &pc); err != nil {
		return nil, fmt.Errorf("parsing PR cache: %w", err)
	}
	return &pc, nil
}

// Save writes the cache back to pr_cache.toml.
func (pc *PrCache) Save(repoRoot string) error {
	pc.SchemaVersion = prCacheSchemaVersion
	if err := os.MkdirAll(stateDir(repoRoot), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	data, err := toml.Marshal(pc)
	if err != nil {
		return fmt.Errorf("marshaling PR cache: %w", err)
	}
	return os.WriteFile(prCachePath(repoRoot), data, 0o644)
}

// Upsert records or replaces the cached PR for a bookmark.
func (pc *PrCache) Upsert(entry CachedPr) {
	for i, e := range pc.Prs {
		if e.BookmarkName == entry.BookmarkName {
			pc.Prs[i] = entry
			return
		}
	}
	pc.Prs = append(pc.Prs, entry)
}

// Find returns the cached PR for a bookmark, if any.
func (pc *PrCache) Find(bookmarkName string) (CachedPr, bool) {
	for _, e := range pc.Prs {
		if e.BookmarkName == bookmarkName {
			return e, true
		}
	}
	return CachedPr{}, false
}

// Remove drops the cached PR for a bookmark, e.g. after it's closed.
func (pc *PrCache) Remove(bookmarkName string) {
	filtered := pc.Prs[:0]
	for _, e := range pc.Prs {
		if e.BookmarkName != bookmarkName {
			filtered = append(filtered, e)
		}
	}
	pc.Prs = filtered
}
