package generator

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"
)

const (
	manifestFileName    = ".folio-manifest.json"
	manifestFileVersion = 1
)

// buildManifest records the outputs of the last successful build so
// incremental runs can skip unchanged posts.
type buildManifest struct {
	Version     int                     `json:"version"`
	GeneratedAt time.Time               `json:"generated_at"`
	Posts       map[string]manifestPost `json:"posts"`
}

type manifestPost struct {
	PostID     string    `json:"post_id"`
	Hash       string    `json:"hash"`
	Outputs    []string  `json:"outputs"`
	RenderedAt time.Time `json:"rendered_at"`
}

func newBuildManifest() *buildManifest {
	return &buildManifest{
		Version: manifestFileVersion,
		Posts:   map[string]manifestPost{},
	}
}

func parseManifest(data []byte) (*buildManifest, error) {
	if len(data) == 0 {
		return newBuildManifest(), nil
	}
	var stored struct {
		Version     int            `json:"version"`
		GeneratedAt time.Time      `json:"generated_at"`
		Posts       []manifestPost `json:"posts"`
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("generator: parse manifest: %w", err)
	}
	manifest := newBuildManifest()
	manifest.GeneratedAt = stored.GeneratedAt
	if stored.Version != 0 {
		manifest.Version = stored.Version
	}
	for _, entry := range stored.Posts {
		manifest.setPost(entry)
	}
	return manifest, nil
}

// marshal writes posts as a sorted list for deterministic output.
func (m *buildManifest) marshal() ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	ordered := struct {
		Version     int            `json:"version"`
		GeneratedAt time.Time      `json:"generated_at"`
		Posts       []manifestPost `json:"posts"`
	}{
		Version:     m.Version,
		GeneratedAt: m.GeneratedAt,
		Posts:       make([]manifestPost, 0, len(m.Posts)),
	}
	if ordered.Version == 0 {
		ordered.Version = manifestFileVersion
	}
	for _, entry := range m.Posts {
		ordered.Posts = append(ordered.Posts, entry)
	}
	sort.Slice(ordered.Posts, func(i, j int) bool {
		return ordered.Posts[i].PostID < ordered.Posts[j].PostID
	})
	return json.MarshalIndent(ordered, "", "  ")
}

func manifestKey(postID string) string {
	return strings.ToLower(strings.TrimSpace(postID))
}

func (m *buildManifest) lookupPost(postID string) (manifestPost, bool) {
	if m == nil || len(m.Posts) == 0 {
		return manifestPost{}, false
	}
	entry, ok := m.Posts[manifestKey(postID)]
	return entry, ok
}

func (m *buildManifest) setPost(entry manifestPost) {
	if m == nil || strings.TrimSpace(entry.PostID) == "" {
		return
	}
	if m.Posts == nil {
		m.Posts = map[string]manifestPost{}
	}
	m.Posts[manifestKey(entry.PostID)] = entry
}

// shouldSkipPost reports whether the post hash and output set are unchanged.
func (m *buildManifest) shouldSkipPost(postID, hash string, outputs []string) bool {
	entry, ok := m.lookupPost(postID)
	if !ok || entry.Hash != hash {
		return false
	}
	return slices.Equal(entry.Outputs, outputs)
}

// prunePosts drops entries for posts that no longer exist.
func (m *buildManifest) prunePosts(keep map[string]struct{}) {
	if m == nil {
		return
	}
	for key := range m.Posts {
		if _, ok := keep[key]; !ok {
			delete(m.Posts, key)
		}
	}
}
