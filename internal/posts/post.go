package posts

import (
	"strings"
	"time"

	"github.com/goliatone/go-folio/internal/markdown"
)

const (
	DefaultTitle  = "Untitled"
	DefaultAuthor = "Anonymous"

	// DateLayout is the stored date format.
	DateLayout = "2006-01-02"
)

// Post is an immutable blog entry. Slices are copied on the way in and out of
// a Collection so callers cannot mutate shared state.
type Post struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Excerpt     string                `json:"excerpt"`
	Content     string                `json:"content"`
	HTML        string                `json:"html,omitempty"`
	Author      string                `json:"author"`
	Date        string                `json:"date"`
	Tags        []string              `json:"tags"`
	Path        string                `json:"path,omitempty"`
	Checksum    string                `json:"checksum,omitempty"`
	Diagnostics []markdown.Diagnostic `json:"diagnostics,omitempty"`
}

// Summary returns the post without rendered HTML or raw content, for list
// views.
func (p Post) Summary() Post {
	p.HTML = ""
	p.Content = ""
	p.Tags = cloneStrings(p.Tags)
	p.Diagnostics = nil
	return p
}

// HasTag reports exact tag membership.
func (p Post) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Time parses Date. Posts built by Assemble always carry a valid date.
func (p Post) Time() time.Time {
	t, err := time.Parse(DateLayout, p.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
}

// Assemble builds a Post from a parsed header and body. It applies the
// defaults for missing fields and never fails. HTML is left empty.
func Assemble(id string, fm markdown.FrontMatter, body string, now time.Time) Post {
	post := Post{
		ID:      id,
		Title:   DefaultTitle,
		Author:  DefaultAuthor,
		Content: body,
		Date:    now.Format(DateLayout),
		Tags:    []string{},
	}

	if title, ok := fm.String("title"); ok && strings.TrimSpace(title) != "" {
		post.Title = title
	}
	if excerpt, ok := fm.String("excerpt"); ok {
		post.Excerpt = excerpt
	}
	if author, ok := fm.String("author"); ok && strings.TrimSpace(author) != "" {
		post.Author = author
	}
	if raw, ok := fm.String("date"); ok {
		if date, ok := parseDate(raw); ok {
			post.Date = date.Format(DateLayout)
		}
	}
	if tags, ok := fm.Strings("tags"); ok {
		post.Tags = normalizeTags(tags)
	}
	return post
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// normalizeTags drops empty entries and duplicates while keeping order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return append(make([]string, 0, len(in)), in...)
}

func clonePost(p Post) Post {
	p.Tags = cloneStrings(p.Tags)
	if p.Diagnostics != nil {
		p.Diagnostics = append([]markdown.Diagnostic(nil), p.Diagnostics...)
	}
	return p
}
