package posts

import (
	"sort"
)

// Collection is an immutable, date descending list of posts. Build one with
// NewCollection or Build and share it freely between goroutines.
type Collection struct {
	posts []Post
	index map[string]int
	tags  []string
}

// NewCollection copies posts, sorts them newest first and indexes them. Posts
// sharing a date keep their input order. When ids repeat, Get resolves to the
// first occurrence in the sorted order.
func NewCollection(posts []Post) *Collection {
	sorted := make([]Post, 0, len(posts))
	for _, p := range posts {
		sorted = append(sorted, clonePost(p))
	}
	// Dates are normalised to YYYY-MM-DD so a string compare orders them.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date > sorted[j].Date
	})

	index := make(map[string]int, len(sorted))
	tagSet := map[string]struct{}{}
	for i, p := range sorted {
		if _, ok := index[p.ID]; !ok {
			index[p.ID] = i
		}
		for _, tag := range p.Tags {
			tagSet[tag] = struct{}{}
		}
	}

	tags := make([]string, 0, len(tagSet))
	for tag := range tagSet {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	return &Collection{posts: sorted, index: index, tags: tags}
}

// All returns every post, newest first.
func (c *Collection) All() []Post {
	if c == nil {
		return []Post{}
	}
	out := make([]Post, 0, len(c.posts))
	for _, p := range c.posts {
		out = append(out, clonePost(p))
	}
	return out
}

// Get returns the post with id or a not found error.
func (c *Collection) Get(id string) (Post, error) {
	if c == nil {
		return Post{}, notFound(id)
	}
	i, ok := c.index[id]
	if !ok {
		return Post{}, notFound(id)
	}
	return clonePost(c.posts[i]), nil
}

// ByTag returns the posts carrying tag in collection order.
func (c *Collection) ByTag(tag string) []Post {
	out := []Post{}
	if c == nil {
		return out
	}
	for _, p := range c.posts {
		if p.HasTag(tag) {
			out = append(out, clonePost(p))
		}
	}
	return out
}

// Tags returns the distinct tags in ascending order.
func (c *Collection) Tags() []string {
	if c == nil {
		return []string{}
	}
	return cloneStrings(c.tags)
}

// TagCounts returns how many posts carry each tag.
func (c *Collection) TagCounts() map[string]int {
	counts := map[string]int{}
	if c == nil {
		return counts
	}
	for _, p := range c.posts {
		for _, tag := range p.Tags {
			counts[tag]++
		}
	}
	return counts
}

// Len returns the number of posts.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.posts)
}
