package generator

import (
	"path"
	"strconv"

	"github.com/goliatone/go-folio/internal/slugs"
)

const (
	postsIndexFile   = "posts.json"
	tagsIndexFile    = "tags.json"
	galleryIndexFile = "gallery.json"
	highlightCSSFile = "assets/highlight.css"
	sitemapFile      = "sitemap.xml"
	robotsFile       = "robots.txt"
	rssFeedFile      = "feed.xml"
	atomFeedFile     = "feed.atom.xml"
)

func postJSONPath(id string) string {
	return path.Join("posts", id+".json")
}

func postHTMLPath(id string) string {
	return path.Join("posts", id+".html")
}

func tagJSONPath(slug string) string {
	return path.Join("tags", slug+".json")
}

// postRoute is the public URL path of a post, used by feeds and the sitemap.
func postRoute(id string) string {
	return "/posts/" + id
}

func tagRoute(slug string) string {
	return "/tags/" + slug
}

// tagSlugs assigns every tag a unique file slug. Tags whose slugs collide get
// a numeric suffix in tag order.
func tagSlugs(tags []string) map[string]string {
	out := make(map[string]string, len(tags))
	taken := map[string]struct{}{}
	for _, tag := range tags {
		base := slugs.Normalize(tag)
		if base == "" {
			base = "tag"
		}
		slug := base
		for n := 2; ; n++ {
			if _, ok := taken[slug]; !ok {
				break
			}
			slug = base + "-" + strconv.Itoa(n)
		}
		taken[slug] = struct{}{}
		out[tag] = slug
	}
	return out
}
