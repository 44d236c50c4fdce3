package markdown

import (
	"os"
	"reflect"
	"strings"
	"testing"
)

func TestParseFrontMatterFixture(t *testing.T) {
	data := readFixture(t, "testdata/post.md")

	fm, body := ParseFrontMatter(data)

	if got, _ := fm.String("title"); got != "Shipping a Go blog" {
		t.Fatalf("title mismatch, got %q", got)
	}
	if got, _ := fm.String("excerpt"); got != "Notes from moving the portfolio off a JS toolchain" {
		t.Fatalf("excerpt mismatch, got %q", got)
	}
	tags, ok := fm.Strings("tags")
	if !ok || !reflect.DeepEqual(tags, []string{"go", "web", "markdown"}) {
		t.Fatalf("tags mismatch: %#v", tags)
	}
	if _, ok := fm["slug"]; ok {
		t.Fatalf("expected line without colon to be ignored: %#v", fm)
	}
	if !strings.HasPrefix(string(body), "# Shipping a Go blog") {
		t.Fatalf("body not returned correctly: %q", string(body))
	}
}

func TestParseFrontMatterAbsentHeader(t *testing.T) {
	data := readFixture(t, "testdata/no_frontmatter.md")

	fm, body := ParseFrontMatter(data)
	if len(fm) != 0 {
		t.Fatalf("expected empty mapping, got %#v", fm)
	}
	if string(body) != string(data) {
		t.Fatalf("expected the untouched source, got %q", string(body))
	}
}

func TestParseFrontMatterRules(t *testing.T) {
	cases := []struct {
		name   string
		source string
		key    string
		want   Value
		body   string
	}{
		{
			name:   "colon inside quoted value",
			source: "---\ntitle: \"Hello: World\"\n---\nBody\n",
			key:    "title",
			want:   Value{Scalar: "Hello: World"},
			body:   "Body\n",
		},
		{
			name:   "empty list",
			source: "---\ntags: []\n---\n",
			key:    "tags",
			want:   Value{List: []string{}, IsList: true},
			body:   "",
		},
		{
			name:   "list items strip quotes independently",
			source: "---\ntags: [ 'a' , \"b , c\" ]\n---\n",
			key:    "tags",
			want:   Value{List: []string{"a", "b", "c"}, IsList: true},
		},
		{
			name:   "last duplicate wins",
			source: "---\nauthor: one\nauthor: two\n---\nx",
			key:    "author",
			want:   Value{Scalar: "two"},
			body:   "x",
		},
		{
			name:   "single quote is kept",
			source: "---\nnote: '\n---\n",
			key:    "note",
			want:   Value{Scalar: "'"},
		},
		{
			name:   "marker with trailing spaces",
			source: "---   \ntitle: Spaced\n---  \nBody",
			key:    "title",
			want:   Value{Scalar: "Spaced"},
			body:   "Body",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fm, body := ParseFrontMatter([]byte(tc.source))
			got, ok := fm[tc.key]
			if !ok {
				t.Fatalf("expected key %q in %#v", tc.key, fm)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("value mismatch\nwant: %#v\ngot:  %#v", tc.want, got)
			}
			if string(body) != tc.body {
				t.Fatalf("body mismatch, want %q got %q", tc.body, string(body))
			}
		})
	}
}

func TestParseFrontMatterRequiresNewlineAfterClosingMarker(t *testing.T) {
	source := []byte("---\ntitle: x\n---")
	fm, body := ParseFrontMatter(source)
	if len(fm) != 0 || string(body) != string(source) {
		t.Fatalf("expected absent header, got %#v / %q", fm, string(body))
	}
}

func TestParseFrontMatterSkipsInvalidLines(t *testing.T) {
	fm, _ := ParseFrontMatter([]byte("---\n: no key\n# comment: yes\n\njust text\nok: 1\n---\n"))
	if len(fm) != 1 {
		t.Fatalf("expected only the valid key, got %#v", fm)
	}
	if got, _ := fm.String("ok"); got != "1" {
		t.Fatalf("expected ok=1, got %q", got)
	}
}

func TestFrontMatterAccessors(t *testing.T) {
	fm := FrontMatter{
		"tags":  {List: []string{"go", "web"}, IsList: true},
		"topic": {Scalar: "go"},
		"empty": {Scalar: ""},
	}

	if got, _ := fm.String("tags"); got != "go, web" {
		t.Fatalf("expected joined list, got %q", got)
	}
	if got, _ := fm.Strings("topic"); !reflect.DeepEqual(got, []string{"go"}) {
		t.Fatalf("expected scalar promotion, got %#v", got)
	}
	if got, ok := fm.Strings("empty"); !ok || got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", got)
	}
	if _, ok := fm.String("missing"); ok {
		t.Fatalf("expected missing key to report false")
	}

	list, _ := fm.Strings("tags")
	list[0] = "mutated"
	if fm["tags"].List[0] != "go" {
		t.Fatalf("expected Strings to return a copy")
	}
}

func TestYAMLFrontMatter(t *testing.T) {
	source := []byte("---\ntitle: Hello\ndate: 2024-01-02\ntags:\n  - go\n  - web\ndraft: true\n---\nBody\n")

	fm, body := NewFrontMatterParser(FrontMatterYAML).Parse(source)

	if got, _ := fm.String("title"); got != "Hello" {
		t.Fatalf("title mismatch, got %q", got)
	}
	if got, _ := fm.String("date"); got != "2024-01-02" {
		t.Fatalf("date mismatch, got %q", got)
	}
	if got, _ := fm.Strings("tags"); !reflect.DeepEqual(got, []string{"go", "web"}) {
		t.Fatalf("tags mismatch, got %#v", got)
	}
	if got, _ := fm.String("draft"); got != "true" {
		t.Fatalf("draft mismatch, got %q", got)
	}
	if strings.TrimSpace(string(body)) != "Body" {
		t.Fatalf("body mismatch, got %q", string(body))
	}
}

func TestYAMLFrontMatterMalformedHeader(t *testing.T) {
	source := []byte("---\ntitle: [unclosed\n---\nBody\n")
	fm, body := YAMLFrontMatter{}.Parse(source)
	if len(fm) != 0 || string(body) != string(source) {
		t.Fatalf("expected fallback to the raw source, got %#v / %q", fm, string(body))
	}
}

func TestNewFrontMatterParserDefaultsToSimple(t *testing.T) {
	if _, ok := NewFrontMatterParser("").(SimpleFrontMatter); !ok {
		t.Fatalf("expected SimpleFrontMatter for empty mode")
	}
	if _, ok := NewFrontMatterParser(" YAML ").(YAMLFrontMatter); !ok {
		t.Fatalf("expected YAMLFrontMatter for yaml mode")
	}
}

func readFixture(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return data
}
