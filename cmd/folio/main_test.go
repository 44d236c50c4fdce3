package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// setupSite writes two posts and a config file, returning the config path
// and the output directory.
func setupSite(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	content := filepath.Join(root, "posts")
	out := filepath.Join(root, "dist")

	writeFile(t, filepath.Join(content, "hello.md"), "---\ntitle: Hello\ndate: 2024-03-01\ntags: [go]\n---\n# Hello\n")
	writeFile(t, filepath.Join(content, "second.md"), "---\ntitle: Second\ndate: 2024-04-01\ntags: [web]\n---\nbody\n")

	cfgPath := filepath.Join(root, "folio.yaml")
	writeFile(t, cfgPath, strings.Join([]string{
		"content:",
		"  dir: " + content,
		"generator:",
		"  output_dir: " + out,
		"  base_url: https://example.com",
		"logging:",
		"  level: error",
		"",
	}, "\n"))
	return cfgPath, out
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestBuildWritesArtifacts(t *testing.T) {
	cfgPath, out := setupSite(t)

	stdout, err := run(t, "--config", cfgPath, "build")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(stdout, "2 built") {
		t.Fatalf("expected build summary, got %q", stdout)
	}
	for _, name := range []string{"posts.json", "posts/hello.html", "tags.json", "sitemap.xml", "feed.xml"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Fatalf("expected %s written: %v", name, err)
		}
	}

	stdout, err = run(t, "--config", cfgPath, "build")
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if !strings.Contains(stdout, "2 skipped") {
		t.Fatalf("expected unchanged posts skipped, got %q", stdout)
	}
}

func TestBuildDryRunWritesNothing(t *testing.T) {
	cfgPath, out := setupSite(t)

	stdout, err := run(t, "--config", cfgPath, "build", "--dry-run")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.HasPrefix(stdout, "dry run:") {
		t.Fatalf("expected dry run summary, got %q", stdout)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("expected no output directory, got %v", err)
	}
}

func TestPostsFiltersByTag(t *testing.T) {
	cfgPath, _ := setupSite(t)

	stdout, err := run(t, "--config", cfgPath, "posts", "--tag", "web", "--json")
	if err != nil {
		t.Fatalf("posts: %v", err)
	}
	var list []struct {
		ID   string `json:"id"`
		HTML string `json:"html"`
	}
	if err := json.Unmarshal([]byte(stdout), &list); err != nil {
		t.Fatalf("decode posts: %v\n%s", err, stdout)
	}
	if len(list) != 1 || list[0].ID != "second" {
		t.Fatalf("expected only the web post, got %+v", list)
	}
	if list[0].HTML != "" {
		t.Fatal("expected summaries without html")
	}
}

func TestPostsTableListsNewestFirst(t *testing.T) {
	cfgPath, _ := setupSite(t)

	stdout, err := run(t, "--config", cfgPath, "posts")
	if err != nil {
		t.Fatalf("posts: %v", err)
	}
	second := strings.Index(stdout, "second")
	hello := strings.Index(stdout, "hello")
	if second < 0 || hello < 0 || second > hello {
		t.Fatalf("expected newest post first, got %q", stdout)
	}
}

func TestRenderPrintsHTML(t *testing.T) {
	cfgPath, _ := setupSite(t)
	file := filepath.Join(t.TempDir(), "draft.md")
	writeFile(t, file, "---\ntitle: Draft\n---\n::: tip\nHeads up\n:::\n")

	stdout, err := run(t, "--config", cfgPath, "render", file, "--json")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	var out renderOutput
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		t.Fatalf("decode render output: %v\n%s", err, stdout)
	}
	if out.FrontMatter["title"] != "Draft" {
		t.Fatalf("expected frontmatter title, got %+v", out.FrontMatter)
	}
	if !strings.Contains(out.HTML, `custom-container tip`) || !strings.Contains(out.HTML, "Heads up") {
		t.Fatalf("expected rendered body, got %s", out.HTML)
	}
}

func TestRenderRequiresExistingFile(t *testing.T) {
	cfgPath, _ := setupSite(t)
	if _, err := run(t, "--config", cfgPath, "render", filepath.Join(t.TempDir(), "missing.md")); err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestInvalidConfigIsRejected(t *testing.T) {
	cfgPath, _ := setupSite(t)
	if _, err := run(t, "--config", cfgPath, "--log-provider", "syslog", "posts"); err == nil {
		t.Fatal("expected error for an unknown log provider")
	}
}

func TestEnvironmentOverridesConfig(t *testing.T) {
	cfgPath, _ := setupSite(t)
	t.Setenv("FOLIO_CONTENT_DIR", filepath.Join(t.TempDir(), "missing"))

	if _, err := run(t, "--config", cfgPath, "posts"); err == nil {
		t.Fatal("expected the env content dir to override the config file")
	}
}
