package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	githubapi "repochat-backend/internal/github"
)

func blob(path string) githubapi.TreeEntry {
	return githubapi.TreeEntry{Path: path, Type: "blob"}
}

func TestSelectKeyPaths_PriorityFilesFirst(t *testing.T) {
	entries := []githubapi.TreeEntry{
		blob("internal/server/server.go"),
		blob("go.mod"),
		blob("README.md"),
		blob("main.go"),
		{Path: "internal", Type: "tree"},
	}

	picked := SelectKeyPaths(entries, 3)
	require.Len(t, picked, 3)
	assert.Equal(t, "README.md", picked[0])
	assert.Equal(t, "go.mod", picked[1])
	assert.Equal(t, "main.go", picked[2]) // shallowest non-priority file
}

func TestSelectKeyPaths_ShallowestFirstThenLexical(t *testing.T) {
	entries := []githubapi.TreeEntry{
		blob("z/deep/file.go"),
		blob("b.go"),
		blob("a.go"),
		blob("m/mid.go"),
	}

	picked := SelectKeyPaths(entries, 4)
	assert.Equal(t, []string{"a.go", "b.go", "m/mid.go", "z/deep/file.go"}, picked)
}

func TestSelectKeyPaths_IgnoresTrees(t *testing.T) {
	entries := []githubapi.TreeEntry{
		{Path: "src", Type: "tree"},
		{Path: "docs", Type: "tree"},
	}

	assert.Empty(t, SelectKeyPaths(entries, 5))
}

func TestSelectKeyPaths_ZeroMax(t *testing.T) {
	assert.Nil(t, SelectKeyPaths([]githubapi.TreeEntry{blob("a.go")}, 0))
}

func TestBuildAnalysisPrompt_IncludesMetadataTreeAndFiles(t *testing.T) {
	info := &githubapi.RepositoryInfo{
		Owner:         "octocat",
		Name:          "hello-world",
		Description:   "My first repo",
		DefaultBranch: "main",
		Language:      "Go",
		Stars:         12,
	}
	entries := []githubapi.TreeEntry{
		blob("README.md"),
		blob("main.go"),
		{Path: "docs", Type: "tree"},
	}
	files := map[string]string{
		"README.md": "# Hello World",
		"main.go":   "package main",
	}

	prompt := BuildAnalysisPrompt(info, entries, files)

	assert.Contains(t, prompt, "Repository: octocat/hello-world")
	assert.Contains(t, prompt, "Description: My first repo")
	assert.Contains(t, prompt, "Primary language: Go")
	assert.Contains(t, prompt, "Default branch: main")
	assert.Contains(t, prompt, "README.md")
	assert.Contains(t, prompt, "# Hello World")
	assert.Contains(t, prompt, "package main")
	assert.NotContains(t, prompt, "docs\n") // trees are not listed as files

	// Files appear in sorted order regardless of map iteration.
	assert.Less(t, strings.Index(prompt, "--- README.md ---"), strings.Index(prompt, "--- main.go ---"))
}

func TestBuildAnalysisPrompt_TruncatesLargeFiles(t *testing.T) {
	info := &githubapi.RepositoryInfo{Owner: "o", Name: "r", DefaultBranch: "main"}
	big := strings.Repeat("x", MaxFileBytes+100)

	prompt := BuildAnalysisPrompt(info, nil, map[string]string{"big.txt": big})

	assert.Contains(t, prompt, "... (truncated)")
	assert.NotContains(t, prompt, big)
}

func TestBuildChangePrompt_IncludesSummaryAndInstruction(t *testing.T) {
	prompt := BuildChangePrompt("octocat", "hello-world", "main", []byte(`{"description":"demo"}`), "Add a CONTRIBUTING guide")

	assert.Contains(t, prompt, "Repository: octocat/hello-world (branch main)")
	assert.Contains(t, prompt, `{"description":"demo"}`)
	assert.Contains(t, prompt, "Add a CONTRIBUTING guide")
}

func TestBuildChangePrompt_OmitsEmptySummary(t *testing.T) {
	prompt := BuildChangePrompt("o", "r", "main", nil, "do something")

	assert.NotContains(t, prompt, "Repository analysis:")
	assert.Contains(t, prompt, "do something")
}
